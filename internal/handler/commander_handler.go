package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/model"
	"github.com/freeeve/commander-clash/api/internal/service"
)

// CommanderHandler serves the commander roster.
type CommanderHandler struct {
	battleSvc *service.BattleService
}

// NewCommanderHandler creates a CommanderHandler.
func NewCommanderHandler(battleSvc *service.BattleService) *CommanderHandler {
	return &CommanderHandler{battleSvc: battleSvc}
}

// ListCommanders handles GET /api/v1/commanders
func (h *CommanderHandler) ListCommanders(w http.ResponseWriter, r *http.Request) {
	cs, err := h.battleSvc.ListCommanders(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list commanders")
		writeError(w, http.StatusInternalServerError, "failed to list commanders")
		return
	}
	if cs == nil {
		cs = []model.Commander{}
	}
	writeJSON(w, http.StatusOK, cs)
}
