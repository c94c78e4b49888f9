package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/auth"
	"github.com/freeeve/commander-clash/api/internal/model"
	"github.com/freeeve/commander-clash/api/internal/service"
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

// abortTimeout bounds how long DELETE waits for a battle loop to stop.
const abortTimeout = 5 * time.Second

// BattleHandler handles battle endpoints.
type BattleHandler struct {
	battleSvc *service.BattleService
}

// NewBattleHandler creates a BattleHandler.
func NewBattleHandler(battleSvc *service.BattleService) *BattleHandler {
	return &BattleHandler{battleSvc: battleSvc}
}

// StartBattle handles POST /api/v1/battles
func (h *BattleHandler) StartBattle(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	var req struct {
		CommanderID string `json:"commander_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CommanderID == "" {
		writeError(w, http.StatusBadRequest, "commander_id is required")
		return
	}

	b, err := h.battleSvc.StartBattle(r.Context(), playerID, req.CommanderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GetBattle handles GET /api/v1/battles/{id}
func (h *BattleHandler) GetBattle(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	v, err := h.battleSvc.View(r.Context(), playerID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListRounds handles GET /api/v1/battles/{id}/rounds
func (h *BattleHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	rounds, err := h.battleSvc.ListRounds(r.Context(), playerID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rounds == nil {
		rounds = []model.Round{}
	}
	writeJSON(w, http.StatusOK, rounds)
}

// SubmitPick handles POST /api/v1/battles/{id}/pick
func (h *BattleHandler) SubmitPick(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	var req struct {
		Unit string `json:"unit"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := battle.ParseUnitType(req.Unit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.battleSvc.SubmitPick(playerID, r.PathValue("id"), u); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"unit": u.String()})
}

// AbortBattle handles DELETE /api/v1/battles/{id}
func (h *BattleHandler) AbortBattle(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerIDFromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), abortTimeout)
	defer cancel()

	id := r.PathValue("id")
	if err := h.battleSvc.Abort(ctx, playerID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	log.Info().Str("battleId", id).Str("playerId", playerID).Msg("Battle aborted by player")
	w.WriteHeader(http.StatusNoContent)
}
