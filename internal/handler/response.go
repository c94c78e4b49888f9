package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/bot"
	"github.com/freeeve/commander-clash/api/internal/service"
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeServiceError maps service and domain errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBattleNotFound), errors.Is(err, service.ErrCommanderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCommanderLocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrPickRejected), errors.Is(err, battle.ErrBattleOver):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, battle.ErrInvalidConfig), errors.Is(err, bot.ErrUnknownStrategy):
		log.Error().Err(err).Msg("Battle setup failed")
		writeError(w, http.StatusInternalServerError, "battle setup failed")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timed out")
	default:
		log.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
