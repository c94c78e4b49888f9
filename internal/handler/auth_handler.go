package handler

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/auth"
)

var playerNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`)

// AuthHandler issues player tokens.
type AuthHandler struct {
	jwtMgr  *auth.JWTManager
	devMode bool
}

// NewAuthHandler creates an AuthHandler. Dev login is only served when
// devMode is set.
func NewAuthHandler(jwtMgr *auth.JWTManager, devMode bool) *AuthHandler {
	return &AuthHandler{jwtMgr: jwtMgr, devMode: devMode}
}

// DevLogin handles POST /auth/dev. It issues a token for a local player
// profile named in the request body; the same name always maps to the same
// player.
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.devMode {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if !playerNamePattern.MatchString(req.Name) {
		writeError(w, http.StatusBadRequest, "name must be 1-32 letters, digits, '-' or '_'")
		return
	}

	playerID := "dev-" + strings.ToLower(req.Name)
	tok, err := h.jwtMgr.IssueToken(playerID, req.Name)
	if err != nil {
		log.Error().Err(err).Str("playerId", playerID).Msg("Failed to issue token")
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	log.Info().Str("playerId", playerID).Msg("Dev login")
	writeJSON(w, http.StatusOK, tok)
}
