// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vkazarin/stavka/internal/auth"
	"github.com/vkazarin/stavka/internal/reason"
)

// extractCookieToken extracts a named cookie value from the Cookie header,
// or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// authedUser resolves the caller's user id from the auth_token cookie.
func authedUser(r *http.Request) (uuid.UUID, error) {
	token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	if token == "" {
		return uuid.Nil, errors.New("missing auth_token")
	}
	sub, err := auth.AuthenticateJWT(token)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a rejection to its HTTP status and serializes the
// machine-readable reason. Non-reason errors are opaque server failures.
func writeError(w http.ResponseWriter, err error) {
	var rsn reason.Reason
	if !errors.As(err, &rsn) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, reasonStatus(rsn), map[string]string{"error": string(rsn)})
}

func reasonStatus(r reason.Reason) int {
	switch r {
	case reason.NotFound:
		return http.StatusNotFound
	case reason.Funds, reason.Item, reason.ItemPrice:
		return http.StatusPaymentRequired
	case reason.Closed, reason.Full, reason.Active, reason.Owner, reason.Started, reason.Players:
		return http.StatusConflict
	case reason.CreateFailed, reason.Action, reason.Coords, reason.Unknown:
		return http.StatusBadRequest
	}
	// Game rule rejections: well-formed request, refused by the engine.
	return http.StatusUnprocessableEntity
}
