package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/careportal/internal/portal"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// callerRole returns the role the auth middleware resolved. Handlers are only
// mounted behind that middleware, so a missing role is a 401.
func callerRole(w http.ResponseWriter, r *http.Request) (portal.Role, bool) {
	role, ok := portal.RoleFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing portal role")
	}
	return role, ok
}
