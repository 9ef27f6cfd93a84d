package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

// GET /api/identity?path=<dir> resolves the project identity for a working
// directory. Resolution never fails on a plain directory; a missing or
// unreadable path is the only client error.
func (s *Service) handleIdentity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	id, err := s.resolver.Resolve(r.Context(), path)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(id)
}
