package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mistakeknot/agentmail/internal/core"
)

// GET /api/events?project=&limit= returns recent journal entries, newest
// first. Project is optional for localhost callers.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.journal == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	project, err := resolveProject(r, r.URL.Query().Get("project"))
	if err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := s.journal.RecentEvents(project, limit)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []core.Event{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string][]core.Event{"events": events})
}
