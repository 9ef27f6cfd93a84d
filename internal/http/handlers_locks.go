package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/mistakeknot/agentmail/internal/core"
	"github.com/mistakeknot/agentmail/internal/lockfile"
)

// GET /api/locks?project= reports the archive locks in a project namespace,
// flagging holders whose metadata is old enough to suspect a crash.
func (s *Service) handleLocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	project, err := resolveProject(r, r.URL.Query().Get("project"))
	if err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if project == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	locks, err := lockfile.Status(s.cfg.ProjectDir(project), lockfile.DefaultStaleTimeout)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if locks == nil {
		locks = []core.LockStatus{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string][]core.LockStatus{"locks": locks})
}
