package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mistakeknot/agentmail/internal/auth"
	"github.com/mistakeknot/agentmail/internal/core"
	"github.com/mistakeknot/agentmail/internal/lockfile"
	"github.com/mistakeknot/agentmail/internal/reservation"
)

type claimRequest struct {
	Agent      string   `json:"agent"`
	Project    string   `json:"project"`
	Patterns   []string `json:"patterns"`
	Exclusive  bool     `json:"exclusive"`
	Reason     string   `json:"reason"`
	TTLSeconds int      `json:"ttl_seconds"`
}

type mutateRequest struct {
	Agent         string   `json:"agent"`
	Project       string   `json:"project"`
	Patterns      []string `json:"patterns"`
	ExtendSeconds int      `json:"extend_seconds"`
}

type apiReservation struct {
	Agent       string  `json:"agent"`
	Project     string  `json:"project"`
	PathPattern string  `json:"path_pattern"`
	Exclusive   bool    `json:"exclusive"`
	Reason      string  `json:"reason,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	ExpiresAt   *string `json:"expires_at,omitempty"`
	ReleasedAt  *string `json:"released_at,omitempty"`
	Active      bool    `json:"active"`
}

type claimResponse struct {
	Granted   []apiReservation      `json:"granted"`
	Conflicts []core.ConflictDetail `json:"conflicts"`
}

type reservationsResponse struct {
	Reservations []apiReservation `json:"reservations"`
}

func toAPIReservation(r core.Reservation) apiReservation {
	api := apiReservation{
		Agent:       r.Agent,
		Project:     r.Project,
		PathPattern: r.PathPattern,
		Exclusive:   r.Exclusive,
		Reason:      r.Reason,
		Active:      r.IsActive(time.Now().UTC()),
	}
	if !r.CreatedAt.IsZero() {
		api.CreatedAt = r.CreatedAt.Format(time.RFC3339Nano)
	}
	if r.ExpiresAt != nil {
		s := r.ExpiresAt.Format(time.RFC3339Nano)
		api.ExpiresAt = &s
	}
	if r.ReleasedAt != nil {
		s := r.ReleasedAt.Format(time.RFC3339Nano)
		api.ReleasedAt = &s
	}
	return api
}

// resolveProject applies the auth scoping rule: API-key callers may only
// touch their own project, localhost callers name any project.
func resolveProject(r *http.Request, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	info, _ := auth.FromContext(r.Context())
	if info.Mode == auth.ModeAPIKey {
		if requested != "" && requested != info.Project {
			return "", errors.New("project not authorized")
		}
		return info.Project, nil
	}
	return requested, nil
}

func (s *Service) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReservations(w, r)
	case http.MethodPost:
		s.claimReservations(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Service) claimReservations(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Agent == "" || len(req.Patterns) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	project, err := resolveProject(r, req.Project)
	if err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if project == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	result, err := s.reservations.Claim(r.Context(), project, req.Agent, req.Patterns, req.Exclusive, ttl, req.Reason)
	if err != nil {
		writeClaimError(w, err)
		return
	}

	for _, g := range result.Granted {
		s.emit(core.EventReservationClaimed, project, req.Agent, g.PathPattern, "")
	}
	for _, c := range result.Conflicts {
		detail := fmt.Sprintf("overlaps %s held by %s", c.HeldPattern, c.HeldBy)
		s.emit(core.EventReservationConflict, project, req.Agent, c.Pattern, detail)
	}
	if result.BrokeStale {
		s.emit(core.EventLockBroken, project, req.Agent, "", "stale archive lock broken during claim")
	}

	resp := claimResponse{Conflicts: result.Conflicts}
	if resp.Conflicts == nil {
		resp.Conflicts = []core.ConflictDetail{}
	}
	for _, g := range result.Granted {
		resp.Granted = append(resp.Granted, toAPIReservation(g))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeClaimError(w http.ResponseWriter, err error) {
	var patternErr *reservation.PatternError
	switch {
	case errors.Is(err, lockfile.ErrTimeout):
		w.WriteHeader(http.StatusServiceUnavailable)
	case errors.As(err, &patternErr):
		w.WriteHeader(http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *Service) listReservations(w http.ResponseWriter, r *http.Request) {
	project, err := resolveProject(r, r.URL.Query().Get("project"))
	if err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if project == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var reservations []core.Reservation
	if r.URL.Query().Get("all") == "true" {
		reservations, err = s.reservations.ListAll(project)
	} else {
		reservations, err = s.reservations.ListActive(project)
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	resp := reservationsResponse{Reservations: make([]apiReservation, 0, len(reservations))}
	for _, res := range reservations {
		resp.Reservations = append(resp.Reservations, toAPIReservation(res))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Service) handleRenew(w http.ResponseWriter, r *http.Request) {
	s.mutateReservations(w, r, true)
}

func (s *Service) handleRelease(w http.ResponseWriter, r *http.Request) {
	s.mutateReservations(w, r, false)
}

func (s *Service) mutateReservations(w http.ResponseWriter, r *http.Request, renew bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Agent == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	project, err := resolveProject(r, req.Project)
	if err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if project == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var count int
	if renew {
		extend := time.Duration(req.ExtendSeconds) * time.Second
		if extend <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		count, err = s.reservations.Renew(r.Context(), project, req.Agent, req.Patterns, extend)
	} else {
		count, err = s.reservations.Release(r.Context(), project, req.Agent, req.Patterns)
	}
	if err != nil {
		if errors.Is(err, lockfile.ErrTimeout) {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	typ := core.EventReservationReleased
	if renew {
		typ = core.EventReservationRenewed
	}
	if count > 0 {
		s.emit(typ, project, req.Agent, strings.Join(req.Patterns, " "), "")
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"count": count})
}
