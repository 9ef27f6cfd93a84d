package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mistakeknot/agentmail/internal/auth"
	"github.com/mistakeknot/agentmail/internal/config"
	"github.com/mistakeknot/agentmail/internal/storage"
)

func TestAPIKeyProjectEnforcement(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	svc := NewService(cfg, storage.NewInMemory())
	ring := auth.NewKeyring(true, map[string]string{"secret": "proj-a"})
	h := NewRouter(svc, nil, auth.Middleware(ring))

	claim := func(payload map[string]any) *httptest.ResponseRecorder {
		buf, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/api/reservations", bytes.NewReader(buf))
		req.RemoteAddr = "203.0.113.10:9999"
		req.Header.Set("Authorization", "Bearer secret")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := claim(map[string]any{"agent": "a", "patterns": []string{"src/**"}, "project": "proj-b"}); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for project mismatch, got %d", rr.Code)
	}
	if rr := claim(map[string]any{"agent": "a", "patterns": []string{"src/**"}, "project": "proj-a"}); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for project match, got %d", rr.Code)
	}
	// API-key callers default to their own project.
	if rr := claim(map[string]any{"agent": "a", "patterns": []string{"docs/**"}}); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for implied project, got %d", rr.Code)
	}

	// Listing another project is refused too.
	req := httptest.NewRequest(http.MethodGet, "/api/reservations?project=proj-b", nil)
	req.RemoteAddr = "203.0.113.10:9999"
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cross-project list, got %d", rr.Code)
	}

	// No key at all from a non-local address is unauthorized outright.
	req = httptest.NewRequest(http.MethodGet, "/api/reservations?project=proj-a", nil)
	req.RemoteAddr = "203.0.113.10:9999"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rr.Code)
	}
}
