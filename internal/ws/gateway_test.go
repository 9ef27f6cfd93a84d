package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mistakeknot/agentmail/internal/auth"
	"github.com/mistakeknot/agentmail/internal/config"
	httpapi "github.com/mistakeknot/agentmail/internal/http"
	"github.com/mistakeknot/agentmail/internal/storage"
)

func newServer(t *testing.T, ring *auth.Keyring) (*httptest.Server, *Hub) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	hub := NewHub()
	svc := httpapi.NewService(cfg, storage.NewInMemory()).WithBroadcaster(hub)
	srv := httptest.NewServer(httpapi.NewRouter(svc, hub.Handler(), auth.Middleware(ring)))
	t.Cleanup(srv.Close)
	return srv, hub
}

func dialWS(t *testing.T, srv *httptest.Server, agent, project string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/agents/" + agent + "?project=" + project
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial %s/%s: %v", agent, project, err)
	}
	return conn
}

func claim(t *testing.T, srvURL, project, agent, pattern string) {
	t.Helper()
	payload := map[string]any{"project": project, "agent": agent, "patterns": []string{pattern}}
	buf, _ := json.Marshal(payload)
	resp, err := http.Post(srvURL+"/api/reservations", "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("claim status: %d", resp.StatusCode)
	}
}

func readWSEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var event map[string]any
	if err := wsjson.Read(ctx, conn, &event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return event
}

func TestWSAuthRejection(t *testing.T) {
	ring := auth.NewKeyring(true, map[string]string{"secret-a": "proj-a"})
	srv, _ := newServer(t, ring)

	t.Run("remote IP without bearer rejected", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/ws/agents/agent-a?project=proj-a", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.10")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("bearer with wrong project param rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws/agents/agent-a?project=proj-b", nil)
		req.RemoteAddr = "203.0.113.10:9999"
		req.Header.Set("Authorization", "Bearer secret-a")

		cfg := config.Default()
		cfg.DataDir = t.TempDir()
		hub := NewHub()
		svc := httpapi.NewService(cfg, storage.NewInMemory()).WithBroadcaster(hub)
		router := httpapi.NewRouter(svc, hub.Handler(), auth.Middleware(ring))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for project mismatch, got %d", rr.Code)
		}
	})

	t.Run("localhost accepted without key", func(t *testing.T) {
		conn := dialWS(t, srv, "agent-a", "proj-a")
		conn.Close(websocket.StatusNormalClosure, "")
	})
}

func TestWSReceivesReservationEvents(t *testing.T) {
	srv, _ := newServer(t, nil)

	conn := dialWS(t, srv, "watcher", "proj-a")
	defer conn.Close(websocket.StatusNormalClosure, "")

	claim(t, srv.URL, "proj-a", "Alice", "src/**")

	event := readWSEvent(t, conn, 2*time.Second)
	if event["type"] != "reservation.claimed" {
		t.Fatalf("expected reservation.claimed, got %v", event["type"])
	}
	if event["path_pattern"] != "src/**" || event["agent"] != "Alice" {
		t.Fatalf("event = %v", event)
	}
}

func TestWSProjectIsolation(t *testing.T) {
	srv, _ := newServer(t, nil)

	connA := dialWS(t, srv, "agent-a", "proj-a")
	defer connA.Close(websocket.StatusNormalClosure, "")
	connB := dialWS(t, srv, "agent-b", "proj-b")
	defer connB.Close(websocket.StatusNormalClosure, "")

	claim(t, srv.URL, "proj-a", "Alice", "src/**")

	ev := readWSEvent(t, connA, 2*time.Second)
	if ev["type"] != "reservation.claimed" {
		t.Fatalf("expected reservation.claimed, got %v", ev["type"])
	}

	// The proj-b subscriber must not see a proj-a event.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	var noop map[string]any
	if err := wsjson.Read(ctx, connB, &noop); err == nil {
		t.Fatal("proj-b subscriber received a proj-a event")
	}
}

func TestWSFanoutToAllProjectSubscribers(t *testing.T) {
	srv, _ := newServer(t, nil)

	connA := dialWS(t, srv, "agent-a", "proj-x")
	defer connA.Close(websocket.StatusNormalClosure, "")
	connB := dialWS(t, srv, "agent-b", "proj-x")
	defer connB.Close(websocket.StatusNormalClosure, "")

	claim(t, srv.URL, "proj-x", "Alice", "docs/**")

	for _, conn := range []*websocket.Conn{connA, connB} {
		ev := readWSEvent(t, conn, 2*time.Second)
		if ev["type"] != "reservation.claimed" {
			t.Fatalf("expected reservation.claimed, got %v", ev["type"])
		}
	}
}

func TestWSSubscriptionCleanup(t *testing.T) {
	srv, _ := newServer(t, nil)

	conn := dialWS(t, srv, "agent-temp", "proj-x")
	conn.Close(websocket.StatusNormalClosure, "done")

	time.Sleep(50 * time.Millisecond)

	// Broadcasting after the client left must not panic.
	claim(t, srv.URL, "proj-x", "Alice", "src/**")
}
