// Package embedded provides an in-process agentmail coordination server,
// for host applications that want the HTTP surface without running a
// separate daemon.
package embedded

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mistakeknot/agentmail/internal/auth"
	"github.com/mistakeknot/agentmail/internal/config"
	httpapi "github.com/mistakeknot/agentmail/internal/http"
	"github.com/mistakeknot/agentmail/internal/storage/sqlite"
	"github.com/mistakeknot/agentmail/internal/ws"
)

// Config configures the embedded server.
type Config struct {
	// DataDir is the coordination data directory.
	// If empty, defaults to ~/.agentmail.
	DataDir string

	// Port is the HTTP port to listen on. If 0, defaults to 7339.
	Port int

	// Host is the host to bind to. If empty, defaults to 127.0.0.1.
	Host string

	// RequireAuth loads a keyring from the environment and enforces API
	// keys for non-localhost callers.
	RequireAuth bool
}

// Server is an embedded coordination server.
type Server struct {
	journal *sqlite.Store
	hub     *ws.Hub
	http    *http.Server
	started bool
	mu      sync.Mutex
}

func New(cfg Config) (*Server, error) {
	base := config.Default()
	if cfg.DataDir != "" {
		base.DataDir = cfg.DataDir
		base.JournalPath = filepath.Join(cfg.DataDir, "journal.db")
	}
	if cfg.Port == 0 {
		cfg.Port = 7339
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	journal, err := sqlite.New(base.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	var mw func(http.Handler) http.Handler
	if cfg.RequireAuth {
		keyring, err := auth.LoadKeyringFromEnv()
		if err != nil {
			journal.Close()
			return nil, fmt.Errorf("load auth: %w", err)
		}
		mw = auth.Middleware(keyring)
	}

	hub := ws.NewHub()
	svc := httpapi.NewService(base, journal).WithBroadcaster(hub)
	router := httpapi.NewRouter(svc, hub.Handler(), mw)

	return &Server{
		journal: journal,
		hub:     hub,
		http: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: router,
		},
	}, nil
}

// Start starts the embedded server in a goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// The host application owns the process; report and carry on.
			fmt.Fprintf(os.Stderr, "agentmail server error: %v\n", err)
		}
	}()

	// Give the listener a moment to come up.
	time.Sleep(50 * time.Millisecond)
	return nil
}

// Stop stops the embedded server gracefully.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.http.Shutdown(ctx)
	s.journal.Close()
	return err
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// URL returns the base URL for the server.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.http.Addr)
}
