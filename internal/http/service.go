// Package httpapi is the operational HTTP surface over the coordination
// core: identity resolution, reservations, lock status, and the journal.
// All state lives in the filesystem stores; handlers stay thin.
package httpapi

import (
	"log"
	"time"

	"github.com/mistakeknot/agentmail/internal/config"
	"github.com/mistakeknot/agentmail/internal/core"
	"github.com/mistakeknot/agentmail/internal/identity"
	"github.com/mistakeknot/agentmail/internal/reservation"
	"github.com/mistakeknot/agentmail/internal/storage"
)

type Service struct {
	cfg          config.Config
	resolver     *identity.Resolver
	reservations *reservation.Store
	journal      storage.Store
	bus          Broadcaster
}

type Broadcaster interface {
	Broadcast(project, agent string, event any)
}

func NewService(cfg config.Config, journal storage.Store) *Service {
	return &Service{
		cfg:          cfg,
		resolver:     identity.NewResolver(cfg),
		reservations: reservation.NewStore(cfg),
		journal:      journal,
	}
}

func (s *Service) WithBroadcaster(b Broadcaster) *Service {
	s.bus = b
	return s
}

// emit records a coordination event in the journal and fans it out to
// connected websocket clients. Journal failures are logged, not propagated:
// the mutation that triggered the event has already happened.
func (s *Service) emit(typ core.EventType, project, agent, pattern, detail string) {
	ev := core.Event{
		Type:        typ,
		Project:     project,
		Agent:       agent,
		PathPattern: pattern,
		Detail:      detail,
		CreatedAt:   time.Now().UTC(),
	}
	if s.journal != nil {
		cursor, err := s.journal.AppendEvent(ev)
		if err != nil {
			log.Printf("journal append %s: %v", typ, err)
		} else {
			ev.Cursor = cursor
		}
	}
	if s.bus != nil {
		s.bus.Broadcast(project, "", ev)
	}
}
