package httpapi

import "net/http"

// NewRouter wires the coordination endpoints, optionally wrapping each in an
// auth middleware and mounting a websocket handler for the event stream.
func NewRouter(svc *Service, wsHandler http.Handler, mw func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	wrap := func(h http.HandlerFunc) http.Handler {
		handler := http.Handler(h)
		if mw != nil {
			handler = mw(handler)
		}
		return handler
	}

	mux.Handle("/api/identity", wrap(svc.handleIdentity))
	mux.Handle("/api/reservations", wrap(svc.handleReservations))
	mux.Handle("/api/reservations/renew", wrap(svc.handleRenew))
	mux.Handle("/api/reservations/release", wrap(svc.handleRelease))
	mux.Handle("/api/locks", wrap(svc.handleLocks))
	mux.Handle("/api/events", wrap(svc.handleEvents))

	if wsHandler != nil {
		if mw != nil {
			mux.Handle("/ws/agents/", mw(wsHandler))
		} else {
			mux.Handle("/ws/agents/", wsHandler)
		}
	}

	return mux
}
