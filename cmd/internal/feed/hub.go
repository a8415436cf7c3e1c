package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity/ids"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/audit"
	v1 "github.com/fFrancko/beneficios-mvp-web/shared/contracts/feed/v1"
)

// Hub fans verification events out to every joined console.
//
// Join/Leave are safe under concurrent Broadcast, and Broadcast never blocks:
// a console whose queue is full misses the event.
type Hub struct {
	log      *slog.Logger
	onChange func(delta int)

	mu      sync.RWMutex
	clients map[string]*Client
}

// HubOption configures the Hub.
type HubOption func(*Hub)

// WithClientGauge is called with +1/-1 as consoles join and leave.
func WithClientGauge(fn func(delta int)) HubOption {
	return func(h *Hub) { h.onChange = fn }
}

// NewHub constructs a Hub.
func NewHub(log *slog.Logger, opts ...HubOption) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{log: log, clients: make(map[string]*Client)}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Join adds a client.
func (h *Hub) Join(client *Client) {
	if h == nil || client == nil || client.SessionID == "" {
		return
	}
	h.mu.Lock()
	_, existed := h.clients[client.SessionID]
	h.clients[client.SessionID] = client
	h.mu.Unlock()

	if !existed && h.onChange != nil {
		h.onChange(1)
	}
	h.log.Info("feed.client.join", "session_id", client.SessionID)
}

// Leave removes a client and then signals its shutdown, in that order, so
// broadcasters never hold a client being torn down.
func (h *Hub) Leave(sessionID string) {
	if h == nil || sessionID == "" {
		return
	}
	h.mu.Lock()
	cl := h.clients[sessionID]
	delete(h.clients, sessionID)
	h.mu.Unlock()

	if cl == nil {
		return
	}
	cl.Close()
	if h.onChange != nil {
		h.onChange(-1)
	}
	h.log.Info("feed.client.leave", "session_id", sessionID)
}

// Len returns the number of joined clients.
func (h *Hub) Len() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers env to all clients without blocking.
func (h *Hub) Broadcast(env v1.Envelope) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case <-c.Done():
			continue
		default:
		}

		select {
		case c.Send <- env:
		default:
			h.log.Debug("feed.drop", "session_id", c.SessionID)
		}
	}
}

// Record implements audit.Recorder by broadcasting the event.
func (h *Hub) Record(_ context.Context, ev audit.Event) error {
	if h.Len() == 0 {
		return nil
	}
	created := ev.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	payload, err := json.Marshal(v1.VerificationPayload{
		EventID:   ev.ID,
		MemberID:  ev.MemberID,
		Valid:     ev.Result == audit.ResultValid,
		Result:    ev.Result,
		Kind:      ev.Kind,
		CreatedAt: created,
	})
	if err != nil {
		return err
	}
	h.Broadcast(newEnvelope(v1.TypeVerification, payload, time.Now().UTC()))
	return nil
}

func newEnvelope(typ string, payload json.RawMessage, ts time.Time) v1.Envelope {
	id, _ := ids.NewULID(ts)
	return v1.Envelope{
		V:       v1.Version,
		Type:    typ,
		ID:      id,
		TS:      ts,
		Payload: payload,
	}
}
