// Package hub keeps the registry of live sessions. A single goroutine owns
// the map; everything else goes through Inbox.
package hub

import (
	"context"

	"github.com/DoyleJ11/alliance-stats/internal/engine"
	"github.com/DoyleJ11/alliance-stats/internal/session"
)

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	ID    string
	State engine.State
	Reply chan *session.Session
}

type GetSession struct {
	ID    string
	Reply chan *session.Session
}

type EnsureSession struct {
	ID    string
	State engine.State // only used if creation happens
	Reply chan *session.Session
}

type RemoveSession struct {
	ID string
}

type CountSessions struct {
	Reply chan int
}

type ShutdownHub struct {
	Done chan struct{} // closed once every session was told to stop; may be nil
}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	opts     session.Options
	ctx      context.Context
	cancel   context.CancelFunc
}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (EnsureSession) isHubMsg() {}
func (RemoveSession) isHubMsg() {}
func (CountSessions) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

// NewHub starts the hub. opts is used for every session it creates; OnIdle
// is replaced so idle sessions remove themselves from the hub.
func NewHub(parent context.Context, opts session.Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Get asks the hub for session id; nil when there is none.
func (h *Hub) Get(ctx context.Context, id string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	return h.ask(ctx, GetSession{ID: id, Reply: reply}, reply)
}

// Create registers a new session seeded with state.
func (h *Hub) Create(ctx context.Context, id string, state engine.State) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	return h.ask(ctx, CreateSession{ID: id, State: state, Reply: reply}, reply)
}

func (h *Hub) ask(ctx context.Context, msg HubMsg, reply chan *session.Session) (*session.Session, error) {
	select {
	case h.inbox <- msg:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, context.Canceled
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, context.Canceled
	}
}

// Shutdown stops every session and the hub, waiting at most until ctx ends.
func (h *Hub) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case h.inbox <- ShutdownHub{Done: done}:
	case <-h.ctx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-h.ctx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if s := h.sessions[msg.ID]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.newSession(msg.ID, msg.State)

			case GetSession:
				msg.Reply <- h.sessions[msg.ID] // May be nil

			case EnsureSession:
				if s := h.sessions[msg.ID]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.newSession(msg.ID, msg.State)

			case RemoveSession:
				delete(h.sessions, msg.ID)

			case CountSessions:
				msg.Reply <- len(h.sessions)

			case ShutdownHub:
				for _, s := range h.sessions {
					s.Inbox() <- session.Shutdown{}
				}
				clear(h.sessions)
				h.cancel()
				if msg.Done != nil {
					close(msg.Done)
				}
			}
		}
	}
}

func (h *Hub) newSession(id string, state engine.State) *session.Session {
	opts := h.opts
	opts.OnIdle = func() {
		// The session goroutine calls this; never block it on a busy hub.
		go func() {
			select {
			case h.inbox <- RemoveSession{ID: id}:
			case <-h.ctx.Done():
			}
		}()
	}
	s := session.New(h.ctx, id, state, opts)
	h.sessions[id] = s
	return s
}
