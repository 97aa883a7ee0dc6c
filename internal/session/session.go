// Package session runs one actor per open stats page. The actor owns the
// page's engine.State; clients and history fetches talk to it through its
// inbox only.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/alliance-stats/internal/engine"
	"github.com/DoyleJ11/alliance-stats/internal/history"
	"github.com/DoyleJ11/alliance-stats/internal/logging"
)

type Msg interface{ isSessionMsg() }

type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

func (FromClient) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Update // where this client wants to receive updates
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// historyResult is posted by the fetch goroutine when a lookup finishes.
type historyResult struct {
	seq     uint64
	entries []engine.HistoryEntry
	err     error
}

func (historyResult) isSessionMsg() {}

type UpdateKind string

const (
	KindSnapshot UpdateKind = "StateSnapshot"
	KindAlert    UpdateKind = "Alert"
	KindError    UpdateKind = "Error"
)

// Update is what a client receives. Snapshots carry Version and State,
// alerts and errors carry Message. States are never modified after they are
// published, so receivers may read them without copying.
type Update struct {
	Kind    UpdateKind
	Version int
	State   engine.State
	Message string
}

type View struct {
	ID         string       `json:"id"`
	Version    int          `json:"version"`
	NumClients int          `json:"clients"`
	State      engine.State `json:"state"`
}

var ErrNoHistorySource = errors.New("history source is not configured")

type Options struct {
	History     history.Source
	Logger      logging.Logger
	IdleTimeout time.Duration // 0 disables idle shutdown
	OnIdle      func()        // called from the session goroutine after an idle shutdown
}

type Session struct {
	id      string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Update

	history     history.Source
	log         logging.Logger
	idleTimeout time.Duration
	idle        *time.Timer
	onIdle      func()

	fetchCancel context.CancelFunc
	fetchClient string

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, id string, initial engine.State, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)

	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}

	s := &Session{
		id:          id,
		inbox:       make(chan Msg, 64),
		state:       initial,
		clients:     make(map[string]chan Update),
		history:     opts.History,
		log:         log.With("session", id),
		idleTimeout: opts.IdleTimeout,
		onIdle:      opts.OnIdle,
		ctx:         ctx,
		cancel:      cancel,
	}

	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

// Inbox exposes the inbox so the websocket layer and tests can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) loop() {
	var idleC <-chan time.Time
	if s.idleTimeout > 0 {
		s.idle = time.NewTimer(s.idleTimeout)
		defer s.idle.Stop()
		idleC = s.idle.C
	}

	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case <-idleC:
			if len(s.clients) > 0 {
				break
			}
			s.log.Info(s.ctx, "session idle, shutting down", "idle_timeout", s.idleTimeout)
			s.shutdown()
			if s.onIdle != nil {
				s.onIdle()
			}
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				s.stopIdle()
				deliver(msg.Outbox, s.snapshot())

			case Leave:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}
				if len(s.clients) == 0 {
					s.armIdle()
				}

			case FromClient:
				s.handle(msg.ClientID, msg.Cmd)

			case historyResult:
				cmd := engine.Command{Type: engine.CmdHistoryLoaded, Seq: msg.seq, Entries: msg.entries}
				if msg.err != nil {
					cmd = engine.Command{Type: engine.CmdHistoryFailed, Seq: msg.seq, Err: msg.err}
				}
				s.handle(s.fetchClient, cmd)

			case GetState:
				msg.Reply <- View{
					ID:         s.id,
					Version:    s.version,
					NumClients: len(s.clients),
					State:      s.state,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// handle applies cmd on behalf of clientID, runs the side effects of the
// resulting events and publishes the new state.
func (s *Session) handle(clientID string, cmd engine.Command) {
	if cmd.Type == engine.CmdOpenHistory && s.history == nil {
		s.log.Error(s.ctx, ErrNoHistorySource.Error(), "entity", cmd.EntityID)
		return
	}

	events, newState, err := engine.Apply(s.state, cmd)
	if err != nil {
		s.log.Warn(s.ctx, "command rejected", "client", clientID, "command", cmd.Type, "error", err)
		s.sendTo(clientID, Update{Kind: KindError, Message: err.Error()})
		return
	}
	s.state = newState
	if len(events) == 0 {
		return
	}
	s.version++

	var alerts []Update
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtSorted:
			s.log.Info(s.ctx, "sorted", "column", ev.Column, "direction", ev.Direction)

		case engine.EvtHistoryRequested:
			s.log.Info(s.ctx, "history requested", "entity", ev.EntityID, "seq", ev.Seq)
			s.startFetch(clientID, ev.Seq, ev.EntityID)

		case engine.EvtHistoryLoaded:
			s.stopFetch()

		case engine.EvtHistoryFailed:
			s.log.Error(s.ctx, "history fetch failed", "entity", ev.EntityID, "seq", ev.Seq, "error", s.state.Modal.Err)
			alerts = append(alerts, Update{Kind: KindAlert, Message: ev.Message})
			s.stopFetch()

		case engine.EvtHistoryClosed:
			s.stopFetch()

		case engine.EvtEditRequested:
			s.log.Info(s.ctx, "edit requested", "client", clientID, "entity", ev.EntityID)
			alerts = append(alerts, Update{Kind: KindAlert, Message: ev.Message})
		}
	}

	s.broadcast(s.snapshot())
	for _, a := range alerts {
		s.sendTo(clientID, a)
	}
}

// startFetch cancels any lookup still in flight and starts a new one.
func (s *Session) startFetch(clientID string, seq uint64, entityID int) {
	s.stopFetch()

	ctx, cancel := context.WithCancel(s.ctx)
	s.fetchCancel = cancel
	s.fetchClient = clientID

	go func() {
		entries, err := s.history.History(ctx, entityID)
		if ctx.Err() != nil {
			return // superseded or closed
		}
		select {
		case s.inbox <- historyResult{seq: seq, entries: entries, err: err}:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Session) stopFetch() {
	if s.fetchCancel != nil {
		s.fetchCancel()
		s.fetchCancel = nil
	}
}

func (s *Session) snapshot() Update {
	return Update{Kind: KindSnapshot, Version: s.version, State: s.state}
}

func (s *Session) armIdle() {
	if s.idle != nil {
		s.idle.Reset(s.idleTimeout)
	}
}

func (s *Session) stopIdle() {
	if s.idle != nil {
		s.idle.Stop()
	}
}

func (s *Session) shutdown() {
	s.stopFetch()
	for id, ch := range s.clients {
		close(ch) // Tell client no more updates
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(u Update) {
	for id, ch := range s.clients {
		if !deliver(ch, u) {
			// Client is slow/full - drop them.
			s.log.Warn(s.ctx, "dropping slow client", "client", id)
			close(ch)
			delete(s.clients, id)
		}
	}
}

// sendTo delivers u to one client; an unknown client id falls back to everyone.
func (s *Session) sendTo(clientID string, u Update) {
	ch, ok := s.clients[clientID]
	if !ok {
		s.broadcast(u)
		return
	}
	if !deliver(ch, u) {
		close(ch)
		delete(s.clients, clientID)
	}
}

func deliver(ch chan Update, u Update) bool {
	select {
	case ch <- u:
		return true
	default:
		return false
	}
}
