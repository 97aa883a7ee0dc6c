package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/alliance-stats/internal/engine"
	"github.com/DoyleJ11/alliance-stats/internal/hub"
	"github.com/DoyleJ11/alliance-stats/internal/logging"
	"github.com/DoyleJ11/alliance-stats/internal/render"
	"github.com/DoyleJ11/alliance-stats/internal/session"
	"github.com/DoyleJ11/alliance-stats/internal/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

type Options struct {
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	Logger       logging.Logger
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("session")
		if id == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}

		s, err := h.Get(r.Context(), id)
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		if s == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := opts.Logger.With("session", id, "client", clientID)

		out := make(chan session.Update, 8)
		if !post(s, session.Join{ClientID: clientID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		defer post(s, session.Leave{ClientID: clientID})
		log.Info(r.Context(), "client connected")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			write := func(ctx context.Context, msg types.ServerMessage) error {
				return wsjson.Write(ctx, conn, msg)
			}
			if err := pump(writeCtx, s.Done(), out, write, opts.WriteTimeout, log); err != nil {
				log.Warn(writeCtx, "write update", "error", err)
				return
			}
			// The session dropped us or stopped.
			conn.Close(websocket.StatusGoingAway, "session closed")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), opts.ReadTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info(r.Context(), "client disconnected")
				default:
					log.Debug(r.Context(), "read failed", "error", err)
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = wsjson.Write(r.Context(), conn, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}

			cmd, ok := toEngineCommand(cm)
			if !ok {
				_ = wsjson.Write(r.Context(), conn, types.ServerMessage{Type: "Error", Error: "unknown type"})
				continue
			}

			if !post(s, session.FromClient{ClientID: clientID, Cmd: cmd}) {
				return
			}
		}
	}
}

// pump forwards updates from out to write until out is closed, the session
// stops or ctx ends. Only a failed write is reported as an error.
func pump(
	ctx context.Context,
	done <-chan struct{},
	out <-chan session.Update,
	write func(context.Context, types.ServerMessage) error,
	timeout time.Duration,
	log logging.Logger,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case u, ok := <-out:
			if !ok {
				return nil
			}
			msg, err := toServerMessage(u)
			if err != nil {
				log.Error(ctx, "render update", "error", err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err = write(wctx, msg)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

// post delivers msg unless the session has already stopped.
func post(s *session.Session, msg session.Msg) bool {
	// select picks randomly among ready cases; a stopped session must win.
	select {
	case <-s.Done():
		return false
	default:
	}
	select {
	case s.Inbox() <- msg:
		return true
	case <-s.Done():
		return false
	}
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "Sort":
		// unknown columns are rejected by the engine
		return engine.Command{Type: engine.CmdSort, Column: engine.Column(m.Column)}, true
	case "OpenHistory":
		return engine.Command{Type: engine.CmdOpenHistory, EntityID: m.ID}, true
	case "CloseHistory":
		return engine.Command{Type: engine.CmdCloseHistory}, true
	case "EditUser":
		return engine.Command{Type: engine.CmdEditUser, EntityID: m.ID}, true
	default:
		return engine.Command{}, false
	}
}

// toServerMessage renders u for the page: table rows and modal body are sent
// as ready-made HTML fragments.
func toServerMessage(u session.Update) (types.ServerMessage, error) {
	switch u.Kind {
	case session.KindAlert:
		return types.ServerMessage{Type: string(u.Kind), Message: u.Message}, nil
	case session.KindError:
		return types.ServerMessage{Type: string(u.Kind), Error: u.Message}, nil
	}

	table, err := render.TableHTML(u.State.User, u.State.Rows)
	if err != nil {
		return types.ServerMessage{}, err
	}
	modal, err := render.ModalHTML(u.State.Modal)
	if err != nil {
		return types.ServerMessage{}, err
	}
	sort := u.State.Sort
	return types.ServerMessage{
		Type:      string(session.KindSnapshot),
		Version:   u.Version,
		TableHTML: table,
		Modal:     &types.ModalView{Visible: u.State.Modal.Visible, HTML: modal},
		Sort:      &sort,
	}, nil
}
