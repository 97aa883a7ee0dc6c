package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DoyleJ11/alliance-stats/internal/engine"
	"github.com/DoyleJ11/alliance-stats/internal/history"
	"github.com/DoyleJ11/alliance-stats/internal/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper: receive one update with a timeout so tests never hang
func recvUpdate(t *testing.T, ch <-chan Update, within time.Duration) Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return u
	case <-time.After(within):
		t.Fatalf("timed out waiting for update")
		return Update{} // unreachable
	}
}

func recvNoUpdate(t *testing.T, ch <-chan Update, within time.Duration) {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no update within %v, but got: %+v", within, u)
	case <-time.After(within):
	}
}

func recvView(t *testing.T, s *Session) View {
	t.Helper()
	reply := make(chan View, 1)
	s.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{}
	}
}

func newSession(t *testing.T, user *engine.User, opts Options) (*Session, chan Update) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s := New(ctx, "test", engine.NewState(user, mock.Rows()), opts)
	out := make(chan Update, 8)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}

	first := recvUpdate(t, out, time.Second)
	require.Equal(t, KindSnapshot, first.Kind)
	require.Equal(t, 0, first.Version)
	return s, out
}

func kingdoms(rows []engine.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Kingdom
	}
	return out
}

func TestSession_SortBroadcastsSnapshot(t *testing.T) {
	s, out := newSession(t, nil, Options{})

	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdSort, Column: engine.ColumnKingdom}}

	next := recvUpdate(t, out, time.Second)
	assert.Equal(t, KindSnapshot, next.Kind)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, []string{"K2", "Kingdom 5", "K20", "K100"}, kingdoms(next.State.Rows))
}

func TestSession_RejectedCommandGoesToSender(t *testing.T) {
	s, out := newSession(t, &engine.User{ID: 102, Role: "user"}, Options{})

	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdEditUser, EntityID: 101}}

	u := recvUpdate(t, out, time.Second)
	assert.Equal(t, KindError, u.Kind)
	assert.Contains(t, u.Message, engine.ErrNotPermitted.Error())
	assert.Equal(t, 0, recvView(t, s).Version)
}

func TestSession_EditAlertsSender(t *testing.T) {
	s, out := newSession(t, &engine.User{ID: 102, Role: "user"}, Options{})

	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdEditUser, EntityID: 102}}

	snap := recvUpdate(t, out, time.Second)
	assert.Equal(t, KindSnapshot, snap.Kind)
	alert := recvUpdate(t, out, time.Second)
	assert.Equal(t, KindAlert, alert.Kind)
	assert.Equal(t, "Editing mode opened for User ID: 102", alert.Message)
}

func TestSession_OpenHistoryLoadsAsynchronously(t *testing.T) {
	src := history.Delayed{Source: mock.History(), Delay: 20 * time.Millisecond}
	s, out := newSession(t, nil, Options{History: src})

	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdOpenHistory, EntityID: 101}}

	loading := recvUpdate(t, out, time.Second)
	require.True(t, loading.State.Modal.Visible)
	require.True(t, loading.State.Modal.Loading)

	// other commands are served while the lookup is pending
	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdSort, Column: engine.ColumnName}}
	sorted := recvUpdate(t, out, time.Second)
	assert.Equal(t, engine.ColumnName, sorted.State.Sort.Column)
	assert.True(t, sorted.State.Modal.Loading)

	loaded := recvUpdate(t, out, time.Second)
	assert.False(t, loaded.State.Modal.Loading)
	assert.Len(t, loaded.State.Modal.Entries, 2)
	assert.Equal(t, 101, loaded.State.Modal.EntityID)
}

func TestSession_EmptyHistory(t *testing.T) {
	s, out := newSession(t, nil, Options{History: mock.History()})

	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdOpenHistory, EntityID: 103}}

	recvUpdate(t, out, time.Second) // loading
	loaded := recvUpdate(t, out, time.Second)
	assert.False(t, loaded.State.Modal.Loading)
	assert.Empty(t, loaded.State.Modal.Entries)
	assert.Empty(t, loaded.State.Modal.Err)
}

func TestSession_ReopenSupersedesPendingFetch(t *testing.T) {
	release := make(chan struct{})
	src := history.SourceFunc(func(ctx context.Context, id int) ([]engine.HistoryEntry, error) {
		if id == 101 {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return []engine.HistoryEntry{{Date: "d", Action: "a", Details: "x"}}, nil
	})
	s, out := newSession(t, nil, Options{History: src})

	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdOpenHistory, EntityID: 101}}
	recvUpdate(t, out, time.Second)
	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdOpenHistory, EntityID: 102}}
	recvUpdate(t, out, time.Second)

	loaded := recvUpdate(t, out, time.Second)
	assert.Equal(t, 102, loaded.State.Modal.EntityID)
	assert.False(t, loaded.State.Modal.Loading)

	close(release)
	recvNoUpdate(t, out, 50*time.Millisecond)
}

func TestSession_FetchFailureAlerts(t *testing.T) {
	src := history.SourceFunc(func(ctx context.Context, id int) ([]engine.HistoryEntry, error) {
		return nil, errors.New("upstream down")
	})
	s, out := newSession(t, nil, Options{History: src})

	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdOpenHistory, EntityID: 101}}

	recvUpdate(t, out, time.Second) // loading
	failed := recvUpdate(t, out, time.Second)
	assert.Equal(t, KindSnapshot, failed.Kind)
	assert.Equal(t, "upstream down", failed.State.Modal.Err)

	alert := recvUpdate(t, out, time.Second)
	assert.Equal(t, KindAlert, alert.Kind)
	assert.Equal(t, "Failed to load history. See console for details.", alert.Message)
}

func TestSession_MissingHistorySourceDoesNothing(t *testing.T) {
	s, out := newSession(t, nil, Options{})

	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdOpenHistory, EntityID: 101}}

	recvNoUpdate(t, out, 50*time.Millisecond)
	v := recvView(t, s)
	assert.False(t, v.State.Modal.Visible)
	assert.Equal(t, 0, v.Version)
}

func TestSession_CloseHistoryIsIdempotent(t *testing.T) {
	s, out := newSession(t, nil, Options{History: mock.History()})

	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdCloseHistory}}
	recvNoUpdate(t, out, 50*time.Millisecond)

	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdOpenHistory, EntityID: 101}}
	recvUpdate(t, out, time.Second)
	recvUpdate(t, out, time.Second)
	s.Inbox() <- FromClient{ClientID: "c1", Cmd: engine.Command{Type: engine.CmdCloseHistory}}
	closed := recvUpdate(t, out, time.Second)
	assert.False(t, closed.State.Modal.Visible)
}

func TestSession_LeaveClosesOutbox(t *testing.T) {
	s, out := newSession(t, nil, Options{})

	s.Inbox() <- Leave{ClientID: "c1"}

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatalf("outbox not closed")
	}
	assert.Equal(t, 0, recvView(t, s).NumClients)
}

func TestSession_IdleShutdown(t *testing.T) {
	idle := make(chan struct{})
	s, _ := newSession(t, nil, Options{
		IdleTimeout: 20 * time.Millisecond,
		OnIdle:      func() { close(idle) },
	})

	// a connected client keeps the session alive
	select {
	case <-idle:
		t.Fatalf("session went idle with a client connected")
	case <-time.After(60 * time.Millisecond):
	}

	s.Inbox() <- Leave{ClientID: "c1"}
	select {
	case <-idle:
	case <-time.After(time.Second):
		t.Fatalf("session did not shut down after going idle")
	}
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("session context not cancelled")
	}
}

func TestSession_ShutdownClosesClients(t *testing.T) {
	s, out := newSession(t, nil, Options{})

	s.Inbox() <- Shutdown{}

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatalf("outbox not closed on shutdown")
	}
}
