package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/DoyleJ11/alliance-stats/internal/engine"
	"github.com/DoyleJ11/alliance-stats/internal/identity"
	"github.com/DoyleJ11/alliance-stats/internal/render"
	"github.com/DoyleJ11/alliance-stats/internal/session"
	"github.com/DoyleJ11/alliance-stats/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// newSession registers a session for the request's user, seeded with fresh rows.
func newSession(ctx context.Context, d Deps) (*session.Session, error) {
	var rows []engine.Row
	if d.Seed != nil {
		rows = d.Seed()
	}
	user := identity.FromContext(ctx)
	s, err := d.Hub.Create(ctx, uuid.NewString(), engine.NewState(user, rows))
	if err != nil {
		return nil, err
	}
	d.Logger.Info(ctx, "session created", "session", s.ID(), "user", userID(user))
	return s, nil
}

func userID(u *engine.User) any {
	if u == nil {
		return "anonymous"
	}
	return u.ID
}

func viewOf(ctx context.Context, s *session.Session) (session.View, error) {
	reply := make(chan session.View, 1)
	select {
	case s.Inbox() <- session.GetState{Reply: reply}:
	case <-s.Done():
		return session.View{}, context.Canceled
	case <-ctx.Done():
		return session.View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.Done():
		return session.View{}, context.Canceled
	case <-ctx.Done():
		return session.View{}, ctx.Err()
	}
}

// Index starts a session and serves the stats page bound to it.
func Index(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := newSession(r.Context(), d)
		if err != nil {
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}
		v, err := viewOf(r.Context(), s)
		if err != nil {
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		if err := render.Page(&buf, render.NewPageData(s.ID(), v.State)); err != nil {
			d.Logger.Error(r.Context(), "render page", "error", err)
			http.Error(w, "failed to render page", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = buf.WriteTo(w)
	}
}

func CreateSession(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := newSession(r.Context(), d)
		if err != nil {
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, types.SessionCreated{ID: s.ID()})
	}
}

func GetSession(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Hub.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		if s == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		v, err := viewOf(r.Context(), s)
		if err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// GetHistory returns the history of one entity straight from the source.
func GetHistory(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Hub.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil || s == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		entityID, err := strconv.Atoi(chi.URLParam(r, "entityID"))
		if err != nil {
			http.Error(w, "bad entity id", http.StatusBadRequest)
			return
		}
		if d.History == nil {
			d.Logger.Error(r.Context(), session.ErrNoHistorySource.Error(), "entity", entityID)
			http.Error(w, session.ErrNoHistorySource.Error(), http.StatusServiceUnavailable)
			return
		}

		entries, err := d.History.History(r.Context(), entityID)
		if err != nil {
			d.Logger.Error(r.Context(), "history lookup failed", "entity", entityID, "error", err)
			http.Error(w, "failed to load history", http.StatusBadGateway)
			return
		}
		if entries == nil {
			entries = []engine.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
