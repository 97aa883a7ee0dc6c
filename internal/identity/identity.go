// Package identity reads the host-provided user identity from requests.
//
// The host (a reverse proxy or the embedding site) forwards the signed-in
// user as X-User-Id / X-User-Role / X-User-Name headers. Requests without
// them are anonymous unless a development fallback was configured.
package identity

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/DoyleJ11/alliance-stats/internal/engine"
)

const (
	HeaderID   = "X-User-Id"
	HeaderRole = "X-User-Role"
	HeaderName = "X-User-Name"
)

type ctxKey struct{}

// FromRequest returns the identity carried by r, or fallback when r carries
// none. A malformed id is treated as no identity.
func FromRequest(r *http.Request, fallback *engine.User) *engine.User {
	raw := strings.TrimSpace(r.Header.Get(HeaderID))
	if raw == "" {
		return clone(fallback)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return clone(fallback)
	}
	return &engine.User{
		ID:   id,
		Role: strings.TrimSpace(r.Header.Get(HeaderRole)),
		Name: strings.TrimSpace(r.Header.Get(HeaderName)),
	}
}

// Middleware stores the request identity in the request context.
func Middleware(fallback *engine.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := FromRequest(r, fallback)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), u)))
		})
	}
}

func NewContext(ctx context.Context, u *engine.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the identity stored by Middleware; nil means anonymous.
func FromContext(ctx context.Context) *engine.User {
	u, _ := ctx.Value(ctxKey{}).(*engine.User)
	return u
}

func clone(u *engine.User) *engine.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
