package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DoyleJ11/alliance-stats/internal/config"
	"github.com/DoyleJ11/alliance-stats/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.HistoryDelay = 0
	return c
}

func TestNewApp_RejectsBadDevIdentity(t *testing.T) {
	c := testConfig(t)
	c.DevIdentity = "nope"

	_, err := NewApp(context.Background(), c, logging.NewNop())
	require.ErrorIs(t, err, config.ErrInvalidDevIdentity)
}

func TestNewApp_ServesHealthz(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(t), logging.NewNop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c := testConfig(t)
	c.HTTPAddr = addr
	a, err := NewApp(context.Background(), c, logging.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
