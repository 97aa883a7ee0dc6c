// Package app wires the stats server together and runs it until the process
// is told to stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/alliance-stats/internal/config"
	"github.com/DoyleJ11/alliance-stats/internal/history"
	"github.com/DoyleJ11/alliance-stats/internal/httpapi"
	"github.com/DoyleJ11/alliance-stats/internal/hub"
	"github.com/DoyleJ11/alliance-stats/internal/logging"
	"github.com/DoyleJ11/alliance-stats/internal/mock"
	"github.com/DoyleJ11/alliance-stats/internal/session"
	"github.com/DoyleJ11/alliance-stats/internal/ws"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	hub    *hub.Hub
	server *http.Server
	cancel context.CancelFunc
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	devUser, err := c.DevUser()
	if err != nil {
		return nil, err
	}

	src := history.Delayed{Source: mock.History(), Delay: c.HistoryDelay}

	ctx, cancel := context.WithCancel(ctx)
	h := hub.NewHub(ctx, session.Options{
		History:     src,
		Logger:      logger,
		IdleTimeout: c.SessionIdleTimeout,
	})

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:     h,
		Seed:    mock.Rows,
		History: src,
		DevUser: devUser,
		Logger:  logger,
		WS: ws.Options{
			WriteTimeout: c.WriteTimeout,
			ReadTimeout:  c.ReadTimeout,
			Logger:       logger,
		},
	})

	if devUser != nil {
		logger.Warn(ctx, "development identity fallback enabled", "id", devUser.ID, "role", devUser.Role)
	}

	return &App{
		config: c,
		logger: logger,
		hub:    h,
		server: &http.Server{
			Addr:              c.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		cancel: cancel,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (app *App) Handler() http.Handler { return app.server.Handler }

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts the server and all sessions down.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer app.cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info(ctx, "listening", "addr", app.config.HTTPAddr)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		app.logger.Info(context.Background(), "shutting down")
		return app.shutdown()
	})

	return g.Wait()
}

func (app *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	if e := app.server.Shutdown(ctx); e != nil {
		err = multierr.Append(err, fmt.Errorf("http shutdown: %w", e))
	}
	if e := app.hub.Shutdown(ctx); e != nil {
		err = multierr.Append(err, fmt.Errorf("hub shutdown: %w", e))
	}
	return err
}
