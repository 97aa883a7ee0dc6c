// Package history provides the data source behind the history modal.
package history

import (
	"context"
	"slices"
	"time"

	"github.com/DoyleJ11/alliance-stats/internal/engine"
)

// Source returns the history of an entity, oldest entry first.
type Source interface {
	History(ctx context.Context, entityID int) ([]engine.HistoryEntry, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context, entityID int) ([]engine.HistoryEntry, error)

func (f SourceFunc) History(ctx context.Context, entityID int) ([]engine.HistoryEntry, error) {
	return f(ctx, entityID)
}

// Static serves entries from memory. Unknown ids have no history.
type Static map[int][]engine.HistoryEntry

func (s Static) History(ctx context.Context, entityID int) ([]engine.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s[entityID]), nil
}

// Delayed holds every lookup back by a fixed latency before asking the
// wrapped source, the way a network round trip would.
type Delayed struct {
	Source Source
	Delay  time.Duration
}

func (d Delayed) History(ctx context.Context, entityID int) ([]engine.HistoryEntry, error) {
	if d.Delay > 0 {
		t := time.NewTimer(d.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return d.Source.History(ctx, entityID)
}
