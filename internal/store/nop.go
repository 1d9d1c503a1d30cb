package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/product-compare/internal/model"
)

// Nop is a Store that hands out IDs and remembers nothing.
type Nop struct{}

// NewNop returns a Nop store.
func NewNop() *Nop { return &Nop{} }

func (Nop) CreateRun(_ context.Context, query string) (*model.Run, error) {
	now := time.Now().UTC()
	return &model.Run{ID: uuid.New().String(), Query: query, Status: model.RunStatusRunning, CreatedAt: now, UpdatedAt: now}, nil
}

func (Nop) FinishRun(context.Context, *model.Run) error { return nil }

func (Nop) GetRun(context.Context, string) (*model.Run, error) { return nil, ErrNotFound }

func (Nop) ListRuns(context.Context, RunFilter) ([]model.Run, error) { return nil, nil }

func (Nop) CreatePhase(_ context.Context, runID, name string) (*model.RunPhase, error) {
	return &model.RunPhase{ID: uuid.New().String(), RunID: runID, Name: name, Status: model.PhaseStatusRunning, StartedAt: time.Now().UTC()}, nil
}

func (Nop) CompletePhase(context.Context, *model.RunPhase) error { return nil }

func (Nop) Migrate(context.Context) error { return nil }

func (Nop) Close() error { return nil }
