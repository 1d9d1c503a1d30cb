package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/product-compare/internal/discover"
	"github.com/sells-group/product-compare/internal/enrich"
	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/normalize"
	"github.com/sells-group/product-compare/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) CreateRun(ctx context.Context, query string) (*model.Run, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) FinishRun(ctx context.Context, run *model.Run) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	args := m.Called(ctx, runID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunPhase), args.Error(1)
}

func (m *mockStore) CompletePhase(ctx context.Context, phase *model.RunPhase) error {
	return m.Called(ctx, phase).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockStore) Close() error { return m.Called().Error(0) }

// --- Stage fakes ---

type discoverFunc func(ctx context.Context, query string) discover.Result

func (f discoverFunc) Discover(ctx context.Context, query string) discover.Result { return f(ctx, query) }

type enrichFunc func(ctx context.Context, products []*model.Product) enrich.Stats

func (f enrichFunc) Enrich(ctx context.Context, products []*model.Product) enrich.Stats {
	return f(ctx, products)
}

type normalizeFunc func(ctx context.Context, query string, category model.Category, products []*model.Product) normalize.Result

func (f normalizeFunc) Normalize(ctx context.Context, query string, category model.Category, products []*model.Product) normalize.Result {
	return f(ctx, query, category, products)
}

func twoProducts(context.Context, string) discover.Result {
	return discover.Result{
		Status:   discover.StatusSuccess,
		Category: model.CategorySmartphone,
		Products: []*model.Product{
			{ID: 1, Name: "iPhone 15", Category: model.CategorySmartphone, Price: "₹69,900"},
			{ID: 2, Name: "Galaxy S24", Category: model.CategorySmartphone},
		},
	}
}

func noEnrich(_ context.Context, products []*model.Product) enrich.Stats {
	return enrich.Stats{ProductsProcessed: len(products)}
}

func noNormalize(context.Context, string, model.Category, []*model.Product) normalize.Result {
	return normalize.Result{}
}
