package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/product-compare/internal/cost"
	"github.com/sells-group/product-compare/internal/metrics"
	"github.com/sells-group/product-compare/internal/resilience"
	"github.com/sells-group/product-compare/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*anthropic.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func textResponse(s string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s}},
		Usage:   anthropic.TokenUsage{InputTokens: 50, OutputTokens: 10},
	}
}

func TestAnthropic_Complete(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.MaxTokens == 512 &&
			len(req.Messages) == 1 &&
			req.Messages[0].Content == "prompt"
	})).Return(textResponse("  {\"a\": 1}\n"), nil)

	o := NewAnthropic(client, "claude-haiku-4-5-20251001", 512, WithMetrics(metrics.New()))
	got, err := o.Complete(context.Background(), PhaseExtraction, "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, got)
	client.AssertExpectations(t)
}

func TestAnthropic_RecordsCost(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "ok"}},
		Usage:   anthropic.TokenUsage{InputTokens: 1000000, OutputTokens: 100000},
	}, nil)

	m := metrics.New()
	calc := cost.NewCalculator(cost.Rates{Anthropic: map[string]cost.ModelRate{"local": {Input: 1, Output: 10}}})
	_, err := NewAnthropic(client, "local", 0, WithMetrics(m), WithCost(calc)).Complete(context.Background(), PhaseComparison, "p")
	require.NoError(t, err)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.OracleCost.WithLabelValues(PhaseComparison)), 0.0001)
	assert.InDelta(t, 1000000, testutil.ToFloat64(m.OracleTokens.WithLabelValues("input")), 0)
}

func TestAnthropic_SingleCallByDefault(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("read tcp: connection reset by peer"))

	_, err := NewAnthropic(client, "m", 0).Complete(context.Background(), PhaseExtraction, "p")
	require.Error(t, err)
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestAnthropic_RetriesTransientWhenEnabled(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("read tcp: connection reset by peer")).Once()
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("ok"), nil).Once()

	o := NewAnthropic(client, "m", 0, WithRetry(resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}))
	got, err := o.Complete(context.Background(), PhaseDiscovery, "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	client.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestAnthropic_ErrorWrapsPhase(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("invalid api key"))

	_, err := NewAnthropic(client, "m", 0).Complete(context.Background(), PhaseComparison, "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle: comparison")
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestAnthropic_EmptyResponse(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("   "), nil)

	_, err := NewAnthropic(client, "m", 0).Complete(context.Background(), PhasePreferences, "p")
	assert.Error(t, err)
}

func TestUnavailable(t *testing.T) {
	t.Parallel()
	_, err := Unavailable{}.Complete(context.Background(), PhaseDiscovery, "p")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFunc(t *testing.T) {
	t.Parallel()
	var o Oracle = Func(func(_ context.Context, phase, prompt string) (string, error) {
		return phase + ":" + prompt, nil
	})
	got, err := o.Complete(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.Equal(t, "x:y", got)
}
