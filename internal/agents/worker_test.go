package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwiz/internal/adapters/ai"
	"finwiz/internal/crew"
	"finwiz/internal/domain/knowledge"
	"finwiz/internal/repository/memory"
	"finwiz/internal/tools"
	"finwiz/pkg/errors"
	"finwiz/pkg/logger"
)

func init() {
	_ = logger.Init("error", "test")
}

type fakeProvider struct {
	lastReq ai.ChatRequest
	reply   string
	err     error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.ChatResponse{Content: f.reply, Model: req.Model}, nil
}

func testTask() crew.TaskDescriptor {
	return crew.TaskDescriptor{
		ID:          "fundamental_evaluation",
		Description: "Evaluate AAPL fundamentals",
		Worker: crew.AgentRef{
			Name:  "fundamental_analyst",
			Role:  "Fundamental Analyst",
			Goal:  "Evaluate AAPL",
			Tools: []string{"yahoo_finance_quote"},
		},
		DependsOn: []string{"market_analysis"},
		Asset:     "AAPL",
		Category:  knowledge.CategoryFundamental,
	}
}

func newTestWorker(provider ai.Provider) (*Worker, *knowledge.Service, *tools.Registry) {
	registry := tools.NewRegistry()
	store := memory.NewKnowledgeStore(func(knowledge.Category) time.Duration { return 30 * 24 * time.Hour })
	svc := knowledge.NewService(store)
	return NewWorker(provider, registry, svc, Config{Model: "test-model"}), svc, registry
}

func TestInvokeAssemblesPrompt(t *testing.T) {
	provider := &fakeProvider{reply: "AAPL looks fairly valued"}
	worker, svc, registry := newTestWorker(provider)
	ctx := context.Background()

	registry.Register(tools.New("yahoo_finance_quote", "", func(ctx context.Context, args map[string]interface{}) (string, error) {
		ticker, err := tools.StringArg(args, "ticker")
		require.NoError(t, err)
		return ticker + ": 187.50 USD", nil
	}))

	_, err := svc.Put(ctx, &knowledge.Entry{
		Asset:      "AAPL",
		Source:     "stock/market_analysis",
		Category:   knowledge.CategoryMarketData,
		Content:    "Tech sector momentum remains positive",
		Confidence: 0.8,
		Timestamp:  time.Now().UTC(),
	})
	require.NoError(t, err)

	out, err := worker.Invoke(ctx, testTask(), crew.Input{
		RunID:   "run-1",
		Crew:    "stock",
		Outputs: map[string]string{"market_analysis": "Semis lead the market"},
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL looks fairly valued", out)

	require.Len(t, provider.lastReq.Messages, 2)
	system := provider.lastReq.Messages[0].Content
	user := provider.lastReq.Messages[1].Content

	assert.Contains(t, system, "Fundamental Analyst")
	assert.Contains(t, user, "Evaluate AAPL fundamentals")
	assert.Contains(t, user, "Semis lead the market")
	assert.Contains(t, user, "187.50 USD")
	assert.Contains(t, user, "Tech sector momentum remains positive")
}

func TestInvokeToolFailureDegradesContext(t *testing.T) {
	provider := &fakeProvider{reply: "analysis without quote data"}
	worker, _, registry := newTestWorker(provider)

	registry.Register(tools.New("yahoo_finance_quote", "", func(ctx context.Context, args map[string]interface{}) (string, error) {
		return "", errors.Wrap(errors.ErrTool, "rate limited")
	}))

	out, err := worker.Invoke(context.Background(), testTask(), crew.Input{Crew: "stock"})
	require.NoError(t, err)
	assert.Equal(t, "analysis without quote data", out)
	assert.Contains(t, provider.lastReq.Messages[1].Content, "unavailable")
}

func TestInvokePropagatesProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.Wrap(errors.ErrExternal, "upstream 500")}
	worker, _, _ := newTestWorker(provider)

	_, err := worker.Invoke(context.Background(), testTask(), crew.Input{Crew: "stock"})
	assert.ErrorIs(t, err, errors.ErrExternal)
}

func TestInvokeRejectsEmptyCompletion(t *testing.T) {
	provider := &fakeProvider{reply: ""}
	worker, _, _ := newTestWorker(provider)

	_, err := worker.Invoke(context.Background(), testTask(), crew.Input{Crew: "stock"})
	assert.ErrorIs(t, err, errors.ErrExternal)
}
