package flow

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwiz/internal/adapters/redis"
	"finwiz/internal/crew"
	"finwiz/internal/crews"
	"finwiz/internal/domain/knowledge"
	"finwiz/internal/report"
	"finwiz/internal/repository/memory"
	redisrepo "finwiz/internal/repository/redis"
	"finwiz/pkg/errors"
	"finwiz/pkg/logger"
	"finwiz/pkg/templates"
)

func init() {
	_ = logger.Init("error", "test")
}

// scriptedInvoker fabricates one-line conclusions and records what it saw.
type scriptedInvoker struct {
	mu        sync.Mutex
	failCrews map[string]bool
	calls     map[string]int
	tasks     map[string]crew.TaskDescriptor
}

func newScriptedInvoker(failCrews ...string) *scriptedInvoker {
	failed := make(map[string]bool, len(failCrews))
	for _, name := range failCrews {
		failed[name] = true
	}
	return &scriptedInvoker{
		failCrews: failed,
		calls:     make(map[string]int),
		tasks:     make(map[string]crew.TaskDescriptor),
	}
}

func (s *scriptedInvoker) Invoke(ctx context.Context, task crew.TaskDescriptor, input crew.Input) (string, error) {
	key := input.Crew + "/" + task.ID

	s.mu.Lock()
	s.calls[key]++
	s.tasks[key] = task
	s.mu.Unlock()

	if s.failCrews[input.Crew] {
		return "", errors.Wrap(errors.ErrTool, "scripted failure")
	}
	return key + " conclusion", nil
}

func (s *scriptedInvoker) callCount(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for key, n := range s.calls {
		if strings.HasPrefix(key, prefix) {
			total += n
		}
	}
	return total
}

func newTestFlow(t *testing.T, invoker crew.Invoker, opts Options) (*Flow, *knowledge.Service) {
	t.Helper()

	store := memory.NewKnowledgeStore(func(knowledge.Category) time.Duration { return 30 * 24 * time.Hour })
	svc := knowledge.NewService(store)
	coord := crew.NewCoordinator(invoker, svc, crew.Config{
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
		TaskTimeout:  time.Second,
	})

	defs, err := crews.LoadAll()
	require.NoError(t, err)

	f, err := New(coord, defs, opts)
	require.NoError(t, err)
	return f, svc
}

func TestKickoffRunsResearchThenReport(t *testing.T) {
	invoker := newScriptedInvoker()
	dir := t.TempDir()
	f, svc := newTestFlow(t, invoker, Options{})
	f.renderer = report.NewRenderer(templates.Get(), svc, dir)

	result, err := f.Kickoff(context.Background(), "AAPL")
	require.NoError(t, err)

	require.Len(t, result.Research, 3)
	for _, name := range []string{"stock", "etf", "crypto"} {
		res := result.Research[name]
		require.NoError(t, res.Err)
		assert.NotEmpty(t, res.Final)
	}

	assert.Equal(t, "report/investment_report conclusion", result.Final)

	// the report crew's integration task saw every research conclusion
	integration := invoker.tasks["report/financial_integration"]
	assert.Contains(t, integration.Description, "stock/research_synthesis conclusion")
	assert.Contains(t, integration.Description, "etf/research_synthesis conclusion")
	assert.Contains(t, integration.Description, "crypto/final_report conclusion")

	require.NotEmpty(t, result.ReportPath)
	content, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "report/investment_report conclusion")
}

func TestKickoffToleratesOneFailedResearchCrew(t *testing.T) {
	invoker := newScriptedInvoker("crypto")
	f, _ := newTestFlow(t, invoker, Options{})

	result, err := f.Kickoff(context.Background(), "BTC")
	require.NoError(t, err)

	assert.Error(t, result.Research["crypto"].Err)
	require.NoError(t, result.Research["stock"].Err)
	assert.Equal(t, "report/investment_report conclusion", result.Final)

	integration := invoker.tasks["report/financial_integration"]
	assert.Contains(t, integration.Description, "crypto research\nunavailable")
}

func TestKickoffFailsWithoutAnyConclusion(t *testing.T) {
	invoker := newScriptedInvoker("stock", "etf", "crypto")
	f, _ := newTestFlow(t, invoker, Options{})

	result, err := f.Kickoff(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Nil(t, result.ReportRun)
	assert.Equal(t, 0, invoker.callCount("report/"))
}

func TestKickoffRejectsEmptyAsset(t *testing.T) {
	f, _ := newTestFlow(t, newScriptedInvoker(), Options{})

	_, err := f.Kickoff(context.Background(), "  ")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestKickoffReusesCachedResearchRun(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	cache := redisrepo.NewRunCache(client, time.Hour)

	require.NoError(t, cache.Put(context.Background(), &redisrepo.CachedRun{
		RunID: "cached-run",
		Crew:  "stock",
		Asset: "AAPL",
		Final: "cached stock conclusion",
	}))

	invoker := newScriptedInvoker()
	f, _ := newTestFlow(t, invoker, Options{Cache: cache})

	result, err := f.Kickoff(context.Background(), "AAPL")
	require.NoError(t, err)

	stock := result.Research["stock"]
	assert.True(t, stock.Cached)
	assert.Equal(t, "cached stock conclusion", stock.Final)
	assert.Equal(t, 0, invoker.callCount("stock/"))

	// the other crews still executed today
	assert.Greater(t, invoker.callCount("etf/"), 0)

	integration := invoker.tasks["report/financial_integration"]
	assert.Contains(t, integration.Description, "cached stock conclusion")
}
