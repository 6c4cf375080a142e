package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwiz/internal/crew"
	"finwiz/internal/domain/knowledge"
	"finwiz/internal/repository/memory"
	"finwiz/pkg/logger"
	"finwiz/pkg/templates"
)

func init() {
	_ = logger.Init("error", "test")
}

func reportRun(t *testing.T, final string) *crew.Run {
	t.Helper()

	run := crew.NewRun("report", []crew.Batch{
		{"financial_integration"},
		{"portfolio_allocation"},
		{"risk_mitigation"},
		{"investment_report"},
	})
	for _, id := range []string{"financial_integration", "portfolio_allocation", "risk_mitigation"} {
		run.Record(&crew.TaskResult{TaskID: id, State: crew.TaskSucceeded, Output: "ok"})
	}
	run.Record(&crew.TaskResult{TaskID: "investment_report", State: crew.TaskSucceeded, Output: final})
	return run
}

func TestRenderIncludesVerdictSectionsAndEvidence(t *testing.T) {
	store := memory.NewKnowledgeStore(func(knowledge.Category) time.Duration { return 30 * 24 * time.Hour })
	svc := knowledge.NewService(store)
	ctx := context.Background()

	_, err := svc.Put(ctx, &knowledge.Entry{
		Asset:      "AAPL",
		Source:     "stock/risk_assessment",
		Category:   knowledge.CategoryRisk,
		Content:    "Concentration in services revenue is the dominant risk",
		Confidence: 0.8,
		Timestamp:  time.Now().UTC(),
	})
	require.NoError(t, err)

	renderer := NewRenderer(templates.Get(), svc, t.TempDir())
	out, err := renderer.Render(ctx, "AAPL", reportRun(t, "Overweight AAPL at 8% of portfolio"), []Section{
		{Title: "stock", Body: "Stock crew thesis"},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "# AAPL Consolidated Investment Report")
	assert.Contains(t, out, "Overweight AAPL at 8% of portfolio")
	assert.Contains(t, out, "Stock crew thesis")
	assert.Contains(t, out, "Concentration in services revenue")
	assert.NotContains(t, out, "Caveats")
}

func TestRenderListsIncompleteTasks(t *testing.T) {
	run := crew.NewRun("report", []crew.Batch{{"risk_mitigation"}, {"investment_report"}})
	run.Record(&crew.TaskResult{TaskID: "risk_mitigation", State: crew.TaskFailed})
	run.Record(&crew.TaskResult{TaskID: "investment_report", State: crew.TaskSucceeded, Output: "partial verdict"})

	renderer := NewRenderer(templates.Get(), nil, t.TempDir())
	out, err := renderer.Render(context.Background(), "BTC", run, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "Caveats")
	assert.Contains(t, out, "risk_mitigation")
}

func TestRenderWithoutFinalOutput(t *testing.T) {
	run := crew.NewRun("report", []crew.Batch{{"investment_report"}})
	run.Record(&crew.TaskResult{TaskID: "investment_report", State: crew.TaskFailed})

	renderer := NewRenderer(templates.Get(), nil, t.TempDir())
	_, err := renderer.Render(context.Background(), "BTC", run, nil)
	assert.Error(t, err)
}

func TestWriteCreatesReportFile(t *testing.T) {
	dir := t.TempDir()
	renderer := NewRenderer(templates.Get(), nil, dir)

	path, err := renderer.Write(context.Background(), "SPY", reportRun(t, "Hold SPY"), nil, "consolidated_investment_report.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "consolidated_investment_report.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Hold SPY")
}
