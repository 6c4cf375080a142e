package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwiz/internal/domain/knowledge"
)

func retentionPolicy() knowledge.RetentionPolicy {
	windows := map[knowledge.Category]time.Duration{
		knowledge.CategoryMarketData:  30 * 24 * time.Hour,
		knowledge.CategoryFundamental: 90 * 24 * time.Hour,
		knowledge.CategoryRisk:        60 * 24 * time.Hour,
		knowledge.CategoryStrategy:    120 * 24 * time.Hour,
		knowledge.CategoryReport:      180 * 24 * time.Hour,
	}
	return func(c knowledge.Category) time.Duration { return windows[c] }
}

func entry(asset string, category knowledge.Category, age time.Duration) *knowledge.Entry {
	return &knowledge.Entry{
		Asset:      asset,
		Source:     "test",
		Category:   category,
		Content:    "analysis of " + asset,
		Confidence: 0.9,
		Timestamp:  time.Now().Add(-age),
	}
}

func TestKnowledgeStore_PutAssignsMonotonicIDs(t *testing.T) {
	store := NewKnowledgeStore(retentionPolicy())
	ctx := context.Background()

	id1, err := store.Put(ctx, entry("AAPL", knowledge.CategoryMarketData, 0))
	require.NoError(t, err)
	id2, err := store.Put(ctx, entry("MSFT", knowledge.CategoryMarketData, 0))
	require.NoError(t, err)

	assert.Greater(t, id2, id1)
}

func TestKnowledgeStore_ConcurrentPuts(t *testing.T) {
	store := NewKnowledgeStore(retentionPolicy())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Put(ctx, entry("BTC", knowledge.CategoryMarketData, 0))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := store.Query(ctx, knowledge.Filter{Asset: "BTC", Limit: 100})
	require.NoError(t, err)
	assert.Len(t, entries, 50)

	// Ids are unique.
	seen := make(map[int64]bool)
	for _, e := range entries {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
	}
}

func TestKnowledgeStore_QueryFilters(t *testing.T) {
	store := NewKnowledgeStore(retentionPolicy())
	ctx := context.Background()

	_, _ = store.Put(ctx, entry("AAPL", knowledge.CategoryMarketData, time.Hour))
	_, _ = store.Put(ctx, entry("AAPL", knowledge.CategoryFundamental, time.Hour))
	_, _ = store.Put(ctx, entry("MSFT", knowledge.CategoryMarketData, time.Hour))

	byAsset, err := store.Query(ctx, knowledge.Filter{Asset: "AAPL"})
	require.NoError(t, err)
	assert.Len(t, byAsset, 2)

	byCategory, err := store.Query(ctx, knowledge.Filter{Category: knowledge.CategoryFundamental})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "AAPL", byCategory[0].Asset)

	since, err := store.Query(ctx, knowledge.Filter{Since: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	assert.Empty(t, since)
}

func TestKnowledgeStore_TextQueryRanksByOverlapThenRecency(t *testing.T) {
	store := NewKnowledgeStore(retentionPolicy())
	ctx := context.Background()

	older := entry("AAPL", knowledge.CategoryFundamental, 48*time.Hour)
	older.Content = "strong revenue growth and services expansion"
	newer := entry("AAPL", knowledge.CategoryFundamental, time.Hour)
	newer.Content = "strong revenue growth and services expansion"
	unrelated := entry("AAPL", knowledge.CategoryFundamental, time.Hour)
	unrelated.Content = "dividend payout unchanged"

	_, _ = store.Put(ctx, older)
	_, _ = store.Put(ctx, newer)
	_, _ = store.Put(ctx, unrelated)

	results, err := store.Query(ctx, knowledge.Filter{Text: "revenue growth"})
	require.NoError(t, err)
	require.Len(t, results, 2, "entries with no token overlap are excluded")
	assert.Equal(t, newer.Content, results[0].Content)
	assert.True(t, results[0].Timestamp.After(results[1].Timestamp))
}

func TestKnowledgeStore_RetentionExcludesExpiredEntries(t *testing.T) {
	store := NewKnowledgeStore(retentionPolicy())
	ctx := context.Background()

	// 31 days old with a 30-day market data window.
	expired := entry("TSLA", knowledge.CategoryMarketData, 31*24*time.Hour)
	fresh := entry("TSLA", knowledge.CategoryMarketData, 29*24*time.Hour)

	_, _ = store.Put(ctx, expired)
	_, _ = store.Put(ctx, fresh)

	results, err := store.Query(ctx, knowledge.Filter{Asset: "TSLA"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, fresh.Content, results[0].Content)
}

func TestKnowledgeStore_EvergreenSurvivesRetentionAndPrune(t *testing.T) {
	store := NewKnowledgeStore(retentionPolicy())
	ctx := context.Background()

	old := entry("GLOSSARY", knowledge.CategoryFundamental, 365*24*time.Hour)
	old.Evergreen = true
	_, _ = store.Put(ctx, old)

	pruned, err := store.Prune(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, pruned)

	results, err := store.Query(ctx, knowledge.Filter{Asset: "GLOSSARY"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestKnowledgeStore_PruneSoftDeletesAndIsIdempotent(t *testing.T) {
	store := NewKnowledgeStore(retentionPolicy())
	ctx := context.Background()

	_, _ = store.Put(ctx, entry("TSLA", knowledge.CategoryMarketData, 31*24*time.Hour))
	_, _ = store.Put(ctx, entry("TSLA", knowledge.CategoryMarketData, time.Hour))

	now := time.Now()
	first, err := store.Prune(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first)

	second, err := store.Prune(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, second, "second sweep with no intervening put prunes nothing")

	results, err := store.Query(ctx, knowledge.Filter{Asset: "TSLA"})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// Soft delete keeps the row for audit.
	assert.Equal(t, 2, store.Len())
}
