package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwiz/pkg/errors"
)

type stubRepo struct {
	put   *Entry
	putID int64
}

func (s *stubRepo) Put(ctx context.Context, entry *Entry) (int64, error) {
	s.put = entry
	s.putID++
	return s.putID, nil
}

func (s *stubRepo) Query(ctx context.Context, filter Filter) ([]*Entry, error) {
	return nil, nil
}

func (s *stubRepo) Prune(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func TestService_PutValidEntry(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	id, err := svc.Put(context.Background(), &Entry{
		Asset:      "AAPL",
		Source:     "screener",
		Category:   CategoryMarketData,
		Content:    "quote snapshot",
		Confidence: 0.8,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
	assert.False(t, repo.put.Timestamp.IsZero(), "missing timestamp defaults to now")
}

func TestService_PutRejectsMalformedEntries(t *testing.T) {
	svc := NewService(&stubRepo{})
	ctx := context.Background()

	cases := []struct {
		name  string
		entry *Entry
		field string
	}{
		{"nil entry", nil, "entry"},
		{"empty asset", &Entry{Category: CategoryRisk, Confidence: 0.5}, "asset"},
		{"bad category", &Entry{Asset: "AAPL", Category: "gossip", Confidence: 0.5}, "category"},
		{"confidence above one", &Entry{Asset: "AAPL", Category: CategoryRisk, Confidence: 1.5}, "confidence"},
		{"future timestamp", &Entry{
			Asset: "AAPL", Category: CategoryRisk, Confidence: 0.5,
			Timestamp: time.Now().Add(time.Hour),
		}, "timestamp"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Put(ctx, tc.entry)
			require.Error(t, err)

			var vErr *errors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestService_EmptyQueryResultIsNotAnError(t *testing.T) {
	svc := NewService(&stubRepo{})

	entries, err := svc.Query(context.Background(), Filter{Asset: "UNKNOWN"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type stubEmbedder struct {
	calls int
	err   error
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func TestService_PutEmbedsContent(t *testing.T) {
	repo := &stubRepo{}
	embed := &stubEmbedder{}
	svc := NewService(repo).WithEmbedder(embed)

	_, err := svc.Put(context.Background(), &Entry{
		Asset:      "AAPL",
		Category:   CategoryMarketData,
		Content:    "quote snapshot",
		Confidence: 0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, embed.calls)
	assert.Len(t, repo.put.Embedding.Slice(), 3)
}

func TestService_PutSurvivesEmbeddingFailure(t *testing.T) {
	repo := &stubRepo{}
	embed := &stubEmbedder{err: errors.ErrExternal}
	svc := NewService(repo).WithEmbedder(embed)

	_, err := svc.Put(context.Background(), &Entry{
		Asset:      "AAPL",
		Category:   CategoryMarketData,
		Content:    "quote snapshot",
		Confidence: 0.8,
	})
	require.NoError(t, err)
	assert.Empty(t, repo.put.Embedding.Slice())
}

func TestService_QueryEmbedsText(t *testing.T) {
	repo := &stubRepo{}
	embed := &stubEmbedder{}
	svc := NewService(repo).WithEmbedder(embed)

	_, err := svc.Query(context.Background(), Filter{Asset: "AAPL", Text: "valuation risk"})
	require.NoError(t, err)
	assert.Equal(t, 1, embed.calls)

	// No text, nothing to embed.
	_, err = svc.Query(context.Background(), Filter{Asset: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 1, embed.calls)
}
