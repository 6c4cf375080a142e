package knowledge

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"

	"finwiz/pkg/errors"
	"finwiz/pkg/logger"
)

// Embedder turns text into a vector for similarity ranking. Backends that do
// not rank by vector distance ignore the embedding.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Service validates entries before storage and fronts the repository for the
// crew coordinator and the RAG tools.
type Service struct {
	repo  Repository
	embed Embedder
	log   *logger.Logger
}

// NewService constructs a knowledge service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, log: logger.Get().With("component", "knowledge")}
}

// WithEmbedder attaches an embedder. Entries are embedded on write and query
// text is embedded for similarity ranking. Embedding failures degrade to
// recency ranking instead of failing the operation.
func (s *Service) WithEmbedder(e Embedder) *Service {
	s.embed = e
	return s
}

// Put validates and stores a new entry.
func (s *Service) Put(ctx context.Context, entry *Entry) (int64, error) {
	if entry == nil {
		return 0, errors.NewValidationError("entry", "must not be nil", nil)
	}
	if entry.Asset == "" {
		return 0, errors.NewValidationError("asset", "must not be empty", entry.Asset)
	}
	if !entry.Category.Valid() {
		return 0, errors.NewValidationError("category", "unknown category", entry.Category)
	}
	if entry.Confidence < 0 || entry.Confidence > 1 {
		return 0, errors.NewValidationError("confidence", "must be in [0,1]", entry.Confidence)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Timestamp.After(time.Now()) {
		return 0, errors.NewValidationError("timestamp", "must not be in the future", entry.Timestamp)
	}

	if s.embed != nil && len(entry.Embedding.Slice()) == 0 {
		vec, err := s.embed.GenerateEmbedding(ctx, entry.Content)
		if err != nil {
			s.log.Warnf("Embedding generation failed, storing without vector: %v", err)
		} else {
			entry.Embedding = pgvector.NewVector(vec)
		}
	}

	id, err := s.repo.Put(ctx, entry)
	if err != nil {
		return 0, errors.Wrap(err, "put knowledge entry")
	}

	s.log.Debugf("Stored knowledge entry %d: asset=%s category=%s", id, entry.Asset, entry.Category)
	return id, nil
}

// Query returns entries matching the filter.
func (s *Service) Query(ctx context.Context, filter Filter) ([]*Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	if s.embed != nil && filter.Text != "" && filter.Embedding == nil {
		vec, err := s.embed.GenerateEmbedding(ctx, filter.Text)
		if err != nil {
			s.log.Warnf("Query embedding failed, ranking by recency: %v", err)
		} else {
			v := pgvector.NewVector(vec)
			filter.Embedding = &v
		}
	}

	entries, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "query knowledge")
	}
	return entries, nil
}

// Prune runs a retention sweep.
func (s *Service) Prune(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.repo.Prune(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "prune knowledge")
	}
	if count > 0 {
		s.log.Infof("Pruned %d expired knowledge entries", count)
	}
	return count, nil
}
