package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"finwiz/internal/domain/knowledge"
)

// Compile-time check that we implement the interface
var _ knowledge.Repository = (*KnowledgeStore)(nil)

// KnowledgeStore is an append-only in-memory knowledge repository.
// It is the default backend for local runs and tests; the postgres backend
// provides the same contract with vector search.
type KnowledgeStore struct {
	mu        sync.RWMutex
	entries   []*knowledge.Entry
	nextID    int64
	retention knowledge.RetentionPolicy
}

// NewKnowledgeStore creates an empty store with the given retention policy.
func NewKnowledgeStore(retention knowledge.RetentionPolicy) *KnowledgeStore {
	return &KnowledgeStore{nextID: 1, retention: retention}
}

// Put appends a new entry and assigns a monotonically increasing id.
func (s *KnowledgeStore) Put(ctx context.Context, entry *knowledge.Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	stored.ID = s.nextID
	s.nextID++
	s.entries = append(s.entries, &stored)

	return stored.ID, nil
}

// Query returns active entries matching the filter, ranked by relevance then
// recency. Entries past their retention window are excluded even before a
// sweep has marked them.
func (s *KnowledgeStore) Query(ctx context.Context, filter knowledge.Filter) ([]*knowledge.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	queryTokens := tokenize(filter.Text)

	type scored struct {
		entry *knowledge.Entry
		score float64
	}

	matches := make([]scored, 0)
	for _, e := range s.entries {
		if !e.Active(now, s.retention(e.Category)) {
			continue
		}
		if filter.Asset != "" && !strings.EqualFold(e.Asset, filter.Asset) {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
			continue
		}

		score := e.Confidence
		if len(queryTokens) > 0 {
			overlap := tokenOverlap(queryTokens, tokenize(e.Content))
			if overlap == 0 {
				continue
			}
			score += overlap
		}

		cp := *e
		matches = append(matches, scored{entry: &cp, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].entry.Timestamp.After(matches[j].entry.Timestamp)
	})

	limit := filter.Limit
	if limit <= 0 || limit > len(matches) {
		limit = len(matches)
	}

	result := make([]*knowledge.Entry, 0, limit)
	for _, m := range matches[:limit] {
		result = append(result, m.entry)
	}

	return result, nil
}

// Prune soft-deletes non-evergreen entries past retention. Idempotent.
func (s *KnowledgeStore) Prune(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned int64
	for _, e := range s.entries {
		if e.PrunedAt != nil || e.Evergreen {
			continue
		}
		if now.Sub(e.Timestamp) > s.retention(e.Category) {
			t := now
			e.PrunedAt = &t
			pruned++
		}
	}

	return pruned, nil
}

// Len returns the total number of stored entries, pruned included.
func (s *KnowledgeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := strings.Trim(field, ".,;:!?()[]\"'")
		if len(token) > 2 {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}

func tokenOverlap(query, content map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	var hits int
	for token := range query {
		if _, ok := content[token]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
