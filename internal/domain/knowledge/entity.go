package knowledge

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Entry is a single piece of research knowledge shared between crews.
// Entries are append-only: updates are new entries superseding older ones by
// timestamp, and the retention sweep soft-deletes instead of removing rows.
type Entry struct {
	ID        int64  `db:"id"`
	Asset     string `db:"asset"`
	Source    string `db:"source"`

	Category   Category  `db:"category"`
	Content    string    `db:"content"`
	Confidence float64   `db:"confidence"` // 0-1, for retrieval ranking
	Evergreen  bool      `db:"evergreen"`  // exempt from retention pruning

	// Embedding is populated by backends that support vector search.
	Embedding pgvector.Vector `db:"embedding"`

	Timestamp time.Time  `db:"ts"`
	PrunedAt  *time.Time `db:"pruned_at"` // soft delete marker, kept for audit
}

// Active reports whether the entry is visible to queries at the given time,
// under the given retention window for its category.
func (e *Entry) Active(now time.Time, retention time.Duration) bool {
	if e.PrunedAt != nil {
		return false
	}
	if e.Evergreen {
		return true
	}
	return now.Sub(e.Timestamp) <= retention
}

// Category classifies knowledge entries and selects their retention window.
type Category string

const (
	CategoryMarketData  Category = "market_data"
	CategoryFundamental Category = "fundamental"
	CategoryRisk        Category = "risk"
	CategoryStrategy    Category = "strategy"
	CategoryReport      Category = "report"
)

// Valid checks if the category is known
func (c Category) Valid() bool {
	switch c {
	case CategoryMarketData, CategoryFundamental, CategoryRisk, CategoryStrategy, CategoryReport:
		return true
	}
	return false
}

// String returns string representation
func (c Category) String() string {
	return string(c)
}

// Filter narrows a Query. Zero values mean "match everything".
type Filter struct {
	Asset    string
	Category Category
	Since    time.Time
	Text     string
	Limit    int

	// Embedding, when set, lets vector-backed stores rank by similarity.
	Embedding *pgvector.Vector
}
