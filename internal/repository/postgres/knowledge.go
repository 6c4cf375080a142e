package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"finwiz/internal/domain/knowledge"
	pkgerrors "finwiz/pkg/errors"
)

// Compile-time check that we implement the interface
var _ knowledge.Repository = (*KnowledgeRepository)(nil)

// KnowledgeRepository implements knowledge storage with pgvector
type KnowledgeRepository struct {
	db        *sqlx.DB
	retention knowledge.RetentionPolicy
}

// NewKnowledgeRepository creates a new knowledge repository
func NewKnowledgeRepository(db *sqlx.DB, retention knowledge.RetentionPolicy) *KnowledgeRepository {
	return &KnowledgeRepository{db: db, retention: retention}
}

// Put stores a new entry. Ids come from the sequence on the table, so
// concurrent writers never conflict.
func (r *KnowledgeRepository) Put(ctx context.Context, entry *knowledge.Entry) (int64, error) {
	query := `
		INSERT INTO knowledge_entries (
			asset, source, category, content, confidence, evergreen, embedding, ts
		) VALUES (
			:asset, :source, :category, :content, :confidence, :evergreen, :embedding, :ts
		) RETURNING id`

	rows, err := r.db.NamedQueryContext(ctx, query, entry)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to store knowledge entry")
	}
	defer func() { _ = rows.Close() }()

	var id int64
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, pkgerrors.Wrap(err, "failed to scan knowledge entry id")
		}
	}

	return id, nil
}

// Query returns active entries matching the filter. When an embedding is
// supplied the ranking is cosine similarity, otherwise recency.
func (r *KnowledgeRepository) Query(ctx context.Context, filter knowledge.Filter) ([]*knowledge.Entry, error) {
	var (
		conds []string
		args  []interface{}
	)

	conds = append(conds, "pruned_at IS NULL")
	conds = append(conds, retentionCondition(r.retention))

	if filter.Asset != "" {
		args = append(args, filter.Asset)
		conds = append(conds, "asset = $"+strconv.Itoa(len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, "category = $"+strconv.Itoa(len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		conds = append(conds, "ts >= $"+strconv.Itoa(len(args)))
	}
	if filter.Text != "" {
		args = append(args, filter.Text)
		conds = append(conds, "to_tsvector('english', content) @@ plainto_tsquery('english', $"+strconv.Itoa(len(args))+")")
	}

	order := "ts DESC"
	if filter.Embedding != nil {
		args = append(args, *filter.Embedding)
		order = "embedding <=> $" + strconv.Itoa(len(args)) + ", ts DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)

	query := `
		SELECT id, asset, source, category, content, confidence, evergreen, embedding, ts, pruned_at
		FROM knowledge_entries
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY ` + order + `
		LIMIT $` + strconv.Itoa(len(args))

	var entries []*knowledge.Entry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to query knowledge entries")
	}

	return entries, nil
}

// Prune soft-deletes non-evergreen entries older than their category's
// retention window. Already pruned rows are untouched, so the sweep is
// idempotent.
func (r *KnowledgeRepository) Prune(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE knowledge_entries
		SET pruned_at = $1
		WHERE pruned_at IS NULL
			AND NOT evergreen
			AND ts < $1::timestamptz - ` + retentionCase(r.retention)

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to prune knowledge entries")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to get rows affected")
	}

	return rows, nil
}

// retentionCondition builds the age filter applied on reads so that entries
// past retention disappear from queries even before a sweep runs.
func retentionCondition(retention knowledge.RetentionPolicy) string {
	categories := []knowledge.Category{
		knowledge.CategoryMarketData,
		knowledge.CategoryFundamental,
		knowledge.CategoryRisk,
		knowledge.CategoryStrategy,
		knowledge.CategoryReport,
	}

	var cases []string
	for _, c := range categories {
		seconds := int64(retention(c).Seconds())
		cases = append(cases, "(category = '"+c.String()+"' AND ts >= NOW() - interval '1 second' * "+strconv.FormatInt(seconds, 10)+")")
	}

	return "(evergreen OR " + strings.Join(cases, " OR ") + ")"
}

// retentionCase builds a CASE expression mapping category to its retention
// interval, for use in the prune sweep.
func retentionCase(retention knowledge.RetentionPolicy) string {
	categories := []knowledge.Category{
		knowledge.CategoryMarketData,
		knowledge.CategoryFundamental,
		knowledge.CategoryRisk,
		knowledge.CategoryStrategy,
		knowledge.CategoryReport,
	}

	var b strings.Builder
	b.WriteString("(CASE category")
	for _, c := range categories {
		seconds := int64(retention(c).Seconds())
		b.WriteString(" WHEN '" + c.String() + "' THEN interval '1 second' * " + strconv.FormatInt(seconds, 10))
	}
	b.WriteString(" ELSE interval '0' END)")
	return b.String()
}
