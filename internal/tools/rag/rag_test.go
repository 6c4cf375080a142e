package rag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwiz/internal/domain/knowledge"
	"finwiz/internal/repository/memory"
	"finwiz/pkg/errors"
)

func newService() *knowledge.Service {
	store := memory.NewKnowledgeStore(func(knowledge.Category) time.Duration { return 30 * 24 * time.Hour })
	return knowledge.NewService(store)
}

func TestSaveThenQueryRoundTrip(t *testing.T) {
	svc := newService()
	save := NewSaveTool(svc)
	query := NewQueryTool(svc)
	ctx := context.Background()

	out, err := save.Execute(ctx, map[string]interface{}{
		"asset":    "AAPL",
		"category": "fundamental",
		"content":  "Services revenue hit an all-time high last quarter",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "AAPL")

	out, err = query.Execute(ctx, map[string]interface{}{"asset": "AAPL"})
	require.NoError(t, err)
	assert.Contains(t, out, "Services revenue")
	assert.Contains(t, out, "fundamental")
}

func TestSaveRejectsUnknownCategory(t *testing.T) {
	save := NewSaveTool(newService())

	_, err := save.Execute(context.Background(), map[string]interface{}{
		"asset":    "AAPL",
		"category": "gossip",
		"content":  "unfounded rumor",
	})

	var verr *errors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)
}

func TestQueryEmptyStore(t *testing.T) {
	query := NewQueryTool(newService())

	out, err := query.Execute(context.Background(), map[string]interface{}{"asset": "TSLA"})
	require.NoError(t, err)
	assert.Contains(t, out, "No knowledge entries found")
}
