package rag

import (
	"context"
	"fmt"
	"strings"

	"finwiz/internal/domain/knowledge"
	"finwiz/internal/tools"
	"finwiz/pkg/errors"
)

// queryLimit caps how many entries a single lookup returns to the agent.
const queryLimit = 10

// NewQueryTool builds the query_knowledge tool backed by the knowledge service.
func NewQueryTool(svc *knowledge.Service) tools.Tool {
	return tools.New(
		"query_knowledge",
		"Retrieve relevant knowledge base entries (args: asset, optional category, optional text)",
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			asset, err := tools.StringArg(args, "asset")
			if err != nil {
				return "", err
			}

			filter := knowledge.Filter{Asset: asset, Limit: queryLimit}
			if category, ok := args["category"].(string); ok && category != "" {
				filter.Category = knowledge.Category(category)
			}
			if text, ok := args["text"].(string); ok {
				filter.Text = text
			}

			entries, err := svc.Query(ctx, filter)
			if err != nil {
				return "", errors.Wrap(err, "query knowledge base")
			}
			if len(entries) == 0 {
				return "No knowledge entries found for " + asset, nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Knowledge entries for %s:\n", asset)
			for _, e := range entries {
				fmt.Fprintf(&b, "- [%s] %s (source %s, %s, confidence %.2f)\n",
					e.Category, e.Content, e.Source, e.Timestamp.Format("2006-01-02"), e.Confidence)
			}
			return b.String(), nil
		},
	)
}
