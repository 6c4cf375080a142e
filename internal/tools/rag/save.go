package rag

import (
	"context"
	"fmt"
	"time"

	"finwiz/internal/domain/knowledge"
	"finwiz/internal/tools"
	"finwiz/pkg/errors"
)

// savedEntryConfidence is the default score for agent-contributed findings.
const savedEntryConfidence = 0.7

// NewSaveTool builds the save_to_knowledge tool backed by the knowledge service.
func NewSaveTool(svc *knowledge.Service) tools.Tool {
	return tools.New(
		"save_to_knowledge",
		"Persist a research finding to the knowledge base (args: asset, category, content)",
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			asset, err := tools.StringArg(args, "asset")
			if err != nil {
				return "", err
			}
			category, err := tools.StringArg(args, "category")
			if err != nil {
				return "", err
			}
			content, err := tools.StringArg(args, "content")
			if err != nil {
				return "", err
			}

			entry := &knowledge.Entry{
				Asset:      asset,
				Source:     "agent",
				Category:   knowledge.Category(category),
				Content:    content,
				Confidence: savedEntryConfidence,
				Timestamp:  time.Now().UTC(),
			}

			id, err := svc.Put(ctx, entry)
			if err != nil {
				return "", errors.Wrap(err, "save knowledge entry")
			}

			return fmt.Sprintf("Saved knowledge entry %d for %s (%s)", id, asset, category), nil
		},
	)
}
