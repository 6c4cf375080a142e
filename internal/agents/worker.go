package agents

import (
	"context"
	"time"

	"finwiz/internal/adapters/ai"
	"finwiz/internal/crew"
	"finwiz/internal/domain/knowledge"
	"finwiz/internal/metrics"
	"finwiz/internal/tools"
	"finwiz/pkg/errors"
	"finwiz/pkg/logger"
)

// knowledgeContextLimit caps retrieved entries per invocation.
const knowledgeContextLimit = 8

// Worker fulfils task invocations: it gathers research data through the
// agent's tools, retrieves relevant knowledge, assembles the prompt, and
// makes a single chat call. Retry and timeout policy live in the
// coordinator.
type Worker struct {
	provider ai.Provider
	registry *tools.Registry
	know     *knowledge.Service

	model       string
	temperature float64
	maxTokens   int

	log *logger.Logger
}

// Config tunes the chat call.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewWorker creates an agent worker.
func NewWorker(provider ai.Provider, registry *tools.Registry, know *knowledge.Service, cfg Config) *Worker {
	return &Worker{
		provider:    provider,
		registry:    registry,
		know:        know,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		log:         logger.Get().With("component", "agent_worker"),
	}
}

var _ crew.Invoker = (*Worker)(nil)

// Invoke runs one task: tool gathering, knowledge retrieval, one chat call.
func (w *Worker) Invoke(ctx context.Context, task crew.TaskDescriptor, input crew.Input) (string, error) {
	log := w.log.With("crew", input.Crew, "task", task.ID, "agent", task.Worker.Name)

	research := w.gatherToolData(ctx, log, task)
	retrieved := w.retrieveKnowledge(ctx, log, task)

	req := ai.ChatRequest{
		Model:       w.model,
		Temperature: w.temperature,
		MaxTokens:   w.maxTokens,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: systemPrompt(task.Worker)},
			{Role: ai.RoleUser, Content: taskPrompt(task, input, research, retrieved)},
		},
	}

	started := time.Now()
	resp, err := w.provider.Chat(ctx, req)
	if err != nil {
		return "", errors.Wrapf(err, "agent %s on task %s", task.Worker.Name, task.ID)
	}
	if resp.Content == "" {
		return "", errors.Wrapf(errors.ErrExternal, "agent %s returned empty output for task %s", task.Worker.Name, task.ID)
	}

	log.Infow("Task invocation complete",
		"duration", time.Since(started),
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens)

	return resp.Content, nil
}

// gatherToolData executes the agent's data tools and collects their output.
// Tool failures degrade the research context rather than failing the task;
// the chat call remains the only fatal step of an invocation.
func (w *Worker) gatherToolData(ctx context.Context, log *logger.Logger, task crew.TaskDescriptor) []toolResult {
	var results []toolResult
	for _, name := range task.Worker.Tools {
		args, ok := toolArgs(name, task)
		if !ok {
			continue
		}

		tool, err := w.registry.Get(name)
		if err != nil {
			log.Warnf("Tool %s not registered: %v", name, err)
			continue
		}

		out, err := tool.Execute(ctx, args)
		if err != nil {
			metrics.ToolCalls.WithLabelValues(name, "error").Inc()
			log.Warnf("Tool %s failed: %v", name, err)
			results = append(results, toolResult{Name: name, Err: err})
			continue
		}

		metrics.ToolCalls.WithLabelValues(name, "ok").Inc()
		results = append(results, toolResult{Name: name, Output: out})
	}
	return results
}

// toolArgs maps a data tool to the arguments derivable from the task. Tools
// without a derivable argument set (and the knowledge tools, which the worker
// covers itself) are skipped.
func toolArgs(name string, task crew.TaskDescriptor) (map[string]interface{}, bool) {
	if task.Asset == "" {
		return nil, false
	}

	switch name {
	case "yahoo_finance_quote", "yahoo_finance_company_info", "technical_indicators":
		return map[string]interface{}{"ticker": task.Asset}, true
	case "coinmarketcap_quotes":
		return map[string]interface{}{"symbols": task.Asset}, true
	case "web_search":
		return map[string]interface{}{"query": task.Asset + " " + string(task.Category) + " analysis"}, true
	default:
		return nil, false
	}
}

func (w *Worker) retrieveKnowledge(ctx context.Context, log *logger.Logger, task crew.TaskDescriptor) []*knowledge.Entry {
	if w.know == nil || task.Asset == "" {
		return nil
	}

	entries, err := w.know.Query(ctx, knowledge.Filter{
		Asset: task.Asset,
		Limit: knowledgeContextLimit,
	})
	if err != nil {
		log.Warnf("Knowledge retrieval failed: %v", err)
		return nil
	}
	return entries
}
