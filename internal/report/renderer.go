package report

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"finwiz/internal/crew"
	"finwiz/internal/domain/knowledge"
	"finwiz/pkg/errors"
	"finwiz/pkg/logger"
	"finwiz/pkg/templates"
)

// evidenceLimit caps knowledge entries quoted in the report appendix.
const evidenceLimit = 15

// Section is one crew conclusion included in the research trail.
type Section struct {
	Title string
	Body  string
}

// evidence adapts a knowledge entry for template rendering.
type evidence struct {
	Category      knowledge.Category
	Timestamp     time.Time
	ConfidencePct float64
	Content       string
}

// reportData is the template payload.
type reportData struct {
	Asset       string
	RunID       string
	GeneratedAt time.Time
	Final       string
	Sections    []Section
	Knowledge   []evidence
	Failed      []string
}

// Renderer produces the final markdown report from the report crew run and
// the knowledge accumulated during research.
type Renderer struct {
	registry  *templates.Registry
	know      *knowledge.Service
	outputDir string
	log       *logger.Logger
}

// NewRenderer creates a report renderer writing into outputDir.
func NewRenderer(registry *templates.Registry, know *knowledge.Service, outputDir string) *Renderer {
	return &Renderer{
		registry:  registry,
		know:      know,
		outputDir: outputDir,
		log:       logger.Get().With("component", "report_renderer"),
	}
}

// Render builds the consolidated report for an asset from the report crew's
// run and the research crews' conclusions.
func (r *Renderer) Render(ctx context.Context, asset string, run *crew.Run, sections []Section) (string, error) {
	final, ok := run.FinalOutput()
	if !ok {
		return "", errors.Wrapf(errors.ErrNotFound, "run %s produced no final output", run.ID)
	}

	data := reportData{
		Asset:       asset,
		RunID:       run.ID.String(),
		GeneratedAt: time.Now().UTC(),
		Final:       final,
		Sections:    sections,
	}

	summary := run.Summarize()
	data.Failed = append(data.Failed, summary.Failed...)
	data.Failed = append(data.Failed, summary.Skipped...)

	if r.know != nil {
		entries, err := r.know.Query(ctx, knowledge.Filter{Asset: asset, Limit: evidenceLimit})
		if err != nil {
			r.log.Warnf("Evidence query failed: %v", err)
		}
		for _, e := range entries {
			data.Knowledge = append(data.Knowledge, evidence{
				Category:      e.Category,
				Timestamp:     e.Timestamp,
				ConfidencePct: e.Confidence * 100,
				Content:       e.Content,
			})
		}
	}

	return r.registry.Render("report/investment_report", data)
}

// Write renders the report and writes it to the task's output target.
func (r *Renderer) Write(ctx context.Context, asset string, run *crew.Run, sections []Section, target string) (string, error) {
	content, err := r.Render(ctx, asset, run, sections)
	if err != nil {
		return "", err
	}

	if target == "" {
		target = "investment_report.md"
	}
	path := filepath.Join(r.outputDir, target)

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create report output dir")
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.Wrap(err, "write report")
	}

	r.log.Infof("Report written to %s", path)
	return path, nil
}
