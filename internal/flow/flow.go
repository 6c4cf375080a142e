package flow

import (
	"context"
	"strings"
	"sync"

	"finwiz/internal/crew"
	"finwiz/internal/crews"
	"finwiz/internal/report"
	redisrepo "finwiz/internal/repository/redis"
	"finwiz/pkg/errors"
	"finwiz/pkg/logger"
)

// researchCrews are kicked off concurrently; the report crew joins on all of
// them.
var researchCrews = []string{"stock", "etf", "crypto"}

// reportCrew consolidates the research conclusions.
const reportCrew = "report"

// ResearchResult is one research crew's conclusion.
type ResearchResult struct {
	Crew   string
	RunID  string
	Final  string
	Cached bool
	Err    error
}

// Result is the outcome of a full flow kickoff.
type Result struct {
	Asset      string
	Research   map[string]ResearchResult
	ReportRun  *crew.Run
	Final      string
	ReportPath string
}

// Flow runs the research crews concurrently, joins on their conclusions, and
// feeds them into the report crew.
type Flow struct {
	coord    *crew.Coordinator
	defs     map[string]*crew.Definition
	cache    *redisrepo.RunCache
	renderer *report.Renderer
	log      *logger.Logger
}

// Options carries the optional collaborators of a flow.
type Options struct {
	Cache    *redisrepo.RunCache
	Renderer *report.Renderer
}

// New creates a flow over the embedded crew definitions.
func New(coord *crew.Coordinator, defs map[string]*crew.Definition, opts Options) (*Flow, error) {
	for _, name := range append(append([]string{}, researchCrews...), reportCrew) {
		if _, ok := defs[name]; !ok {
			return nil, &errors.ConfigError{Crew: name, Message: "crew definition missing"}
		}
	}

	return &Flow{
		coord:    coord,
		defs:     defs,
		cache:    opts.Cache,
		renderer: opts.Renderer,
		log:      logger.Get().With("component", "flow"),
	}, nil
}

// Kickoff researches an asset with every research crew, then runs the report
// crew over the joined conclusions. Research crews that fail are reported as
// missing in the final report; the flow fails only when no research crew
// produced a conclusion or the report crew itself fails.
func (f *Flow) Kickoff(ctx context.Context, asset string) (*Result, error) {
	if strings.TrimSpace(asset) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "asset must not be empty")
	}

	result := &Result{
		Asset:    asset,
		Research: make(map[string]ResearchResult, len(researchCrews)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, name := range researchCrews {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			res := f.runResearchCrew(ctx, name, asset)
			mu.Lock()
			result.Research[name] = res
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	conclusions := 0
	for _, res := range result.Research {
		if res.Err == nil && res.Final != "" {
			conclusions++
		}
	}
	if conclusions == 0 {
		return result, errors.Wrapf(errors.ErrInternal, "no research crew produced a conclusion for %s", asset)
	}

	if err := f.runReportCrew(ctx, asset, result); err != nil {
		return result, err
	}
	return result, nil
}

// runResearchCrew executes one research crew, short-circuiting through the
// run cache when today's result exists.
func (f *Flow) runResearchCrew(ctx context.Context, name, asset string) ResearchResult {
	log := f.log.With("crew", name, "asset", asset)

	if f.cache != nil {
		cached, err := f.cache.Get(ctx, name, asset)
		if err != nil {
			log.Warnf("Run cache lookup failed: %v", err)
		}
		if cached != nil {
			log.Infof("Reusing cached run %s", cached.RunID)
			return ResearchResult{Crew: name, RunID: cached.RunID, Final: cached.Final, Cached: true}
		}
	}

	def := crews.ForAsset(f.defs[name], asset)
	run, err := f.coord.Execute(ctx, def)
	if run == nil {
		return ResearchResult{Crew: name, Err: err}
	}

	final, ok := run.FinalOutput()
	if !ok {
		if err == nil {
			err = errors.Wrapf(errors.ErrInternal, "crew %s produced no final output", name)
		}
		return ResearchResult{Crew: name, RunID: run.ID.String(), Err: err}
	}

	// A partial failure with an intact terminal path still yields a usable
	// conclusion; the report lists the gaps.
	if err != nil {
		log.Warnf("Crew completed with failures: %v", err)
	}

	if f.cache != nil && err == nil {
		outputs := make(map[string]string, len(def.Tasks))
		for _, id := range def.TaskIDs() {
			if out, ok := run.Output(id); ok {
				outputs[id] = out
			}
		}
		if cerr := f.cache.Put(ctx, &redisrepo.CachedRun{
			RunID:   run.ID.String(),
			Crew:    name,
			Asset:   asset,
			Outputs: outputs,
			Final:   final,
		}); cerr != nil {
			log.Warnf("Run cache store failed: %v", cerr)
		}
	}

	return ResearchResult{Crew: name, RunID: run.ID.String(), Final: final}
}

// runReportCrew joins the research conclusions and executes the report crew.
func (f *Flow) runReportCrew(ctx context.Context, asset string, result *Result) error {
	def := crews.ForAsset(f.defs[reportCrew], asset)

	// The integration task receives every research conclusion verbatim; the
	// later tasks see them through the knowledge base and task outputs.
	var joined strings.Builder
	for _, name := range researchCrews {
		res := result.Research[name]
		if res.Err != nil || res.Final == "" {
			joined.WriteString("\n## " + name + " research\nunavailable\n")
			continue
		}
		joined.WriteString("\n## " + name + " research\n" + res.Final + "\n")
	}
	integration := &def.Tasks[0]
	integration.Description += "\n\n# Research conclusions" + joined.String()

	run, err := f.coord.Execute(ctx, def)
	if run == nil {
		return err
	}
	result.ReportRun = run

	final, ok := run.FinalOutput()
	if !ok {
		if err == nil {
			err = errors.Wrapf(errors.ErrInternal, "report crew produced no final output")
		}
		return err
	}
	result.Final = final

	if f.renderer != nil {
		sections := make([]report.Section, 0, len(researchCrews))
		for _, name := range researchCrews {
			if res := result.Research[name]; res.Err == nil && res.Final != "" {
				sections = append(sections, report.Section{Title: name + " research", Body: res.Final})
			}
		}

		target := def.Tasks[len(def.Tasks)-1].OutputTarget
		path, rerr := f.renderer.Write(ctx, asset, run, sections, target)
		if rerr != nil {
			f.log.Errorf("Report rendering failed: %v", rerr)
		} else {
			result.ReportPath = path
		}
	}

	return err
}
