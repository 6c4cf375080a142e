package bootstrap

import (
	"context"
	"time"

	"finwiz/internal/adapters/ai"
	chclient "finwiz/internal/adapters/clickhouse"
	"finwiz/internal/adapters/config"
	"finwiz/internal/adapters/kafka"
	pgclient "finwiz/internal/adapters/postgres"
	redisclient "finwiz/internal/adapters/redis"
	"finwiz/internal/agents"
	"finwiz/internal/crew"
	"finwiz/internal/crews"
	"finwiz/internal/domain/knowledge"
	"finwiz/internal/events"
	"finwiz/internal/flow"
	"finwiz/internal/report"
	chrepo "finwiz/internal/repository/clickhouse"
	"finwiz/internal/repository/memory"
	pgrepo "finwiz/internal/repository/postgres"
	redisrepo "finwiz/internal/repository/redis"
	"finwiz/internal/tools"
	"finwiz/internal/tools/finance"
	"finwiz/internal/tools/middleware"
	"finwiz/internal/tools/rag"
	"finwiz/internal/tools/web"
	"finwiz/internal/workers"
	"finwiz/pkg/errors"
	"finwiz/pkg/logger"
	"finwiz/pkg/templates"
)

// Container holds all application dependencies and their lifecycle.
// Components are organized in initialization order.
type Container struct {
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure (optional backends are nil when disabled)
	PG       *pgclient.Client
	CH       *chclient.Client
	Redis    *redisclient.Client
	Producer *kafka.Producer

	// Domain
	Knowledge *knowledge.Service
	Tools     *tools.Registry
	Worker    *agents.Worker

	// Orchestration
	Coordinator *crew.Coordinator
	Flow        *flow.Flow
	Workers     *workers.Scheduler
}

// New wires the application container.
func New(ctx context.Context, cfg *config.Config, tracker errors.Tracker) (*Container, error) {
	c := &Container{
		Config:       cfg,
		Log:          logger.Get(),
		ErrorTracker: tracker,
	}

	if err := c.initStores(ctx); err != nil {
		return nil, err
	}

	knowledgeSvc, err := c.initKnowledge()
	if err != nil {
		return nil, err
	}
	c.Knowledge = knowledgeSvc

	c.Tools = c.initTools()

	provider, err := ai.NewOpenAIProvider(cfg.AI.OpenAIKey, cfg.AI.Model, cfg.AI.RequestTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "init AI provider")
	}
	c.Worker = agents.NewWorker(provider, c.Tools, c.Knowledge, agents.Config{
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	})

	c.Coordinator = crew.NewCoordinator(c.Worker, c.Knowledge, crew.Config{
		MaxRetries:     cfg.Crew.MaxRetries,
		RetryBackoff:   cfg.Crew.RetryBackoff,
		TaskTimeout:    cfg.Crew.TaskTimeout,
		MaxConcurrency: cfg.Crew.MaxConcurrency,
	}, c.observers()...)

	defs, err := crews.LoadAll()
	if err != nil {
		return nil, err
	}

	opts := flow.Options{
		Renderer: report.NewRenderer(templates.Get(), c.Knowledge, cfg.Report.OutputDir),
	}
	if c.Redis != nil {
		opts.Cache = redisrepo.NewRunCache(c.Redis, cfg.Crew.CacheTTL)
	}

	c.Flow, err = flow.New(c.Coordinator, defs, opts)
	if err != nil {
		return nil, err
	}

	c.Workers = workers.NewScheduler()
	c.Workers.Register(workers.NewRetentionSweeper(c.Knowledge, c.publisher(), cfg.Knowledge.PruneInterval))

	return c, nil
}

// initStores connects the enabled infrastructure backends.
func (c *Container) initStores(ctx context.Context) error {
	cfg := c.Config

	if cfg.Knowledge.Backend == "postgres" {
		pg, err := pgclient.NewClient(cfg.Postgres)
		if err != nil {
			return errors.Wrap(err, "init postgres")
		}
		c.PG = pg
	}

	if cfg.ClickHouse.Enabled {
		ch, err := chclient.NewClient(cfg.ClickHouse)
		if err != nil {
			return errors.Wrap(err, "init clickhouse")
		}
		c.CH = ch
	}

	if cfg.Redis.Enabled {
		rd, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return errors.Wrap(err, "init redis")
		}
		c.Redis = rd
	}

	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		c.Producer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
	}

	return nil
}

// initKnowledge selects the knowledge store backend.
func (c *Container) initKnowledge() (*knowledge.Service, error) {
	retention := func(cat knowledge.Category) time.Duration {
		return c.Config.Knowledge.RetentionFor(string(cat))
	}

	switch c.Config.Knowledge.Backend {
	case "postgres":
		svc := knowledge.NewService(pgrepo.NewKnowledgeRepository(c.PG.DB(), retention))
		embedder, err := ai.NewOpenAIEmbedder(c.Config.AI.OpenAIKey, c.Config.AI.EmbeddingModel, c.Config.AI.RequestTimeout)
		if err != nil {
			return nil, errors.Wrap(err, "init embedder")
		}
		return svc.WithEmbedder(embedder), nil
	case "memory", "":
		return knowledge.NewService(memory.NewKnowledgeStore(retention)), nil
	default:
		return nil, &errors.ConfigError{Message: "unknown knowledge backend " + c.Config.Knowledge.Backend}
	}
}

// initTools builds the registry the agent workers draw from. Outbound HTTP
// tools share the retry, rate limit, and timeout middleware; each retry
// attempt passes through the limiter and gets its own deadline.
func (c *Container) initTools() *tools.Registry {
	cfg := c.Config.Tools
	registry := tools.NewRegistry()

	limited := func(t tools.Tool) tools.Tool {
		return middleware.Chain(t,
			middleware.Retry{Attempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff},
			middleware.RateLimit{RPS: cfg.RateLimitRPS, Burst: 1},
			middleware.Timeout{Limit: cfg.HTTPTimeout},
		)
	}

	yahoo := finance.NewYahooClient(cfg.HTTPTimeout)
	registry.Register(limited(finance.NewQuoteTool(yahoo)))
	registry.Register(limited(finance.NewCompanyInfoTool(yahoo)))
	registry.Register(limited(finance.NewIndicatorsTool(yahoo)))

	cmc := finance.NewCMCClient(cfg.CoinMarketCapKey, cfg.HTTPTimeout)
	registry.Register(limited(finance.NewCryptoQuoteTool(cmc)))

	search := web.NewSearchClient(cfg.SerperKey, cfg.HTTPTimeout)
	registry.Register(limited(web.NewSearchTool(search)))
	registry.Register(limited(web.NewScrapeTool(web.NewScraper(cfg.HTTPTimeout))))

	registry.Register(rag.NewSaveTool(c.Knowledge))
	registry.Register(rag.NewQueryTool(c.Knowledge))

	return registry
}

// observers assembles the run observers from the enabled backends.
func (c *Container) observers() []crew.RunObserver {
	var obs []crew.RunObserver
	if c.CH != nil {
		obs = append(obs, chrepo.NewRunLog(c.CH.Conn()))
	}
	if p := c.publisher(); p != nil {
		obs = append(obs, p)
	}
	return obs
}

func (c *Container) publisher() *events.Publisher {
	if c.Producer == nil {
		return nil
	}
	return events.NewPublisher(c.Producer)
}

// Close releases infrastructure connections in reverse order.
func (c *Container) Close() {
	if c.Producer != nil {
		if err := c.Producer.Close(); err != nil {
			c.Log.Warnf("Failed to close kafka producer: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Log.Warnf("Failed to close redis: %v", err)
		}
	}
	if c.CH != nil {
		if err := c.CH.Close(); err != nil {
			c.Log.Warnf("Failed to close clickhouse: %v", err)
		}
	}
	if c.PG != nil {
		if err := c.PG.Close(); err != nil {
			c.Log.Warnf("Failed to close postgres: %v", err)
		}
	}
}
