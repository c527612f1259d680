package bootstrap

import (
	"context"
	"os"

	"intake_server/adapter/out/persistence"
	"intake_server/adapter/out/telemetry"
	"intake_server/config"
	"intake_server/core/agent/llm"
	"intake_server/core/port/out"
	"intake_server/core/service/extraction"
	"intake_server/core/service/intake"
	"intake_server/infra/database"
	"intake_server/internal/stream"
	"intake_server/pkg/cache"
	"intake_server/pkg/logger"
	"intake_server/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client

	Metrics *metrics.Metrics

	// Cache
	RedisCache *cache.RedisCache

	// Repositories
	CustomerRepo out.CustomerRepository

	// Agent
	LLMClient *llm.Client

	// Services
	Pipeline      *extraction.HybridPipeline
	IntakeService *intake.Service

	// Stream
	Stream   *stream.RedisStream
	Producer *stream.Producer
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{
		Config:  cfg,
		Metrics: metrics.NewMetrics(),
	}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	ctx := context.Background()

	// Database (pgxpool for readiness checks)
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.DB = db
		cleanups = append(cleanups, func() { db.Close() })

		sqlDB, err := database.NewSQLX(ctx, cfg.DatabaseURL, nil)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.SQLDB = sqlDB
		cleanups = append(cleanups, func() { sqlDB.Close() })

		if err := database.EnsureSchema(ctx, sqlDB); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("Database connected, schema ensured")
	} else {
		logger.Warn("DATABASE_URL not set, customers will not be persisted")
	}

	// Redis
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
			deps.RedisCache = cache.NewRedisCache(redisClient, "intake:")

			deps.Stream = stream.NewRedisStream(redisClient, cfg.IntakeConsumerGroup)
			deps.Producer = stream.NewProducer(deps.Stream, cfg.IntakeStream)
		}
	}

	// Repositories
	if deps.SQLDB != nil {
		var repo out.CustomerRepository = persistence.NewCustomerAdapter(deps.SQLDB)
		if deps.RedisCache != nil {
			tiered := cache.NewTieredCache(deps.RedisCache, cfg.LocalCacheTTL)
			repo = persistence.NewCachedCustomerAdapter(repo, tiered, cfg.CustomerCacheTTL)
		}
		deps.CustomerRepo = repo
	}

	// Agent
	pipelineDeps := &extraction.PipelineDeps{
		Pattern:   extraction.NewPatternExtractor(nil),
		Customers: deps.CustomerRepo,
		Recorder:  telemetry.NewUsageRecorder(deps.Metrics, newEventLogger()),
	}
	if cfg.AIConfigured() {
		deps.LLMClient = llm.NewClient(llm.ClientConfig{
			APIKey:            cfg.OpenAIAPIKey,
			Model:             cfg.LLMModel,
			BaseURL:           cfg.OpenAIBaseURL,
			Timeout:           cfg.LLMTimeout(),
			RequestsPerMinute: cfg.LLMRequestsPerMinute,
		})
		pipelineDeps.Generative = extraction.NewGenerativeExtractor(deps.LLMClient, &extraction.GenerativeConfig{
			Temperature: float32(cfg.LLMTemperature),
			MaxTokens:   cfg.LLMMaxTokens,
		})
		pipelineDeps.AIStats = deps.LLMClient
		logger.Info("Generative tier enabled (model=%s)", deps.LLMClient.Model())
	} else {
		logger.Warn("OPENAI_API_KEY not set, running pattern tier only")
	}

	// Services
	pipelineConfig := extraction.DefaultPipelineConfig()
	pipelineConfig.Policy.HybridModeEnabled = cfg.HybridModeEnabled
	pipelineConfig.Policy.AIFallbackEnabled = cfg.AIFallbackEnabled
	pipelineConfig.Policy.ConfidenceThreshold = cfg.ConfidenceThreshold
	pipelineConfig.Policy.CustomerThreshold = cfg.CustomerThreshold
	pipelineConfig.Policy.LineItemThreshold = cfg.LineItemThreshold

	deps.Pipeline = extraction.NewHybridPipeline(pipelineDeps, pipelineConfig)
	deps.IntakeService = intake.NewService(deps.Pipeline, deps.CustomerRepo, deps.Metrics)

	return deps, cleanup, nil
}

// newEventLogger builds the zerolog logger for high-volume event records.
func newEventLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "intake").Logger()
}
