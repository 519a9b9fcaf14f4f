package bootstrap

import (
	"context"
	"net/http"

	"complaint_server/adapter/out/llm"
	"complaint_server/adapter/out/messaging"
	"complaint_server/adapter/out/persistence"
	"complaint_server/adapter/out/sentiment"
	"complaint_server/config"
	"complaint_server/core/port/in"
	"complaint_server/core/port/out"
	"complaint_server/core/service/complaint"
	"complaint_server/infra/database"
	"complaint_server/pkg/httputil"
	"complaint_server/pkg/logger"
	"complaint_server/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client

	// one outbound client shared by both classifiers
	HTTPClient *http.Client

	ComplaintRepo out.ComplaintRepository
	Sentiment     out.SentimentClassifier
	Category      out.CategoryClassifier
	Events        out.EventPublisher

	ComplaintService in.ComplaintService
}

// NewDependencies connects to storage and wires the complaint service. The
// returned cleanup releases resources in reverse order of acquisition.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL, database.DefaultPostgresConfig(cfg.DBMaxConns))
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, db.Close)

	if err := database.Migrate(ctx, db); err != nil {
		cleanup()
		return nil, nil, err
	}

	sqlDB, err := database.NewSQLX(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	if err := metrics.RegisterDBPool("complaints", sqlDB.DB); err != nil {
		logger.WithError(err).Warn("Failed to register database pool metrics")
	}
	logger.Info("Database connected (driver=%s, max_conns=%d)", cfg.DatabaseDriver, cfg.DBMaxConns)

	deps.Events = messaging.NopEventPublisher{}
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(ctx, cfg.RedisURL, nil)
		if err != nil {
			logger.WithError(err).Warn("Redis connection failed, complaint events disabled")
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
			deps.Events = messaging.NewRedisEventPublisher(redisClient, cfg.EventsStream, int64(cfg.EventsMaxLen))
			logger.Info("Publishing complaint events to stream %s", cfg.EventsStream)
		}
	}

	deps.HTTPClient = httputil.NewOptimizedClient(httputil.ClassifierClientConfig(cfg.ClassifierTimeout))
	cleanups = append(cleanups, func() { httputil.CloseIdle(deps.HTTPClient) })

	deps.Sentiment = sentiment.NewAdapter(deps.HTTPClient, sentiment.Config{
		URL:       cfg.SentimentURL,
		APIKey:    cfg.SentimentAPIKey,
		KeyHeader: cfg.SentimentKeyHeader,
		Timeout:   cfg.ClassifierTimeout,
	})
	deps.Category = llm.NewCategoryAdapter(deps.HTTPClient, llm.Config{
		BaseURL:   cfg.LLMBaseURL,
		APIKey:    cfg.LLMAPIKey,
		Model:     cfg.LLMModel,
		MaxTokens: cfg.LLMMaxTokens,
		Timeout:   cfg.ClassifierTimeout,
	})

	deps.ComplaintRepo = persistence.NewComplaintRepository(sqlDB)
	deps.ComplaintService = complaint.NewService(
		deps.ComplaintRepo,
		deps.Sentiment,
		deps.Category,
		deps.Events,
		complaint.Config{RecentWindow: cfg.RecentWindow},
	)

	return deps, cleanup, nil
}
