package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/AppStoreGo/internal/config"
	"github.com/utafrali/AppStoreGo/internal/repository"
	"github.com/utafrali/AppStoreGo/internal/repository/jsonfile"
	"github.com/utafrali/AppStoreGo/internal/repository/postgres"
	"github.com/utafrali/AppStoreGo/internal/repository/remote"
	"github.com/utafrali/AppStoreGo/internal/repository/sqlite"
	"github.com/utafrali/AppStoreGo/pkg/database"
	"github.com/utafrali/AppStoreGo/pkg/health"
	"github.com/utafrali/AppStoreGo/pkg/httpclient"
)

// Source is an opened catalog repository together with its health check
// and cleanup.
type Source struct {
	Repo repository.AppRepository
	// Name is the configured source kind, also used as the health check
	// name.
	Name string
	// Check is nil for sources without a connection to probe.
	Check health.Checker
	close func() error
}

// Close releases the underlying connection, if any.
func (s *Source) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenSource opens the catalog repository selected by cfg.CatalogSource.
// reg receives the postgres pool collector and may be nil.
func OpenSource(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*Source, error) {
	switch cfg.CatalogSource {
	case config.SourceJSON:
		logger.Info("json catalog source initialized", slog.String("path", cfg.JSONPath))
		return &Source{Repo: jsonfile.NewAppRepository(cfg.JSONPath), Name: config.SourceJSON}, nil

	case config.SourceSQLite:
		repo, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite catalog: %w", err)
		}
		logger.Info("sqlite catalog source initialized", slog.String("path", cfg.SQLitePath))
		return &Source{Repo: repo, Name: config.SourceSQLite, Check: repo.Ping, close: repo.Close}, nil

	case config.SourcePostgres:
		return openPostgres(ctx, cfg, reg, logger)

	case config.SourceRemote:
		base := httpclient.New(httpclient.DefaultConfig())
		client := httpclient.NewCircuitBreakerClient(base, httpclient.DefaultCircuitBreakerConfig("catalog-remote"), logger)
		logger.Info("remote catalog source initialized", slog.String("url", cfg.RemoteURL))
		return &Source{
			Repo:  remote.NewAppRepository(client, cfg.RemoteURL),
			Name:  config.SourceRemote,
			Check: client.Check,
		}, nil

	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*Source, error) {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)

	if reg != nil {
		if err := database.RegisterPoolMetrics(reg, pool, ServiceName); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				pool.Close()
				return nil, fmt.Errorf("register pool metrics: %w", err)
			}
		}
	}

	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQuery > 0 {
		database.SetSlowQueryLogging(cfg.SlowQuery, logger)
	}

	return &Source{
		Repo:  postgres.NewAppRepository(pool),
		Name:  config.SourcePostgres,
		Check: database.PostgresPinger(pool),
		close: func() error {
			pool.Close()
			return nil
		},
	}, nil
}
