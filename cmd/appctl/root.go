package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/utafrali/AppStoreGo/internal/app"
	"github.com/utafrali/AppStoreGo/internal/catalog"
	"github.com/utafrali/AppStoreGo/internal/config"
	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/ranking"
	"github.com/utafrali/AppStoreGo/internal/repository/memory"
	"github.com/utafrali/AppStoreGo/internal/service"
	"github.com/utafrali/AppStoreGo/pkg/logger"
)

// flagEnv maps persistent flags to the configuration variables they
// override.
var flagEnv = map[string]string{
	"source":       "CATALOG_SOURCE",
	"json-path":    "CATALOG_JSON_PATH",
	"sqlite-path":  "CATALOG_SQLITE_PATH",
	"postgres-dsn": "POSTGRES_URL",
	"remote-url":   "CATALOG_REMOTE_URL",
	"log-level":    "LOG_LEVEL",
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "appctl",
		Short: "Query and maintain the app catalog from the command line",
		Long: `appctl runs the catalog ranking against a catalog source without
starting the HTTP service.

The source is chosen the same way as for the server: environment variables
first, then the flags below.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("source", "", "catalog source: json, sqlite, postgres or remote (env CATALOG_SOURCE)")
	pf.String("json-path", "", "JSON catalog file (env CATALOG_JSON_PATH)")
	pf.String("sqlite-path", "", "SQLite database file (env CATALOG_SQLITE_PATH)")
	pf.String("postgres-dsn", "", "PostgreSQL connection URL (env POSTGRES_URL)")
	pf.String("remote-url", "", "base URL of another catalog instance (env CATALOG_REMOTE_URL)")
	pf.String("log-level", "", "log level written to stderr (env LOG_LEVEL, default warn)")

	root.AddCommand(
		newSearchCmd(),
		newSuggestCmd(),
		newFuzzyCmd(),
		newFilterCmd(),
		newSimilarCmd(),
		newTrendingCmd(),
		newCategoriesCmd(),
		newImportCmd(),
		newExportCmd(),
	)
	return root
}

// loadConfig layers changed flags over the process environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	environ := map[string]string{"LOG_LEVEL": "warn"}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}
	for name, key := range flagEnv {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v, err := cmd.Flags().GetString(name)
		if err != nil {
			return nil, err
		}
		environ[key] = v
	}
	return config.LoadFrom(environ)
}

// toolkit is an opened catalog with the read-side services. Engagement is
// kept in memory, so trending falls back to the lifetime counters stored
// in the catalog.
type toolkit struct {
	cfg             *config.Config
	source          *app.Source
	catalog         *catalog.Catalog
	search          *service.SearchService
	engagement      *service.EngagementService
	recommendations *service.RecommendationService
}

func openToolkit(cmd *cobra.Command) (*toolkit, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logger.NewText(cfg.LogLevel, cmd.ErrOrStderr())
	ctx := cmd.Context()

	src, err := app.OpenSource(ctx, cfg, nil, log)
	if err != nil {
		return nil, err
	}
	cat := catalog.New(src.Repo, log)
	if err := cat.Refresh(ctx); err != nil {
		_ = src.Close()
		return nil, err
	}

	metric, err := ranking.MetricByName(cfg.FuzzyMetric)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	purchases := memory.NewPurchaseStore()
	engagement := service.NewEngagementService(cat, memory.NewEngagementStore(), purchases,
		ranking.NewTrendingRanker(ranking.DefaultTrendWeights()), log)

	return &toolkit{
		cfg:     cfg,
		source:  src,
		catalog: cat,
		search: service.NewSearchService(cat,
			ranking.NewRelevanceScorer(cfg.Relevance()),
			ranking.NewFuzzyMatcher(metric, ranking.DefaultFuzzyWeights()),
			memory.NewSearchHistory(), log),
		engagement: engagement,
		recommendations: service.NewRecommendationService(cat,
			ranking.NewRecommender(ranking.DefaultSimilarityWeights()),
			purchases, engagement, log),
	}, nil
}

func (t *toolkit) Close() error {
	return t.source.Close()
}

// withToolkit opens a toolkit for the duration of fn.
func withToolkit(fn func(cmd *cobra.Command, args []string, t *toolkit) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		t, err := openToolkit(cmd)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, t.Close()) }()
		return fn(cmd, args, t)
	}
}

func formatPrice(p float64) string {
	if p == 0 {
		return "free"
	}
	return fmt.Sprintf("%.2f", p)
}

func printApps(w io.Writer, apps []domain.App) error {
	if len(apps) == 0 {
		_, err := fmt.Fprintln(w, "no matching apps")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDEVELOPER\tCATEGORY\tRATING\tPRICE")
	for i := range apps {
		a := &apps[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\t%s\n",
			a.ID, a.Name, a.Developer, a.Category, a.Rating, formatPrice(a.Price))
	}
	return tw.Flush()
}

func printHits(w io.Writer, hits []domain.SearchHit) error {
	apps := make([]domain.App, 0, len(hits))
	for _, h := range hits {
		apps = append(apps, domain.App{
			ID:        h.ID,
			Name:      h.Name,
			Developer: h.Developer,
			Category:  h.Category,
			Rating:    h.Rating,
			Price:     h.Price,
		})
	}
	return printApps(w, apps)
}

func printLines(w io.Writer, lines []string) error {
	if len(lines) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
