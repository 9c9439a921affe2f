package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/ranking"
	"github.com/utafrali/AppStoreGo/internal/repository/jsonfile"
	"github.com/utafrali/AppStoreGo/internal/repository/sqlite"
	"github.com/utafrali/AppStoreGo/internal/service"
)

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank apps by relevance to a query",
		Args:  cobra.ExactArgs(1),
		RunE: withToolkit(func(cmd *cobra.Command, args []string, t *toolkit) error {
			hits, err := t.search.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printHits(cmd.OutOrStdout(), hits)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", service.DefaultSearchLimit, "maximum number of results")
	return cmd
}

func newSuggestCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Autocomplete app names",
		Args:  cobra.ExactArgs(1),
		RunE: withToolkit(func(cmd *cobra.Command, args []string, t *toolkit) error {
			names, err := t.search.Suggest(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printLines(cmd.OutOrStdout(), names)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", ranking.MaxSuggestions, "maximum number of suggestions")
	return cmd
}

func newFuzzyCmd() *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "fuzzy <query>",
		Short: "Match apps tolerating typos",
		Args:  cobra.ExactArgs(1),
		RunE: withToolkit(func(cmd *cobra.Command, args []string, t *toolkit) error {
			apps, err := t.search.Fuzzy(cmd.Context(), args[0], threshold)
			if err != nil {
				return err
			}
			return printApps(cmd.OutOrStdout(), apps)
		}),
	}
	cmd.Flags().Float64Var(&threshold, "threshold", service.DefaultFuzzyThreshold, "minimum similarity in [0, 1]")
	return cmd
}

// filterFlags maps filter flags to criteria keys. Numbers are taken as
// strings so unparsable values drop the predicate, as the HTTP surface does.
var filterFlags = map[string]string{
	"query":      "q",
	"min-price":  "min_price",
	"max-price":  "max_price",
	"min-rating": "min_rating",
	"category":   "category",
	"age-rating": "age_rating",
}

func newFilterCmd() *cobra.Command {
	var freeOnly, noAds bool
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter apps by price, rating, category, age rating and ads",
		Args:  cobra.NoArgs,
		RunE: withToolkit(func(cmd *cobra.Command, _ []string, t *toolkit) error {
			values := map[string]string{
				"free_only": strconv.FormatBool(freeOnly),
				"no_ads":    strconv.FormatBool(noAds),
			}
			for name, key := range filterFlags {
				v, err := cmd.Flags().GetString(name)
				if err != nil {
					return err
				}
				values[key] = v
			}
			c := domain.CriteriaFromValues(func(k string) string { return values[k] })

			apps, err := t.search.Advanced(cmd.Context(), c)
			if err != nil {
				return err
			}
			return printApps(cmd.OutOrStdout(), apps)
		}),
	}
	f := cmd.Flags()
	f.String("query", "", "rank by relevance to this query before filtering")
	f.String("min-price", "", "minimum price")
	f.String("max-price", "", "maximum price")
	f.String("min-rating", "", "minimum rating")
	f.String("category", "", "exact category")
	f.String("age-rating", "", "exact age rating")
	f.BoolVar(&freeOnly, "free-only", false, "only free apps")
	f.BoolVar(&noAds, "no-ads", false, "only apps without ads")
	return cmd
}

func newSimilarCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "similar <app-id>",
		Short: "List apps similar to an app",
		Args:  cobra.ExactArgs(1),
		RunE: withToolkit(func(cmd *cobra.Command, args []string, t *toolkit) error {
			apps, err := t.recommendations.RecommendationsFor(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printApps(cmd.OutOrStdout(), apps)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", ranking.DefaultRecommendLimit, "maximum number of results")
	return cmd
}

func newTrendingCmd() *cobra.Command {
	var limit, days int
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Rank apps by views, downloads and rating",
		Args:  cobra.NoArgs,
		RunE: withToolkit(func(cmd *cobra.Command, _ []string, t *toolkit) error {
			apps, err := t.engagement.Trending(cmd.Context(), limit, days)
			if err != nil {
				return err
			}
			return printApps(cmd.OutOrStdout(), apps)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().IntVar(&days, "days", 7, "trending window in days")
	return cmd
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories",
		Args:  cobra.NoArgs,
		RunE: withToolkit(func(cmd *cobra.Command, _ []string, t *toolkit) error {
			names, err := t.search.Categories(cmd.Context())
			if err != nil {
				return err
			}
			return printLines(cmd.OutOrStdout(), names)
		}),
	}
}

func newImportCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a JSON catalog into a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if from == "" {
				from = cfg.JSONPath
			}
			if to == "" {
				to = cfg.SQLitePath
			}

			apps, err := jsonfile.NewAppRepository(from).ListApps(cmd.Context())
			if err != nil {
				return err
			}
			if len(apps) == 0 {
				return fmt.Errorf("no apps found in %s", from)
			}

			db, err := sqlite.Open(cmd.Context(), to)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := db.Close(); err == nil {
					err = cerr
				}
			}()
			if err := db.ImportApps(cmd.Context(), apps); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d apps into %s\n", len(apps), to)
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "JSON catalog to read (default --json-path)")
	cmd.Flags().StringVar(&to, "to", "", "SQLite database to write (default --sqlite-path)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the configured catalog source to a JSON file",
		Args:  cobra.NoArgs,
		RunE: withToolkit(func(cmd *cobra.Command, _ []string, t *toolkit) error {
			apps, err := t.search.All(cmd.Context())
			if err != nil {
				return err
			}
			if err := jsonfile.NewAppRepository(to).WriteAll(cmd.Context(), apps); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d apps to %s\n", len(apps), to)
			return err
		}),
	}
	cmd.Flags().StringVar(&to, "to", "", "JSON file to write")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
