// FeedBot: tiered topic ingestion.
//
// Usage:
//
//	feedbot ingest AI           # fetch up to 5 recent AI articles
//	feedbot categories          # list known categories
//	feedbot serve               # run the HTTP API
//	feedbot schedule            # run recurring ingestion
//	feedbot history             # show archived runs
//	feedbot version             # show version
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/feedbot/internal/api"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/app"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/config"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/ingest"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/scheduler"
)

var version = "dev"

type globalFlags struct {
	configPath string
	envFile    string
	verbose    bool
}

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:          "feedbot",
		Short:        "Tiered topic ingestion from APIs, feeds and web pages",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default: ./feedbot.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(ingestCmd(&g))
	rootCmd.AddCommand(categoriesCmd(&g))
	rootCmd.AddCommand(serveCmd(&g))
	rootCmd.AddCommand(scheduleCmd(&g))
	rootCmd.AddCommand(historyCmd(&g))
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// setup loads the environment and configuration and installs the logger.
func setup(g *globalFlags, errOut io.Writer) (config.Config, *slog.Logger, error) {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return config.Config{}, nil, fmt.Errorf("load env file %s: %w", g.envFile, err)
		}
	}

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openApp(cmd *cobra.Command, g *globalFlags) (*app.App, error) {
	cfg, logger, err := setup(g, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return a, nil
}

func ingestCmd(g *globalFlags) *cobra.Command {
	var maxArticles int
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "ingest <category>",
		Short: "Fetch recent articles for a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Ingest(cmd.Context(), args[0], maxArticles)
			if err != nil {
				slog.Warn("run not archived", "error", err)
			}
			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxArticles, "max", "n", 0, "maximum number of articles (default from config)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output JSON")
	return cmd
}

func printResult(w io.Writer, res *ingest.Result) {
	if res.CatalogMiss {
		fmt.Fprintf(w, "Unknown category %q.\n", res.Category)
	}
	fmt.Fprintf(w, "%s: %d articles in %s\n", res.Category, len(res.Articles), res.Duration.Round(time.Millisecond))
	repeated := make(map[string]bool, len(res.Repeated))
	for _, u := range res.Repeated {
		repeated[u] = true
	}
	for i, a := range res.Articles {
		mark := ""
		if repeated[a.SourceURL] {
			mark = " (seen before)"
		}
		fmt.Fprintf(w, "\n%d. %s [%s]%s\n   %s\n", i+1, a.Title, a.Tier, mark, a.SourceURL)
		if a.PublishedAt != nil {
			fmt.Fprintf(w, "   %s\n", a.PublishedAt.Format("2006-01-02"))
		}
		fmt.Fprintf(w, "   %s\n", preview(a.Content, 160))
	}
	if len(res.Tiers) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIER\tRETURNED\tACCEPTED\tFAILURES")
		for _, t := range res.Tiers {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", t.Tier, t.Returned, t.Accepted, len(t.Failures))
		}
		tw.Flush()
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

func categoriesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List known categories and their sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tAPI\tRSS\tWEB")
			for _, name := range a.Catalog.Names() {
				c, _ := a.Catalog.Lookup(name)
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", c.Name, c.DisplayName, len(c.API), len(c.RSS), len(c.Web))
			}
			return tw.Flush()
		},
	}
}

func serveCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.Config.Server.Addr
			}
			opts := []api.Option{api.WithAllowedOrigin(a.Config.Server.AllowedOrigin)}
			if a.Store != nil {
				opts = append(opts, api.WithRuns(a.Store))
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewServer(a, a.Catalog, opts...).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				slog.Info("starting HTTP API", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func scheduleCmd(g *globalFlags) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run ingestion for the configured categories on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			s := scheduler.NewScheduler()
			for _, category := range a.Config.Schedule.Categories {
				err := s.Add(scheduler.Job{
					Name:     "ingest " + category,
					Schedule: a.Config.Schedule.Cron,
					Fn: func(ctx context.Context) error {
						res, err := a.Ingest(ctx, category, 0)
						if err != nil {
							slog.Warn("run not archived", "category", category, "error", err)
						}
						slog.Info("scheduled ingestion done", "category", category, "articles", len(res.Articles), "fallback", res.FallbackUsed)
						return a.Notify(ctx, res)
					},
				})
				if err != nil {
					return err
				}
			}

			if once {
				return s.RunOnce(cmd.Context())
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.Start(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run every job once and exit")
	return cmd
}

func historyCmd(g *globalFlags) *cobra.Command {
	var limit int
	var category string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived ingestion runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Store == nil {
				return fmt.Errorf("no run archive configured; set store.dsn or FEEDBOT_DB")
			}
			runs, err := a.Store.Recent(cmd.Context(), category, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tCATEGORY\tARTICLES\tFALLBACK\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d\t%v\t%s\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"),
					r.Category, r.Returned, r.Requested, r.FallbackUsed, r.Duration)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&category, "category", "", "only show runs for this category")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "feedbot %s\n", version)
		},
	}
}
