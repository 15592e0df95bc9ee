package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"NewsCast/internal/app"
	"NewsCast/internal/config"
	"NewsCast/internal/domain"
	"NewsCast/internal/logging"
	"NewsCast/internal/usecase"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "newscast",
		Short:         "News to podcast pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (defaults to $NEWSCAST_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	limit := 0
	root.PersistentFlags().IntVar(&limit, "limit", 0, "batch size override for one-shot stages")

	stage := func(use, short string, batch func(config.BatchConfig) int, run func(*usecase.Pipeline, context.Context, int) (usecase.StageResult, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.Application) error {
					n := limit
					if n <= 0 && batch != nil {
						n = batch(a.Config().Batches)
					}
					res, err := run(a.Pipeline(), ctx, n)
					printResult(cmd.OutOrStdout(), res)
					return err
				})
			},
		}
	}

	root.AddCommand(
		stage("scrape", "Fetch configured category pages", nil,
			func(p *usecase.Pipeline, ctx context.Context, _ int) (usecase.StageResult, error) {
				return p.ScrapeCategories(ctx)
			}),
		stage("extract-links", "Extract article links from scraped pages", func(b config.BatchConfig) int { return b.Links },
			(*usecase.Pipeline).ExtractLinks),
		stage("scrape-articles", "Fetch discovered article URLs", func(b config.BatchConfig) int { return b.Articles },
			(*usecase.Pipeline).FetchArticles),
		stage("extract", "Distill raw articles", func(b config.BatchConfig) int { return b.Extract },
			(*usecase.Pipeline).RunExtraction),
		stage("judge", "Score extracted articles", func(b config.BatchConfig) int { return b.Judge },
			(*usecase.Pipeline).RunJudging),
		stage("generate", "Generate candidate posts", func(b config.BatchConfig) int { return b.Generate },
			(*usecase.Pipeline).RunGeneration),
		newSelectCommand(opts, &limit),
		newRoundupCommand(opts),
		newPublishCommand(opts),
		newRunCommand(opts),
	)
	return root
}

func newSelectCommand(opts *rootOptions, limit *int) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Pick tournament winners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var ct domain.ContentType
			if contentType != "" {
				parsed, ok := domain.ParseContentType(contentType)
				if !ok {
					return fmt.Errorf("unknown content type %q", contentType)
				}
				ct = parsed
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.Application) error {
				n := *limit
				if n <= 0 {
					n = a.Config().Batches.Select
				}
				res, err := a.Pipeline().RunTournament(ctx, ct, n)
				printResult(cmd.OutOrStdout(), res)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "limit selection to one format")
	return cmd
}

func newRoundupCommand(opts *rootOptions) *cobra.Command {
	var req usecase.RoundupRequest
	cmd := &cobra.Command{
		Use:   "roundup",
		Short: "Script an audio roundup from recent stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.Application) error {
				res, err := a.Pipeline().AssembleRoundup(ctx, req)
				printResult(cmd.OutOrStdout(), res)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&req.Language, "language", "", "language code, overrides the project language")
	return cmd
}

func newPublishCommand(opts *rootOptions) *cobra.Command {
	var (
		projectID string
		refresh   bool
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish podcast feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.Application) error {
				var results []usecase.PublishResult
				if projectID != "" {
					res, err := a.Publisher().PublishProject(ctx, projectID, refresh)
					if err != nil {
						return err
					}
					results = append(results, res)
				} else {
					all, err := a.Publisher().PublishAll(ctx, refresh)
					if err != nil {
						return err
					}
					results = all
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "publish one project only")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-render and re-upload every episode")
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every stage on its schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, opts, func(ctx context.Context, a *app.Application) error {
				if addr := a.Config().Metrics.Address; addr != "" {
					mux := http.NewServeMux()
					mux.Handle("/metrics", a.MetricsHandler())
					srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
					go func() {
						if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
							a.Logger().Error("metrics server", "error", err)
						}
					}()
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
						defer cancel()
						_ = srv.Shutdown(shutdownCtx)
					}()
					a.Logger().Info("metrics listening", "addr", addr)
				}
				return a.Run(ctx)
			})
		},
	}
}

func withApp(ctx context.Context, opts *rootOptions, fn func(context.Context, *app.Application) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printResult(w io.Writer, res usecase.StageResult) {
	fmt.Fprintf(w, "processed=%d skipped=%d failed=%d created=%d\n", res.Processed, res.Skipped, res.Failed, res.Created)
}
