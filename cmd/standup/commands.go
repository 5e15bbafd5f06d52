package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"standup-reporter/internal/ai"
	"standup-reporter/internal/api"
	"standup-reporter/internal/collector"
	"standup-reporter/internal/config"
	"standup-reporter/internal/email"
	custom_errors "standup-reporter/internal/errors"
	"standup-reporter/internal/github"
	"standup-reporter/internal/report"
	"standup-reporter/internal/standup"
	"standup-reporter/internal/store"
)

// app holds the components built from configuration for one command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	runner *standup.Runner
}

func newRootCmd(logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:   "standup",
		Short: "Generate daily and weekly stand-up reports from GitHub activity",
		Long: `standup collects recent commits across a GitHub organization, asks an AI
backend to classify each one, and writes a plain-text stand-up report.
The weekly command merges the week's daily reports into one summary.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			setLogLevel(cfg.LogLevel, logLevel)
			logger.Debug("Configuration loaded", "org", cfg.GithubOrg, "provider", cfg.AIProvider)

			a, err = newApp(cfg, logger)
			return err
		},
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("org", "", "GitHub organization to scan")
	flags.String("author", "", "commit author login (default: the token's user)")
	flags.Duration("lookback", 0, "how far back to look for commits (e.g. 48h)")
	flags.Int("concurrency", 0, "maximum concurrent GitHub and AI requests")
	flags.String("provider", "", "AI provider: openai or ollama")
	flags.String("daily-dir", "", "directory for daily reports")
	flags.String("weekly-dir", "", "directory for weekly reports")

	root.AddCommand(
		newDailyCmd(func() *app { return a }),
		newWeeklyCmd(func() *app { return a }),
		newServeCmd(func() *app { return a }),
	)
	return root
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	gh, err := github.NewClient(cfg.GithubToken, cfg.GithubAPIURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	completer, err := ai.New(cfg, logger)
	var missing *custom_errors.ErrMissingCredential
	switch {
	case errors.As(err, &missing):
		logger.Warn("AI disabled", "reason", err)
		completer = nil
	case err != nil:
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	default:
		logger.Debug("AI enabled", "backend", completer.Name())
	}

	st := store.NewOS(cfg.DailyDir, cfg.WeeklyDir)
	sender := email.NewSender(cfg.EmailURL, cfg.EmailToken, cfg.EmailTo, cfg.EmailFrom)
	coll := collector.NewCollector(gh, logger, cfg.Concurrency)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		runner: standup.NewRunner(cfg, coll, completer, st, sender, logger),
	}, nil
}

func newDailyCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Build today's stand-up report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			result, err := a.runner.Daily(cmd.Context())
			if err != nil {
				return err
			}
			return echo(cmd, result.Text)
		},
	}
	cmd.Flags().String("output", "", "write the report here instead of the daily directory")
	return cmd
}

func newWeeklyCmd(get func() *app) *cobra.Command {
	var (
		date    string
		noEmail bool
	)
	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Merge the week's daily reports into a weekly summary",
		Long: `weekly reads the daily reports for the Friday-to-Thursday week that ends on the
most recent Thursday (on or before --date), merges them and emails the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			ref := time.Now()
			if date != "" {
				d, err := time.ParseInLocation(store.DateLayout, date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				ref = d
			}
			result, err := a.runner.Weekly(cmd.Context(), ref, !noEmail)
			if err != nil {
				return err
			}
			return echo(cmd, result.Text)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date (YYYY-MM-DD); defaults to today")
	cmd.Flags().BoolVar(&noEmail, "no-email", false, "write the report without emailing it")
	cmd.Flags().String("weekly-out", "", "write the report here instead of the weekly directory")
	return cmd
}

func newServeCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			verifier := api.NewRemoteVerifier(a.cfg.TokenVerifyURL)
			srv := &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           api.NewRouter(a.runner, a.store, verifier, a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), srv, a.logger)
		},
	}
	cmd.Flags().String("addr", "", "listen address (e.g. :3051)")
	return cmd
}

func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received. Draining connections.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func echo(cmd *cobra.Command, text string) error {
	out := cmd.OutOrStdout()
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = report.IsTerminal(f)
	}
	return report.Echo(out, text, styled)
}
