// Package standup runs the daily and weekly report pipelines.
package standup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"standup-reporter/internal/ai"
	"standup-reporter/internal/classifier"
	"standup-reporter/internal/collector"
	"standup-reporter/internal/config"
	"standup-reporter/internal/email"
	"standup-reporter/internal/report"
	"standup-reporter/internal/store"
	"standup-reporter/internal/weekly"
)

// Runner wires the pipeline components together. Runs are serialized so two
// callers never write the same report file at once.
type Runner struct {
	cfg        *config.Config
	collector  *collector.Collector
	classifier *classifier.Classifier
	completer  ai.Completer
	store      *store.Store
	email      *email.Sender
	logger     *slog.Logger
	now        func() time.Time

	mu sync.Mutex
}

// NewRunner creates a Runner. completer may be nil when AI is not configured.
func NewRunner(cfg *config.Config, coll *collector.Collector, completer ai.Completer, st *store.Store, sender *email.Sender, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		collector:  coll,
		classifier: classifier.New(completer, cfg.Concurrency, logger),
		completer:  completer,
		store:      st,
		email:      sender,
		logger:     logger,
		now:        time.Now,
	}
}

// DailyResult is the outcome of one daily run.
type DailyResult struct {
	Path  string
	Text  string
	Stats report.Stats
}

// Daily collects, classifies and renders today's report and writes it to disk.
func (r *Runner) Daily(ctx context.Context) (*DailyResult, error) {
	if err := r.cfg.RequireGithubToken(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	logger := r.logger.With("run_id", uuid.NewString(), "report", "daily")
	logger.Info("Starting daily standup", "ai_enabled", r.classifier.Enabled())

	commits, err := r.collector.Collect(ctx, collector.Params{
		Org:    r.cfg.GithubOrg,
		Author: r.cfg.GithubAuthor,
		Since:  now.Add(-r.cfg.Lookback),
	})
	if err != nil {
		return nil, fmt.Errorf("collecting commits: %w", err)
	}

	results := r.classifier.ClassifyAll(ctx, commits)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, stats := report.RenderWithStats(commits, results)
	logger.Info("Daily standup rendered",
		"commits", stats.Commits,
		"repos", stats.Repos,
		"classified", stats.Classified,
		"repos_with_notable", stats.ReposWithNotable,
	)

	path := r.cfg.ReportOutputPath
	if path == "" {
		path = r.store.DailyPath(now)
	}
	if err := r.store.Write(path, text); err != nil {
		return nil, err
	}
	logger.Info("Report written", "path", path)

	return &DailyResult{Path: path, Text: text, Stats: stats}, nil
}

// WeeklyResult is the outcome of one weekly run.
type WeeklyResult struct {
	Path       string
	Text       string
	WeekEnding string
	Sources    []string
	Summarized bool
	Emailed    bool
}

// Weekly merges the daily reports of the week containing ref and writes the
// weekly report. Email failures are logged, never returned.
func (r *Runner) Weekly(ctx context.Context, ref time.Time, sendEmail bool) (*WeeklyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	thursday := weekly.WeekEndingThursday(ref)
	weekEnding := thursday.Format(store.DateLayout)
	logger := r.logger.With("run_id", uuid.NewString(), "report", "weekly", "week_ending", weekEnding)

	days, err := weekly.Gather(r.store, weekly.WeekDates(thursday), logger)
	if err != nil {
		return nil, fmt.Errorf("week ending %s (Fri-Thu): %w", weekEnding, err)
	}
	sources := make([]string, len(days))
	dates := make([]string, len(days))
	for i, d := range days {
		sources[i] = d.Path
		dates[i] = d.Date
	}
	logger.Info("Found standup files", "count", len(days), "dates", dates)

	body, summarized := weekly.Summarize(ctx, r.completer, days, logger)
	content := weekly.Compose(body, days)

	path := r.cfg.WeeklyOutputPath
	if path == "" {
		path = r.store.WeeklyPath(thursday)
	}
	if err := r.store.Write(path, content); err != nil {
		return nil, err
	}
	logger.Info("Report written", "path", path)

	result := &WeeklyResult{
		Path:       path,
		Text:       content,
		WeekEnding: weekEnding,
		Sources:    sources,
		Summarized: summarized,
	}
	if sendEmail && r.email != nil {
		result.Emailed = r.sendWeekly(ctx, logger, weekEnding, content)
	}
	return result, nil
}

func (r *Runner) sendWeekly(ctx context.Context, logger *slog.Logger, weekEnding, content string) bool {
	err := r.email.Send(ctx, email.Message{
		Subject: "Weekly standup week ending " + weekEnding,
		Body:    content,
	})
	switch {
	case errors.Is(err, email.ErrNotConfigured):
		logger.Warn("Email skipped", "reason", err)
		return false
	case err != nil:
		logger.Warn("Email failed", "error", err)
		return false
	}
	logger.Info("Email sent", "to", r.email.To())
	return true
}
