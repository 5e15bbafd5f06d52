// Package weekly merges a week's daily reports into one weekly report.
package weekly

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"standup-reporter/internal/ai"
	custom_errors "standup-reporter/internal/errors"
	"standup-reporter/internal/model"
	"standup-reporter/internal/store"
)

const (
	summarizeTimeout = 60 * time.Second
	systemPrompt     = "You output only valid markdown. No code blocks around the whole response."

	// Fallback is written instead of the merged text when no summary could be produced.
	Fallback = "Repositories\n(none)\n\nCommits\n(none)\n\nSummary\n(no summary - OPENAI_API_KEY missing or API error)"

	daySeparator = "\n\n---\n\n"
)

const mergePrompt = `You merge several daily stand-up reports into a single weekly report.

You will get between one and five daily reports. Each one contains:
- Repositories
- Commits (grouped by repository, one subject per line)
- Summary (grouped by repository: "•" marks headline bullets, "(context)" marks minor items)

Produce ONE report in exactly the daily format:

1) Repositories
   Every repository that saw work this week, one name per line, no bullets.

2) Commits
   For each repository, only the most noteworthy commit subjects. Leave out trivial ones such as lockfile bumps, formatting or tiny tweaks. The repository name is the heading, followed by "  * subject" lines.

3) Summary
   For each repository, a short list of the week's most noteworthy outcomes. Use "    • " for headline items (user-facing or important internal work) and "    (context) " for lower-priority items. Merge points that repeat across days into a single bullet. Keep the concise, professional tone of the daily bullets.

Rules:
- Use exactly the section titles "Repositories", "Commits" and "Summary". Add no other headings.
- No preamble: the answer starts with "Repositories".
- Select what matters; do not copy every commit or every bullet from every day.`

// WeekEndingThursday returns ref's date when it is a Thursday, otherwise the most recent Thursday before it.
func WeekEndingThursday(ref time.Time) time.Time {
	back := (int(ref.Weekday()) - int(time.Thursday) + 7) % 7
	return dateOf(ref).AddDate(0, 0, -back)
}

// WeekDates returns the previous Friday and Monday through Thursday of the week ending on thursday.
func WeekDates(thursday time.Time) []time.Time {
	thu := dateOf(thursday)
	return []time.Time{
		thu.AddDate(0, 0, -6),
		thu.AddDate(0, 0, -3),
		thu.AddDate(0, 0, -2),
		thu.AddDate(0, 0, -1),
		thu,
	}
}

// Gather reads the daily reports that exist for dates. Missing files are
// logged and skipped; finding none is ErrNoDailyReports.
func Gather(s *store.Store, dates []time.Time, logger *slog.Logger) ([]model.DailyReport, error) {
	var found []model.DailyReport
	for _, d := range dates {
		day := d.Format(store.DateLayout)
		path := s.DailyPath(d)
		content, ok, err := s.Read(path)
		if err != nil {
			logger.Warn("Could not read standup file, skipping", "date", day, "path", path, "error", err)
			continue
		}
		if !ok {
			logger.Info("No standup file, skipping", "date", day, "path", path)
			continue
		}
		found = append(found, model.DailyReport{Date: day, Path: path, Content: content})
	}
	if len(found) == 0 {
		return nil, custom_errors.ErrNoDailyReports
	}
	return found, nil
}

// CombinedInput concatenates daily reports, each under a "Day" marker.
func CombinedInput(days []model.DailyReport) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = "## Day: " + d.Date + "\n\n" + d.Content
	}
	return strings.Join(parts, daySeparator)
}

// Summarize asks the completer to merge the daily reports. It returns
// Fallback when completer is nil, the call fails or the answer is empty.
func Summarize(ctx context.Context, completer ai.Completer, days []model.DailyReport, logger *slog.Logger) (string, bool) {
	if completer == nil {
		logger.Warn("AI credential not set, cannot summarize")
		return Fallback, false
	}

	out, err := completer.Complete(ctx, ai.Request{
		System:  systemPrompt,
		Prompt:  mergePrompt + "\n\n## Daily stand-up reports\n\n" + CombinedInput(days),
		Timeout: summarizeTimeout,
	})
	if err != nil {
		logger.Warn("AI summary failed", "error", err)
		return Fallback, false
	}
	out = strings.TrimSpace(out)
	if out == "" {
		logger.Warn("AI summary was empty")
		return Fallback, false
	}
	return out, true
}

// Compose appends the sources footer listing the files actually read.
func Compose(body string, days []model.DailyReport) string {
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n---\n\n**Sources (files read):**")
	for _, d := range days {
		b.WriteString("\n- `" + d.Path + "`")
	}
	return b.String()
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
