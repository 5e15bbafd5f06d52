package weekly

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"standup-reporter/internal/ai"
	custom_errors "standup-reporter/internal/errors"
	"standup-reporter/internal/model"
	"standup-reporter/internal/store"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockCompleter) Name() string { return "mock" }

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func day(d int) time.Time {
	return time.Date(2026, time.October, d, 9, 30, 0, 0, time.UTC)
}

func TestWeekEndingThursday(t *testing.T) {
	thursday := time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ref  time.Time
	}{
		{"thursday itself", day(15)},
		{"friday after", day(16)},
		{"sunday after", day(18)},
		{"monday after", day(19)},
		{"wednesday after", day(21)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, thursday, WeekEndingThursday(tt.ref))
		})
	}

	assert.Equal(t, time.Date(2026, time.October, 22, 0, 0, 0, 0, time.UTC), WeekEndingThursday(day(22)))
}

func TestWeekDates(t *testing.T) {
	got := WeekDates(day(15))

	var labels []string
	for _, d := range got {
		labels = append(labels, d.Format("Mon 2006-01-02"))
	}
	assert.Equal(t, []string{
		"Fri 2026-10-09",
		"Mon 2026-10-12",
		"Tue 2026-10-13",
		"Wed 2026-10-14",
		"Thu 2026-10-15",
	}, labels)
}

func TestGather(t *testing.T) {
	t.Run("uses exactly the files that exist", func(t *testing.T) {
		s := store.New(afero.NewMemMapFs(), "daily-standup", "weekly-standup")
		require.NoError(t, s.Write("daily-standup/standup-2026-10-12.md", "monday"))
		require.NoError(t, s.Write("daily-standup/standup-2026-10-15.md", "thursday"))

		days, err := Gather(s, WeekDates(day(15)), discard)

		require.NoError(t, err)
		assert.Equal(t, []model.DailyReport{
			{Date: "2026-10-12", Path: "daily-standup/standup-2026-10-12.md", Content: "monday"},
			{Date: "2026-10-15", Path: "daily-standup/standup-2026-10-15.md", Content: "thursday"},
		}, days)

		footer := Compose("body", days)
		assert.Equal(t, 2, strings.Count(footer, "\n- `"))
		assert.Contains(t, footer, "- `daily-standup/standup-2026-10-12.md`")
		assert.Contains(t, footer, "- `daily-standup/standup-2026-10-15.md`")
	})

	t.Run("no files is fatal", func(t *testing.T) {
		s := store.New(afero.NewMemMapFs(), "daily-standup", "weekly-standup")

		_, err := Gather(s, WeekDates(day(15)), discard)

		assert.ErrorIs(t, err, custom_errors.ErrNoDailyReports)
	})
}

func TestCombinedInput(t *testing.T) {
	got := CombinedInput([]model.DailyReport{
		{Date: "2026-10-12", Content: "A"},
		{Date: "2026-10-13", Content: "B"},
	})

	assert.Equal(t, "## Day: 2026-10-12\n\nA\n\n---\n\n## Day: 2026-10-13\n\nB", got)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	days := []model.DailyReport{{Date: "2026-10-15", Path: "p", Content: "Repositories\nweb"}}

	t.Run("returns the trimmed merge", func(t *testing.T) {
		m := new(MockCompleter)
		m.On("Complete", ctx, mock.MatchedBy(func(req ai.Request) bool {
			return req.Timeout == summarizeTimeout &&
				strings.HasPrefix(req.Prompt, mergePrompt) &&
				strings.HasSuffix(req.Prompt, "## Daily stand-up reports\n\n## Day: 2026-10-15\n\nRepositories\nweb")
		})).Return("\nRepositories\nweb\n", nil).Once()

		out, ok := Summarize(ctx, m, days, discard)

		assert.True(t, ok)
		assert.Equal(t, "Repositories\nweb", out)
		m.AssertExpectations(t)
	})

	t.Run("falls back without a completer", func(t *testing.T) {
		out, ok := Summarize(ctx, nil, days, discard)

		assert.False(t, ok)
		assert.Equal(t, Fallback, out)
	})

	t.Run("falls back on failure or empty output", func(t *testing.T) {
		failing := new(MockCompleter)
		failing.On("Complete", ctx, mock.Anything).Return("", errors.New("502")).Once()
		out, ok := Summarize(ctx, failing, days, discard)
		assert.False(t, ok)
		assert.Equal(t, Fallback, out)

		blank := new(MockCompleter)
		blank.On("Complete", ctx, mock.Anything).Return("   ", nil).Once()
		out, ok = Summarize(ctx, blank, days, discard)
		assert.False(t, ok)
		assert.Equal(t, Fallback, out)
	})
}

func TestCompose(t *testing.T) {
	got := Compose(Fallback, []model.DailyReport{{Path: "daily-standup/standup-2026-10-15.md"}})

	assert.Equal(t, Fallback+"\n\n---\n\n**Sources (files read):**\n- `daily-standup/standup-2026-10-15.md`", got)
}
