// Package classifier scores and summarizes single commits through an AI completion call.
package classifier

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"standup-reporter/internal/ai"
	custom_errors "standup-reporter/internal/errors"
	"standup-reporter/internal/model"
)

const (
	// DiffMaxChars bounds the diff sent to the model.
	DiffMaxChars     = 6000
	truncationMarker = "\n... (truncated)"
	requestTimeout   = 30 * time.Second
	systemPrompt     = "You output only valid JSON. No markdown, no explanation outside the JSON."
)

//go:embed prompts/classify.tmpl
var classifyTemplate string

var promptTmpl = template.Must(template.New("classify").Parse(classifyTemplate))

var fenceRe = regexp.MustCompile("(?m)^```(?:json)?\\s*([\\s\\S]*?)```\\s*$")

// notableKeys are tried in order when standupNotable is not a boolean.
var notableKeys = []string{"standupNotable", "standup_notable", "include_in_standup"}

// Input is the part of a commit the model sees.
type Input struct {
	Branch  string
	Message string
	Diff    string
}

// Classifier sends commits to a Completer. A nil completer disables classification.
type Classifier struct {
	completer   ai.Completer
	logger      *slog.Logger
	concurrency int
}

// New creates a Classifier. concurrency bounds in-flight calls in ClassifyAll.
func New(completer ai.Completer, concurrency int, logger *slog.Logger) *Classifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Classifier{
		completer:   completer,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Enabled reports whether a completer is configured.
func (c *Classifier) Enabled() bool {
	return c.completer != nil
}

// Classify classifies one commit. Every failure is a *errors.ClassifyError.
func (c *Classifier) Classify(ctx context.Context, in Input) (model.Classification, error) {
	if c.completer == nil {
		return model.Classification{}, &custom_errors.ClassifyError{Kind: custom_errors.ClassifyNoCredential}
	}

	in.Diff = TruncateDiff(in.Diff)
	prompt, err := BuildPrompt(in)
	if err != nil {
		return model.Classification{}, &custom_errors.ClassifyError{Kind: custom_errors.ClassifyParseError, Err: err}
	}

	content, err := c.completer.Complete(ctx, ai.Request{
		System:  systemPrompt,
		Prompt:  prompt,
		JSON:    true,
		Timeout: requestTimeout,
	})
	if errors.Is(err, ai.ErrEmptyCompletion) {
		return model.Classification{}, &custom_errors.ClassifyError{Kind: custom_errors.ClassifyParseError, Err: err}
	}
	if err != nil {
		return model.Classification{}, &custom_errors.ClassifyError{Kind: custom_errors.ClassifyNetworkError, Err: err}
	}

	result, err := ParseResponse(content)
	if err != nil {
		return model.Classification{}, &custom_errors.ClassifyError{Kind: custom_errors.ClassifyParseError, Err: err}
	}
	return result, nil
}

// ClassifyAll classifies commits concurrently and returns the successes keyed by
// Commit.Key. Failures are logged and leave the commit unclassified.
func (c *Classifier) ClassifyAll(ctx context.Context, commits []model.Commit) model.Classifications {
	out := make(model.Classifications, len(commits))
	if len(commits) == 0 {
		return out
	}
	if c.completer == nil {
		c.logger.Warn("AI credential not set, skipping classification", "commits", len(commits))
		return out
	}

	results := make([]*model.Classification, len(commits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, commit := range commits {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			logger := c.logger.With("short_hash", commit.ShortHash, "repo", commit.Repo, "subject", clip(commit.Subject, 50))

			message := commit.Message
			if message == "" {
				message = commit.Subject
			}
			result, err := c.Classify(gctx, Input{Message: message, Diff: commit.DiffText()})
			if err != nil {
				logger.Warn("No classification", "error", err)
				return nil
			}

			logger.Info("Classified commit",
				"category", result.Category,
				"impact_score", result.ImpactScore,
				"standup_notable", result.Notable,
				"bullet_summary", clip(result.BulletSummary, 80),
				"reasoning", clip(result.Reasoning, 120),
			)
			results[i] = &result
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range results {
		if r != nil {
			out[commits[i].Key()] = *r
		}
	}
	return out
}

// TruncateDiff cuts diff to DiffMaxChars characters and marks the cut.
func TruncateDiff(diff string) string {
	if utf8.RuneCountInString(diff) <= DiffMaxChars {
		return diff
	}
	runes := []rune(diff)
	return string(runes[:DiffMaxChars]) + truncationMarker
}

// BuildPrompt renders the classification instructions for one commit.
func BuildPrompt(in Input) (string, error) {
	var b strings.Builder
	err := promptTmpl.Execute(&b, struct {
		Input
		Categories []model.Category
	}{in, model.Categories})
	if err != nil {
		return "", fmt.Errorf("rendering classify prompt: %w", err)
	}
	return b.String(), nil
}

// ParseResponse decodes the model's answer. A surrounding code fence is
// stripped, impact_score is coerced to a number (default 1) and the notable
// flag falls back through alternate field names.
func ParseResponse(raw string) (model.Classification, error) {
	text := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return model.Classification{}, fmt.Errorf("decoding classification: %w", err)
	}
	if fields == nil {
		return model.Classification{}, errors.New("decoding classification: response is null")
	}

	return model.Classification{
		Category:      model.Category(textField(fields["category"])),
		ImpactScore:   coerceImpact(fields["impact_score"]),
		Notable:       coerceNotable(fields),
		BulletSummary: textField(fields["bullet_summary"]),
		Reasoning:     textField(fields["reasoning"]),
	}, nil
}

func coerceImpact(raw json.RawMessage) int {
	if isNull(raw) {
		return 1
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f)
		}
	}
	return 1
}

func coerceNotable(fields map[string]json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(fields["standupNotable"], &b); err == nil && !isNull(fields["standupNotable"]) {
		return b
	}
	for _, key := range notableKeys {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			continue
		}
		return truthy(raw)
	}
	return false
}

// truthy applies loose truthiness: false, 0, "" and null are false.
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}

// textField returns a JSON string's value, or the raw JSON for other non-null values.
func textField(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
