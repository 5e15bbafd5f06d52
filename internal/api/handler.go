// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	custom_errors "standup-reporter/internal/errors"
	"standup-reporter/internal/standup"
	"standup-reporter/internal/store"
	"standup-reporter/internal/weekly"
)

// ReportRunner runs the report pipelines.
type ReportRunner interface {
	Daily(ctx context.Context) (*standup.DailyResult, error)
	Weekly(ctx context.Context, ref time.Time, sendEmail bool) (*standup.WeeklyResult, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	runner ReportRunner
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(runner ReportRunner, st *store.Store, verifier TokenVerifier, logger *slog.Logger) http.Handler {
	h := &Handler{
		runner: runner,
		store:  st,
		logger: logger,
		now:    time.Now,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/hello", h.hello)
	r.Get("/health", h.healthCheck)

	// API Routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(Authorization(verifier, logger))
		r.Get("/me", h.me)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/reports/daily/{date}", h.getDailyReport)
			r.Get("/reports/weekly/{date}", h.getWeeklyReport)
		})

		// Runs call GitHub and the AI backend for every commit, so they get a longer budget.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(10 * time.Minute))
			r.Post("/reports/daily", h.runDailyReport)
			r.Post("/reports/weekly", h.runWeeklyReport)
		})
	})

	return r
}

func (h *Handler) hello(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"hello": "world"})
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// me returns the caller identity resolved by the authorization middleware.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, UserFromContext(r.Context()))
}

// getDailyReport returns a previously written daily report.
// GET /v1/reports/daily/{date}
func (h *Handler) getDailyReport(w http.ResponseWriter, r *http.Request) {
	day, ok := parseDate(w, chi.URLParam(r, "date"))
	if !ok {
		return
	}
	h.serveReport(w, h.store.DailyPath(day))
}

// getWeeklyReport returns the weekly report for the week containing {date}.
// GET /v1/reports/weekly/{date}
func (h *Handler) getWeeklyReport(w http.ResponseWriter, r *http.Request) {
	day, ok := parseDate(w, chi.URLParam(r, "date"))
	if !ok {
		return
	}
	h.serveReport(w, h.store.WeeklyPath(weekly.WeekEndingThursday(day)))
}

func (h *Handler) serveReport(w http.ResponseWriter, path string) {
	content, found, err := h.store.Read(path)
	if err != nil {
		h.logger.Error("Failed to read report", "path", path, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !found {
		respondWithError(w, http.StatusNotFound, "Report not found")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

type dailyResponse struct {
	Path       string `json:"path"`
	Report     string `json:"report"`
	Commits    int    `json:"commits"`
	Repos      int    `json:"repos"`
	Classified int    `json:"classified"`
}

// runDailyReport runs the daily pipeline now.
// POST /v1/reports/daily
func (h *Handler) runDailyReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Daily(r.Context())
	if err != nil {
		h.respondWithRunError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dailyResponse{
		Path:       result.Path,
		Report:     result.Text,
		Commits:    result.Stats.Commits,
		Repos:      result.Stats.Repos,
		Classified: result.Stats.Classified,
	})
}

type weeklyResponse struct {
	Path       string   `json:"path"`
	Report     string   `json:"report"`
	WeekEnding string   `json:"week_ending"`
	Sources    []string `json:"sources"`
	Summarized bool     `json:"summarized"`
	Emailed    bool     `json:"emailed"`
}

// runWeeklyReport runs the weekly pipeline.
// POST /v1/reports/weekly?date=YYYY-MM-DD&email=true
func (h *Handler) runWeeklyReport(w http.ResponseWriter, r *http.Request) {
	ref := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, ok := parseDate(w, raw)
		if !ok {
			return
		}
		ref = day
	}
	sendEmail := false
	if raw := r.URL.Query().Get("email"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'email' parameter. Must be true or false.")
			return
		}
		sendEmail = v
	}

	result, err := h.runner.Weekly(r.Context(), ref, sendEmail)
	if err != nil {
		h.respondWithRunError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, weeklyResponse{
		Path:       result.Path,
		Report:     result.Text,
		WeekEnding: result.WeekEnding,
		Sources:    result.Sources,
		Summarized: result.Summarized,
		Emailed:    result.Emailed,
	})
}

func (h *Handler) respondWithRunError(w http.ResponseWriter, err error) {
	var missing *custom_errors.ErrMissingCredential
	var listErr *custom_errors.RepoListError
	switch {
	case errors.Is(err, custom_errors.ErrNoDailyReports):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &missing):
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &listErr):
		h.logger.Error("Failed to list repositories", "error", err)
		respondWithError(w, http.StatusBadGateway, "Failed to list repositories")
	default:
		h.logger.Error("Report run failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	day, err := time.ParseInLocation(store.DateLayout, raw, time.Local)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid date. Must be YYYY-MM-DD.")
		return time.Time{}, false
	}
	return day, true
}
