package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wisbric/shiftroster/internal/cache"
	"github.com/wisbric/shiftroster/internal/config"
	"github.com/wisbric/shiftroster/internal/engine"
	"github.com/wisbric/shiftroster/internal/store"
	"github.com/wisbric/shiftroster/internal/telemetry"
)

// createRunResponse is returned by POST /api/v1/runs.
type createRunResponse struct {
	RunID    uuid.UUID `json:"run_id"`
	Cached   bool      `json:"cached"`
	Coverage float64   `json:"coverage"`
	Warnings []string  `json:"warnings,omitempty"`
}

// handleCreateRun decodes a RunConfig body, generates a schedule (or reuses
// a cached one for an identical configuration), persists the result, and
// posts a Slack summary. While another request holds the run lock for the
// same configuration it answers 409 Conflict instead of generating.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var rc config.RunConfig
	if !DecodeAndValidate(w, r, &rc) {
		return
	}

	cfg, err := rc.Normalize(s.Logger)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	ctx := r.Context()

	if s.Cache != nil {
		if hash, err := cache.ConfigHash(cfg); err == nil {
			if cached, runID, err := s.Cache.GetResult(ctx, hash); err == nil && cached != nil {
				telemetry.RunsTotal.WithLabelValues("cached").Inc()
				Respond(w, http.StatusOK, createRunResponse{
					RunID:    runID,
					Cached:   true,
					Coverage: cached.Statistics.Coverage,
				})
				return
			}

			owner := uuid.New()
			if err := s.Cache.AcquireRunLock(ctx, hash, owner); err == nil {
				defer func() { _ = s.Cache.ReleaseRunLock(ctx, hash, owner) }()
			} else if errors.Is(err, cache.ErrLockHeld) {
				RespondError(w, http.StatusConflict, "conflict", "a run for this configuration is already in progress")
				return
			}
		}
	}

	started := time.Now()
	result, runErr := engine.NewScheduler(cfg, nil).Run()
	if runErr != nil {
		telemetry.GenerationDuration.WithLabelValues("failed").Observe(time.Since(started).Seconds())
		telemetry.RunsTotal.WithLabelValues("failed").Inc()
		s.handleRunFailure(ctx, cfg, runErr)

		var cfgErr *engine.ConfigError
		var dataErr *engine.DataError
		switch {
		case errors.As(runErr, &cfgErr), errors.As(runErr, &dataErr):
			RespondError(w, http.StatusBadRequest, "bad_request", runErr.Error())
		default:
			RespondError(w, http.StatusInternalServerError, "internal", runErr.Error())
		}
		return
	}
	telemetry.GenerationDuration.WithLabelValues("completed").Observe(time.Since(started).Seconds())
	telemetry.RunsTotal.WithLabelValues("completed").Inc()
	telemetry.CoverageRatio.Observe(result.Statistics.Coverage)

	effectiveRestarts := cfg.Restarts
	if effectiveRestarts <= 0 {
		effectiveRestarts = 5
	}
	telemetry.RestartsUsedTotal.Observe(float64(effectiveRestarts))

	runID := uuid.New()
	if s.Store != nil {
		if id, err := s.Store.CreateRun(ctx, cfg, result); err != nil {
			s.Logger.Error("persisting run", "error", err)
		} else {
			runID = id
		}
	}

	if s.Cache != nil {
		if hash, err := cache.ConfigHash(cfg); err == nil {
			if err := s.Cache.PutResult(ctx, hash, runID, result); err != nil {
				s.Logger.Warn("caching run result", "error", err)
			}
		}
	}

	if s.Notify != nil {
		if err := s.Notify.PostRunSummary(ctx, runID, result); err != nil {
			s.Logger.Warn("posting run summary to slack", "error", err)
		}
	}

	Respond(w, http.StatusCreated, createRunResponse{
		RunID:    runID,
		Coverage: result.Statistics.Coverage,
		Warnings: result.Warnings,
	})
}

// handleRunFailure records a run that produced an error instead of a
// schedule and, if Slack notifications are configured, posts a failure
// notice.
func (s *Server) handleRunFailure(ctx context.Context, cfg *engine.Config, runErr error) {
	if s.Store != nil {
		if _, err := s.Store.CreateFailedRun(ctx, cfg, runErr); err != nil {
			s.Logger.Error("persisting failed run", "error", err)
		}
	}
	if s.Notify != nil {
		if err := s.Notify.PostFailure(ctx, uuid.New(), runErr); err != nil {
			s.Logger.Warn("posting failure notice to slack", "error", err)
		}
	}
}

// handleGetRun fetches a persisted run's config, schedule, and statistics.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "bad_request", "invalid run id")
		return
	}

	run, err := s.Store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			RespondError(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		s.Logger.Error("fetching run", "error", err)
		RespondError(w, http.StatusInternalServerError, "internal", "failed to fetch run")
		return
	}

	Respond(w, http.StatusOK, run)
}

// handleGetRunStats fetches only a persisted run's statistics.
func (s *Server) handleGetRunStats(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "bad_request", "invalid run id")
		return
	}

	run, err := s.Store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			RespondError(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		s.Logger.Error("fetching run", "error", err)
		RespondError(w, http.StatusInternalServerError, "internal", "failed to fetch run")
		return
	}

	Respond(w, http.StatusOK, run.Statistics)
}

// handleListRuns returns the most recently created runs.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Store.ListRuns(r.Context(), 50)
	if err != nil {
		s.Logger.Error("listing runs", "error", err)
		RespondError(w, http.StatusInternalServerError, "internal", "failed to list runs")
		return
	}
	Respond(w, http.StatusOK, runs)
}
