// Package api exposes the HTTP control surface for the crawler service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pagelens/crawler/internal/config"
	"github.com/pagelens/crawler/internal/crawler"
)

// JobManager is the orchestrator surface the API depends on.
type JobManager interface {
	CreateJob(id string, cfg crawler.JobConfig) error
	GetStatus(id string) (crawler.JobSnapshot, error)
	Cancel(id string) error
}

// IDGenerator produces job ids when the caller supplies none.
type IDGenerator interface {
	NewID() (string, error)
}

// Server wires HTTP handlers to the orchestrator.
type Server struct {
	router  chi.Router
	manager JobManager
	idGen   IDGenerator
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(manager JobManager, idGen IDGenerator, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		manager: manager,
		idGen:   idGen,
		cfg:     cfg,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Group(func(r chi.Router) {
			if cfg.Auth.Enabled {
				r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
			}
			r.Post("/jobs", s.createJob)
			r.Route("/jobs/{job_id}", func(r chi.Router) {
				r.Get("/status", s.getJobStatus)
				r.Post("/cancel", s.cancelJob)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type createJobRequest struct {
	JobID  string           `json:"job_id"`
	Config jobConfigPayload `json:"config"`
}

type jobConfigPayload struct {
	SeedURLs      []string `json:"seed_urls"`
	MaxPages      *int     `json:"max_pages"`
	MaxDepth      *int     `json:"max_depth"`
	RatePerSecond *float64 `json:"rate_per_second"`
}

type statusResponse struct {
	JobID  string            `json:"job_id"`
	Status crawler.JobStatus `json:"status"`
	Stats  *crawler.JobStats `json:"stats,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return
	}

	jobID := req.JobID
	if jobID == "" {
		generated, err := s.idGen.NewID()
		if err != nil {
			writeError(s.logger, w, http.StatusInternalServerError, "internal", "could not generate job id")
			return
		}
		jobID = generated
	}

	jobCfg := crawler.JobConfig{
		SeedURLs:      req.Config.SeedURLs,
		MaxPages:      valueOrDefault(req.Config.MaxPages, s.cfg.Crawler.MaxPagesDefault),
		MaxDepth:      valueOrDefault(req.Config.MaxDepth, s.cfg.Crawler.MaxDepthDefault),
		RatePerSecond: valueOrDefault(req.Config.RatePerSecond, s.cfg.Crawler.RateDefault),
	}

	if err := s.manager.CreateJob(jobID, jobCfg); err != nil {
		switch {
		case errors.Is(err, crawler.ErrDuplicateJobID):
			writeError(s.logger, w, http.StatusConflict, "duplicate_job_id", err.Error())
		case errors.Is(err, crawler.ErrInvalidConfig):
			writeError(s.logger, w, http.StatusBadRequest, "invalid_config", err.Error())
		default:
			writeError(s.logger, w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": "queued",
	})
}

func (s *Server) getJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	snap, err := s.manager.GetStatus(jobID)
	if err != nil {
		writeError(s.logger, w, http.StatusNotFound, "job_not_found", err.Error())
		return
	}
	resp := statusResponse{JobID: snap.ID, Status: snap.Status}
	if snap.Stats.StartedAt != nil {
		stats := snap.Stats
		resp.Stats = &stats
	}
	writeJSON(s.logger, w, http.StatusOK, resp)
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if err := s.manager.Cancel(jobID); err != nil {
		writeError(s.logger, w, http.StatusNotFound, "job_not_found", err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"status": string(crawler.JobStatusCancelled),
	})
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, code, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg, "code": code})
}
