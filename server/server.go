// Package server exposes the release pipeline as a webhook daemon. It
// receives push events, queues matching tag pushes for sequential release
// execution, and serves the run journal and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/git"
	"github.com/input-output-hk/catalyst-forge-release/pipeline"
	"github.com/input-output-hk/catalyst-forge-release/store"
	"github.com/input-output-hk/catalyst-forge-release/trigger"
)

// Releaser executes release runs. *pipeline.Engine satisfies this.
type Releaser interface {
	Run(ctx context.Context, req pipeline.RunRequest) (*domain.PipelineRun, error)
}

// WorkspaceFunc prepares a checkout of the project for a release run and
// returns its path plus a cleanup function.
type WorkspaceFunc func(ctx context.Context, tag string) (string, func(), error)

// runJob is one queued release.
type runJob struct {
	tag    string
	pusher string
}

// Server is the webhook daemon.
type Server struct {
	cfg       *config.Config
	releaser  Releaser
	matcher   *trigger.Matcher
	journal   *store.Store
	logger    *slog.Logger
	workspace WorkspaceFunc

	jobs   chan runJob
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithWorkspaceFunc overrides how release checkouts are prepared.
func WithWorkspaceFunc(fn WorkspaceFunc) Option {
	return func(s *Server) { s.workspace = fn }
}

// WithQueueSize sets the release queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Server) { s.jobs = make(chan runJob, n) }
}

// New creates the webhook daemon around a release engine.
func New(cfg *config.Config, releaser Releaser, matcher *trigger.Matcher, journal *store.Store, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		releaser: releaser,
		matcher:  matcher,
		journal:  journal,
		logger:   logger,
		jobs:     make(chan runJob, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workspace == nil {
		s.workspace = s.cloneWorkspace
	}

	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler, for serving and for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP and processes the release queue until the context is
// cancelled. Releases execute strictly one at a time.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook daemon listening", "addr", s.cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	go s.runWorker(ctx)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// runWorker drains the release queue sequentially.
func (s *Server) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.processJob(ctx, job)
		}
	}
}

func (s *Server) processJob(ctx context.Context, job runJob) {
	workDir, cleanup, err := s.workspace(ctx, job.tag)
	if err != nil {
		s.logger.Error("failed to prepare release workspace", "tag", job.tag, "error", err)
		return
	}
	defer cleanup()

	run, err := s.releaser.Run(ctx, pipeline.RunRequest{
		RepoPath:    workDir,
		Tag:         job.tag,
		TriggeredBy: job.pusher,
		TriggerType: "webhook",
	})
	if err != nil {
		s.logger.Error("release run failed", "tag", job.tag, "error", err)
		return
	}
	s.logger.Info("release run completed", "tag", job.tag, "status", run.Status.String())
}

// cloneWorkspace clones the configured project repository into a
// temporary directory.
func (s *Server) cloneWorkspace(ctx context.Context, tag string) (string, func(), error) {
	if s.cfg.Repository == "" {
		return "", nil, errors.New(errors.CodeInvalidConfig,
			"server mode requires a repository URL in the pipeline definition")
	}

	dir, err := os.MkdirTemp("", "forge-release-*")
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CodeInternal, "failed to create workspace")
	}
	cleanup := func() { os.RemoveAll(dir) }

	if _, err := git.Clone(ctx, s.cfg.Repository, &git.Options{Path: dir}); err != nil {
		cleanup()
		return "", nil, errors.Wrap(err, errors.CodeGit, "failed to clone project repository")
	}
	return dir, cleanup, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/webhooks/push", s.handlePush)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// handlePush receives a push event and queues matching tag pushes.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var event trigger.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeInvalidInput, "invalid push event payload"))
		return
	}

	tag, err := s.matcher.Match(event)
	if err != nil {
		s.logger.Info("push event rejected", "ref", event.Ref, "error", err)
		writeError(w, err)
		return
	}

	select {
	case s.jobs <- runJob{tag: tag, pusher: event.Pusher}:
	default:
		writeError(w, errors.New(errors.CodeInternal, "release queue is full"))
		return
	}

	s.logger.Info("release queued", "tag", tag, "pusher", event.Pusher)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "queued",
		"tag":    tag,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, errors.New(errors.CodeStorage, "run journal is not configured"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, errors.Newf(errors.CodeInvalidInput, "invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	runs, err := s.journal.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []domain.PipelineRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// runDetail is the GET /runs/{id} response body.
type runDetail struct {
	Run   *domain.PipelineRun    `json:"run"`
	Steps []domain.StepExecution `json:"steps"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, errors.New(errors.CodeStorage, "run journal is not configured"))
		return
	}

	run, steps, err := s.journal.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if steps == nil {
		steps = []domain.StepExecution{}
	}
	writeJSON(w, http.StatusOK, runDetail{Run: run, Steps: steps})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps error codes to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.CodeInvalidInput, errors.CodeInvalidConfig:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeTriggerRejected:
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
