// Package pipeline orchestrates a release run: provision steps, primary
// publishers, the pre-release gate, gated publishers, and stable-branch
// promotion, executed strictly in order with fail-fast semantics.
//
// The gate is control flow, not an error: a pre-release tag ends the run in
// the HALTED state after the primary publishers, and every gated step is
// journaled as SKIPPED.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/executor"
	"github.com/input-output-hk/catalyst-forge-release/gate"
	"github.com/input-output-hk/catalyst-forge-release/git"
	"github.com/input-output-hk/catalyst-forge-release/metrics"
	"github.com/input-output-hk/catalyst-forge-release/notes"
	"github.com/input-output-hk/catalyst-forge-release/promote"
	"github.com/input-output-hk/catalyst-forge-release/publish"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
	"github.com/input-output-hk/catalyst-forge-release/secrets/providers/env"
	"github.com/input-output-hk/catalyst-forge-release/secrets/providers/file"
	"github.com/input-output-hk/catalyst-forge-release/store"
	"github.com/input-output-hk/catalyst-forge-release/trigger"
	"github.com/input-output-hk/catalyst-forge-release/version"
)

// BoundPublisher pairs a publisher with its gate placement.
type BoundPublisher struct {
	Publisher publish.Publisher

	// Gated publishers run only after the gate lets a stable release
	// through.
	Gated bool
}

// Engine executes release runs for one configured project.
type Engine struct {
	cfg        *config.Config
	matcher    *trigger.Matcher
	gate       *gate.Gate
	secrets    *secrets.Manager
	runner     *executor.Runner
	publishers []BoundPublisher
	promoter   *promote.Promoter
	notes      *notes.Generator
	journal    *store.Store
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithStore sets the run journal.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.journal = s }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPublishers replaces the publishers built from configuration.
func WithPublishers(publishers []BoundPublisher) Option {
	return func(e *Engine) { e.publishers = publishers }
}

// WithSecretsManager replaces the secrets manager built from configuration.
// The engine's runner is rebuilt on the new manager's redactor.
func WithSecretsManager(m *secrets.Manager) Option {
	return func(e *Engine) {
		e.secrets = m
		e.runner = executor.New(executor.WithRedactor(m.Redactor()))
	}
}

// New builds an Engine from a validated pipeline definition.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "pipeline definition is required")
	}

	manager, err := newSecretsManager(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		matcher: newMatcher(cfg),
		gate:    cfg.NewGate(),
		secrets: manager,
		runner:  executor.New(executor.WithRedactor(manager.Redactor())),
		notes:   notes.NewGenerator(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.publishers == nil {
		publishers, err := BuildPublishers(cfg, e.runner, e.secrets, e.logger)
		if err != nil {
			return nil, err
		}
		e.publishers = publishers
	}

	if cfg.Promotion.Enabled && e.promoter == nil {
		promoter, err := promote.New(promote.Options{
			Branch:        cfg.Promotion.Branch,
			Remote:        cfg.Promotion.Remote,
			Mode:          promote.Mode(cfg.Promotion.Mode),
			CreateMissing: cfg.Promotion.CreateMissing,
			AutoMerge:     cfg.Promotion.AutoMerge,
		}, e.runner, e.logger)
		if err != nil {
			return nil, err
		}
		e.promoter = promoter
	}

	return e, nil
}

// Close releases the engine's secret providers.
func (e *Engine) Close() error {
	return e.secrets.Close()
}

// Secrets returns the engine's secrets manager.
func (e *Engine) Secrets() *secrets.Manager {
	return e.secrets
}

// Matcher returns the engine's trigger matcher.
func (e *Engine) Matcher() *trigger.Matcher {
	return e.matcher
}

// newMatcher builds the trigger matcher from configuration.
func newMatcher(cfg *config.Config) *trigger.Matcher {
	matcher := trigger.NewMatcher(cfg.Trigger.Pattern)
	if cfg.Trigger.Exclude != "" {
		matcher = matcher.WithExclude(cfg.Trigger.Exclude)
	}
	return matcher
}

// newSecretsManager builds the secrets manager from configuration.
func newSecretsManager(cfg *config.Config) (*secrets.Manager, error) {
	manager := secrets.NewManager(&secrets.Config{
		DefaultProvider: cfg.Secrets.Provider,
		AutoClear:       cfg.Secrets.AutoClear,
	})

	switch cfg.Secrets.Provider {
	case "env":
		provider := env.New()
		if cfg.Secrets.Prefix != "" {
			provider = env.NewWithPrefix(cfg.Secrets.Prefix)
		}
		if err := manager.Register("env", provider); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to register env provider")
		}
	case "file":
		if err := manager.Register("file", file.New(cfg.Secrets.Dir)); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to register file provider")
		}
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig,
			"unknown secrets provider %q", cfg.Secrets.Provider)
	}

	return manager, nil
}

// RunRequest identifies one release to execute.
type RunRequest struct {
	// RepoPath is the checkout of the project containing the tag.
	RepoPath string

	// Tag is the version tag to release.
	Tag string

	// TriggeredBy identifies who or what initiated the run.
	TriggeredBy string

	// TriggerType is "webhook" or "manual".
	TriggerType string
}

// Run executes a release run end to end. The returned PipelineRun reflects
// the final journaled state; the error is non-nil only for failed runs and
// rejected triggers, never for gate halts.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*domain.PipelineRun, error) {
	if req.RepoPath == "" {
		return nil, errors.New(errors.CodeInvalidInput, "repository path is required")
	}
	if !e.matcher.MatchTag(req.Tag) {
		return nil, errors.Newf(errors.CodeTriggerRejected,
			"tag %q does not match release pattern %q", req.Tag, e.cfg.Trigger.Pattern)
	}

	started := time.Now().UTC()
	run := &domain.PipelineRun{
		ID:          uuid.NewString(),
		Project:     e.cfg.Project,
		Tag:         req.Tag,
		TriggeredBy: req.TriggeredBy,
		TriggerType: req.TriggerType,
		Status:      domain.StatusRunning,
		StartedAt:   &started,
		CreatedAt:   started,
	}

	logger := e.logger.With("run_id", run.ID, "tag", req.Tag, "project", run.Project)
	logger.Info("release run started", "triggered_by", req.TriggeredBy)

	// An unparseable tag can never pass the gate, so it halts before any
	// step runs rather than after the primary publishers.
	parsed, err := version.Parse(req.Tag)
	if err != nil {
		decision := e.gate.Check(req.Tag)
		return e.finishHalted(ctx, run, decision.Reason, started, logger), nil
	}

	e.insertRun(ctx, run, logger)

	repo, err := e.openRepo(ctx, req.RepoPath)
	if err != nil {
		return e.finishFailed(ctx, run, started, logger), err
	}

	commitSHA, err := repo.ResolveTag(ctx, req.Tag)
	if err != nil {
		wrapped := errors.WrapWithContext(err, errors.CodeGit,
			"failed to resolve release tag",
			map[string]interface{}{"tag": req.Tag})
		return e.finishFailed(ctx, run, started, logger), wrapped
	}
	run.CommitSHA = commitSHA

	run.Notes = e.releaseNotes(ctx, repo, parsed, logger)

	pubReq := &publish.Request{
		Project:   run.Project,
		Tag:       req.Tag,
		Version:   parsed.Semver(),
		CommitSHA: commitSHA,
		WorkDir:   req.RepoPath,
		Notes:     run.Notes,
	}

	plan := e.buildPlan(repo, pubReq)
	runErr := e.executePlan(ctx, run, plan, logger)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	e.updateRun(ctx, run, logger)

	e.metrics.IncrementRunOutcome(run.Status.String())
	e.metrics.ObserveRunLatency(completed.Sub(started))

	logger.Info("release run finished", "status", run.Status.String(),
		"duration", completed.Sub(started).String())
	return run, runErr
}

// openRepo opens the project checkout, attaching push auth when configured.
func (e *Engine) openRepo(ctx context.Context, path string) (*git.Repo, error) {
	opts := &git.Options{Path: path}

	if e.cfg.Promotion.Enabled && e.cfg.Promotion.TokenRef != "" {
		token, err := e.secrets.Resolve(ctx, secrets.Ref{Path: e.cfg.Promotion.TokenRef})
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeSecretResolution,
				"failed to resolve promotion token")
		}
		opts.Auth = git.NewTokenAuthProvider(token.String())
	}

	repo, err := git.Open(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGit, "failed to open project repository")
	}
	return repo, nil
}

// releaseNotes renders the conventional-commit notes for the range since
// the previous stable release. Note generation is best effort: a failure
// degrades to empty notes, never to a failed run.
func (e *Engine) releaseNotes(ctx context.Context, repo *git.Repo, v *version.Version, logger *slog.Logger) string {
	tags, err := repo.Tags(ctx)
	if err != nil {
		logger.Warn("failed to list tags for release notes", "error", err)
		return ""
	}

	previous := version.PreviousStable(v, tags)
	commits, err := repo.CommitsBetween(ctx, previous, v.Tag())
	if err != nil {
		logger.Warn("failed to walk commit range for release notes",
			"from", previous, "error", err)
		return ""
	}

	return e.notes.Generate(v.Tag(), commits).Markdown()
}

// planStep is one entry of the sequential run plan.
type planStep struct {
	name  string
	kind  domain.StepKind
	gated bool
	run   func(ctx context.Context) (output string, exitCode int, err error)
}

// buildPlan assembles the sequential plan: provision, primary publishers,
// gate, gated publishers, promotion.
func (e *Engine) buildPlan(repo *git.Repo, pubReq *publish.Request) []planStep {
	var plan []planStep

	for _, step := range e.cfg.Provision {
		spec := executor.Spec{
			Program: step.Command[0],
			Args:    step.Command[1:],
			Dir:     pubReq.WorkDir,
			Env:     pubReq.Env(),
			Timeout: step.Timeout.Std(),
			Retries: step.Retries,
		}
		plan = append(plan, planStep{
			name: step.Name,
			kind: domain.StepKindProvision,
			run: func(ctx context.Context) (string, int, error) {
				result, err := e.runner.Run(ctx, spec)
				return publish.Excerpt(result.Combined(), publish.ExcerptLimit), result.ExitCode, err
			},
		})
	}

	appendPublishers := func(gated bool) {
		for _, bound := range e.publishers {
			if bound.Gated != gated {
				continue
			}
			pub := bound.Publisher
			plan = append(plan, planStep{
				name:  fmt.Sprintf("publish-%s", pub.Name()),
				kind:  domain.StepKindPublish,
				gated: gated,
				run: func(ctx context.Context) (string, int, error) {
					return "", 0, pub.Publish(ctx, pubReq)
				},
			})
		}
	}

	appendPublishers(false)

	plan = append(plan, planStep{
		name: "pre-release-gate",
		kind: domain.StepKindGate,
		run:  nil, // handled by executePlan
	})

	appendPublishers(true)

	if e.promoter != nil {
		plan = append(plan, planStep{
			name:  "promote-stable",
			kind:  domain.StepKindPromote,
			gated: true,
			run: func(ctx context.Context) (string, int, error) {
				return "", 0, e.promoter.Promote(ctx, repo, pubReq.Tag, pubReq.Notes)
			},
		})
	}

	return plan
}

// executePlan runs the plan sequentially. The first failure marks the run
// FAILED and skips the remainder; a gate halt marks the run HALTED and
// skips the gated remainder.
func (e *Engine) executePlan(ctx context.Context, run *domain.PipelineRun, plan []planStep, logger *slog.Logger) error {
	var runErr error
	halted := false

	for sequence, step := range plan {
		record := &domain.StepExecution{
			ID:       uuid.NewString(),
			RunID:    run.ID,
			Name:     step.name,
			Kind:     step.kind,
			Sequence: sequence,
		}

		if runErr != nil || halted {
			record.Status = domain.StatusSkipped
			e.recordStep(ctx, record, logger)
			continue
		}

		stepStart := time.Now().UTC()
		record.StartedAt = &stepStart

		if step.kind == domain.StepKindGate {
			decision := e.gate.Check(run.Tag)
			e.metrics.IncrementGateDecision(decision.Outcome.String())

			if decision.Outcome == gate.Halt {
				halted = true
				run.Status = domain.StatusHalted
				run.HaltReason = decision.Reason
				record.Status = domain.StatusHalted
				record.Output = decision.Reason
				logger.Info("gate halted the run", "reason", decision.Reason)
			} else {
				record.Status = domain.StatusSuccess
				logger.Info("gate passed, continuing to gated steps")
			}
		} else {
			record.Status = domain.StatusRunning
			e.recordStep(ctx, record, logger)
			logger.Info("step started", "step", step.name, "kind", step.kind.String())

			output, exitCode, err := step.run(ctx)
			record.Output = output
			record.ExitCode = exitCode

			if err != nil {
				record.Status = domain.StatusFailed
				record.Error = err.Error()
				run.Status = domain.StatusFailed
				runErr = errors.WrapWithContext(err, errors.CodeExecutionFailed,
					"pipeline step failed",
					map[string]interface{}{"step": step.name})
				logger.Error("step failed", "step", step.name, "error", err)
			} else {
				record.Status = domain.StatusSuccess
				logger.Info("step finished", "step", step.name)
			}
		}

		stepEnd := time.Now().UTC()
		record.CompletedAt = &stepEnd
		e.recordStep(ctx, record, logger)
		e.metrics.ObserveStepLatency(step.kind.String(), stepEnd.Sub(stepStart))
	}

	if runErr == nil && !halted {
		run.Status = domain.StatusSuccess
	}
	return runErr
}

// finishHalted journals a run that halted before any step executed.
func (e *Engine) finishHalted(ctx context.Context, run *domain.PipelineRun, reason string, started time.Time, logger *slog.Logger) *domain.PipelineRun {
	completed := time.Now().UTC()
	run.Status = domain.StatusHalted
	run.HaltReason = reason
	run.CompletedAt = &completed

	e.insertRun(ctx, run, logger)
	e.metrics.IncrementGateDecision(gate.Halt.String())
	e.metrics.IncrementRunOutcome(run.Status.String())
	e.metrics.ObserveRunLatency(completed.Sub(started))

	logger.Info("release run halted before execution", "reason", reason)
	return run
}

// finishFailed journals a run that failed before the plan started.
func (e *Engine) finishFailed(ctx context.Context, run *domain.PipelineRun, started time.Time, logger *slog.Logger) *domain.PipelineRun {
	completed := time.Now().UTC()
	run.Status = domain.StatusFailed
	run.CompletedAt = &completed

	e.updateRun(ctx, run, logger)
	e.metrics.IncrementRunOutcome(run.Status.String())
	e.metrics.ObserveRunLatency(completed.Sub(started))
	return run
}

// Journal writes are best effort: a journaling failure is logged, never
// allowed to fail the release itself.

func (e *Engine) insertRun(ctx context.Context, run *domain.PipelineRun, logger *slog.Logger) {
	if e.journal == nil {
		return
	}
	if err := e.journal.InsertRun(ctx, run); err != nil {
		logger.Warn("failed to journal run", "error", err)
	}
}

func (e *Engine) updateRun(ctx context.Context, run *domain.PipelineRun, logger *slog.Logger) {
	if e.journal == nil {
		return
	}
	if err := e.journal.UpdateRun(ctx, run); err != nil {
		logger.Warn("failed to update journaled run", "error", err)
	}
}

func (e *Engine) recordStep(ctx context.Context, step *domain.StepExecution, logger *slog.Logger) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordStep(ctx, step); err != nil {
		logger.Warn("failed to journal step", "step", step.Name, "error", err)
	}
}
