// Package domain provides canonical type definitions for release pipeline entities.
package domain

import "time"

// PipelineRun represents one complete execution of the release pipeline for a
// single version tag. It tracks overall status and the gate outcome.
type PipelineRun struct {
	// ID is the unique identifier for this run (UUID).
	ID string `json:"id" db:"id"`

	// Project is the name of the project being released.
	Project string `json:"project" db:"project"`

	// Tag is the version tag that triggered this run (e.g. "v1.2.0").
	Tag string `json:"tag" db:"tag"`

	// CommitSHA is the commit the tag resolves to.
	CommitSHA string `json:"commit_sha" db:"commit_sha"`

	// TriggeredBy identifies who or what initiated this run.
	TriggeredBy string `json:"triggered_by" db:"triggered_by"`

	// TriggerType indicates how the run was triggered (webhook, manual).
	TriggerType string `json:"trigger_type" db:"trigger_type"`

	// Status represents the current execution status of the run.
	Status RunStatus `json:"status" db:"status"`

	// HaltReason explains why the gate halted the run. Empty unless Status is HALTED.
	HaltReason string `json:"halt_reason,omitempty" db:"halt_reason"`

	// Notes holds the rendered release notes for this tag, if generated.
	Notes string `json:"notes,omitempty" db:"notes"`

	// StartedAt is when execution began. Nil if not yet started.
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`

	// CompletedAt is when execution finished. Nil if still running.
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// CreatedAt is when this run record was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StepExecution represents the execution of a single step within a run.
// Steps are individual actions (provision commands, publishers, the gate,
// promotion) that produce output and an exit code.
type StepExecution struct {
	// ID is the unique identifier for this step execution (UUID).
	ID string `json:"id" db:"id"`

	// RunID is the foreign key reference to the parent PipelineRun.
	RunID string `json:"run_id" db:"run_id"`

	// Name is the configured name of this step (e.g. "publish-registry").
	Name string `json:"name" db:"name"`

	// Kind classifies the step within the pipeline plan.
	Kind StepKind `json:"kind" db:"kind"`

	// Sequence is the zero-based position of the step in the plan.
	Sequence int `json:"sequence" db:"sequence"`

	// Status represents the execution status of the step.
	Status RunStatus `json:"status" db:"status"`

	// ExitCode is the process exit code for command steps. Zero otherwise.
	ExitCode int `json:"exit_code" db:"exit_code"`

	// Output holds a redacted excerpt of the step's combined output.
	// Secret values are rewritten before this field is ever populated.
	Output string `json:"output,omitempty" db:"output"`

	// Error holds the failure message for failed steps.
	Error string `json:"error,omitempty" db:"error"`

	// StartedAt is when the step began. Nil if never started.
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`

	// CompletedAt is when the step finished. Nil if still running or skipped.
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
