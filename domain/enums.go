// Package domain provides canonical type definitions for release pipeline entities.
package domain

// RunStatus represents the execution status of a pipeline run or step.
type RunStatus string

const (
	// StatusPending indicates execution is queued but not yet started.
	StatusPending RunStatus = "PENDING"

	// StatusRunning indicates execution is currently in progress.
	StatusRunning RunStatus = "RUNNING"

	// StatusSuccess indicates execution completed successfully.
	StatusSuccess RunStatus = "SUCCESS"

	// StatusFailed indicates execution completed with errors.
	StatusFailed RunStatus = "FAILED"

	// StatusHalted indicates the pre-release gate intentionally stopped the
	// run before the gated steps. This is a terminal, non-error status.
	StatusHalted RunStatus = "HALTED"

	// StatusSkipped indicates a step never ran because an earlier step
	// failed or the gate halted the run.
	StatusSkipped RunStatus = "SKIPPED"

	// StatusCancelled indicates execution was cancelled before completion.
	StatusCancelled RunStatus = "CANCELLED"
)

// String returns the string representation of the RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// Terminal reports whether the status represents a finished run.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusHalted, StatusCancelled:
		return true
	default:
		return false
	}
}

// StepKind classifies a step within the pipeline plan.
type StepKind string

const (
	// StepKindProvision represents an environment provisioning command.
	StepKindProvision StepKind = "PROVISION"

	// StepKindPublish represents a publisher step.
	StepKindPublish StepKind = "PUBLISH"

	// StepKindGate represents the pre-release gate check.
	StepKindGate StepKind = "GATE"

	// StepKindPromote represents the stable-branch promotion step.
	StepKindPromote StepKind = "PROMOTE"
)

// String returns the string representation of the StepKind.
func (k StepKind) String() string {
	return string(k)
}
