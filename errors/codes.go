// Package errors provides the foundational error handling system for the
// release pipeline. It extends Go's standard error handling with structured
// error codes and context preservation.
package errors

// ErrorCode represents a specific error condition in the release pipeline.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates a resource already exists and cannot be created again.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeInvalidTag indicates a tag is not a valid version tag.
	CodeInvalidTag ErrorCode = "INVALID_TAG"

	// Trigger and gate outcomes.

	// CodeTriggerRejected indicates an event did not match the trigger rules.
	CodeTriggerRejected ErrorCode = "TRIGGER_REJECTED"

	// CodeGateHalted indicates the pre-release gate intentionally halted the run.
	CodeGateHalted ErrorCode = "GATE_HALTED"

	// Execution errors.

	// CodeExecutionFailed indicates an external command failed.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// CodePublishFailed indicates a publish operation failed.
	CodePublishFailed ErrorCode = "PUBLISH_FAILED"

	// CodePromotionFailed indicates the stable-branch promotion failed.
	CodePromotionFailed ErrorCode = "PROMOTION_FAILED"

	// Infrastructure errors.

	// CodeSecretResolution indicates a secret could not be resolved.
	CodeSecretResolution ErrorCode = "SECRET_RESOLUTION_FAILED"

	// CodeStorage indicates a run journal operation failed.
	CodeStorage ErrorCode = "STORAGE_ERROR"

	// CodeGit indicates a git operation failed.
	CodeGit ErrorCode = "GIT_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// Generic errors.

	// CodeInternal indicates an internal system error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
