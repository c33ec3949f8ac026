// Package invoker executes the extraction collaborator for one request at a
// time and classifies its outcome.
package invoker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/earnings-cli/internal/model"
)

// Invoker performs one opaque extraction per call. Implementations make
// exactly one attempt; retries are not part of this boundary.
type Invoker interface {
	Invoke(ctx context.Context, req model.ExtractionRequest) (*model.ExtractionResult, error)
}

// ExecutionError reports a collaborator that terminated abnormally.
type ExecutionError struct {
	ExitCode int
	Stderr   string
	Err      error
}

// Error returns the collaborator's diagnostic output, or a generic exit-code
// message when the diagnostic stream was empty.
func (e *ExecutionError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return fmt.Sprintf("exited with code %d", e.ExitCode)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// MalformedOutputError reports a collaborator that terminated normally but
// produced output that could not be parsed as an extraction result.
type MalformedOutputError struct {
	Output string
	Stderr string
	Err    error
}

// Error includes the raw output and diagnostic stream for postmortems.
func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("unparseable extraction output: %q (stderr: %q)", e.Output, e.Stderr)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}

// IsExecutionError returns true if the chain contains an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

// IsMalformedOutputError returns true if the chain contains a
// MalformedOutputError.
func IsMalformedOutputError(err error) bool {
	var me *MalformedOutputError
	return errors.As(err, &me)
}
