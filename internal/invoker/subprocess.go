package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/earnings-cli/internal/model"
)

// Subprocess invokes the extraction collaborator as a child process: the
// request JSON goes to its stdin, the result JSON comes back on its stdout,
// diagnostics on stderr. One process per invocation, nothing pooled.
type Subprocess struct {
	argv    []string
	timeout time.Duration
}

// NewSubprocess builds a Subprocess invoker. An empty argv means re-exec the
// current binary with the "worker" subcommand. A timeout of 0 leaves the
// invocation unbounded.
func NewSubprocess(argv []string, timeout time.Duration) (*Subprocess, error) {
	if len(argv) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, eris.Wrap(err, "invoker: resolve executable")
		}
		argv = []string{exe, "worker"}
	}
	return &Subprocess{argv: argv, timeout: timeout}, nil
}

// Invoke runs the collaborator once and classifies its outcome. A non-zero
// exit becomes an ExecutionError; unparseable stdout becomes a
// MalformedOutputError. The call blocks until the process finishes or the
// timeout expires.
func (s *Subprocess) Invoke(ctx context.Context, req model.ExtractionRequest) (*model.ExtractionResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "invoker: marshal request")
	}

	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	zap.L().Debug("invoking extraction worker",
		zap.String("cmd", s.argv[0]),
		zap.String("url", req.URL))

	if runErr := cmd.Run(); runErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				diag = fmt.Sprintf("extraction timed out after %s", s.timeout)
			} else if !errors.As(runErr, &exitErr) {
				// Spawn failure (binary missing, permissions): the run
				// error itself is the only diagnostic available.
				diag = runErr.Error()
			}
		}

		return nil, &ExecutionError{ExitCode: exitCode, Stderr: diag, Err: runErr}
	}

	var result model.ExtractionResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, &MalformedOutputError{
			Output: stdout.String(),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return &result, nil
}
