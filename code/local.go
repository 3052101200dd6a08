package code

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/umair-ds92/datawise-ai/core"
)

// LocalExecutorOptions configure a LocalExecutor.
type LocalExecutorOptions struct {
	// Command is the interpreter invoked with the snippet as its final
	// argument, e.g. ["python3", "-c"].
	Command []string
	// WorkDir is the working directory for executions.
	WorkDir string
	// Timeout bounds each run; zero means rely on ctx alone.
	Timeout time.Duration
}

// LocalExecutor runs snippets as local subprocesses. It stands in for a
// container-based sandbox behind the same Executor interface and is suitable
// for development and trusted environments only.
type LocalExecutor struct {
	opts LocalExecutorOptions
}

// NewLocalExecutor constructs a LocalExecutor defaulting to python3.
func NewLocalExecutor(optFns ...func(o *LocalExecutorOptions)) *LocalExecutor {
	opts := LocalExecutorOptions{
		Command: []string{"python3", "-c"},
		Timeout: 120 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &LocalExecutor{opts: opts}
}

// Run implements Executor. A snippet that exits non-zero is a successful Run
// with a failing Result; a timeout surfaces as a transient error so the
// orchestrator's retry policy applies.
func (e *LocalExecutor) Run(ctx context.Context, snippet string) (Result, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	args := append(e.opts.Command[1:], snippet)
	cmd := exec.CommandContext(ctx, e.opts.Command[0], args...)
	cmd.Dir = e.opts.WorkDir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	err := cmd.Run()
	res := Result{Output: buf.String(), Duration: time.Since(start)}

	if err != nil {
		if ctx.Err() != nil {
			return res, core.Transient(ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

// MockExecutor returns canned results in order, for tests. The zero value
// yields empty successful results.
type MockExecutor struct {
	Results []Result
	Errs    []error
	calls   int
}

// Run implements Executor.
func (m *MockExecutor) Run(ctx context.Context, snippet string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	i := m.calls
	m.calls++
	var res Result
	if i < len(m.Results) {
		res = m.Results[i]
	}
	var err error
	if i < len(m.Errs) {
		err = m.Errs[i]
	}
	return res, err
}

// Calls returns how many times Run was invoked.
func (m *MockExecutor) Calls() int { return m.calls }
