// Package code defines the contract with the sandboxed code-execution
// backend. The orchestrator never interprets execution output; it only sees
// results embedded in message payloads by the executor agent.
package code

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Result is the outcome of running one snippet.
type Result struct {
	Output   string        `json:"output"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the snippet ran to completion successfully.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Executor runs code snippets in an isolated environment. Run must honor ctx
// deadlines; a runtime failure of the snippet itself is reported via
// Result.ExitCode with a nil error, while an inability to run at all (sandbox
// unavailable) is an error.
type Executor interface {
	Run(ctx context.Context, snippet string) (Result, error)
}

var fencedBlock = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9]*)\n(.*?)```")

// ExtractBlocks returns the contents of fenced code blocks in text, in order.
func ExtractBlocks(text string) []string {
	matches := fencedBlock.FindAllStringSubmatch(text, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		if snippet := strings.TrimSpace(m[1]); snippet != "" {
			blocks = append(blocks, snippet)
		}
	}
	return blocks
}
