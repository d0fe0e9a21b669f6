// Package executor defines how fenced code blocks are run. The docker
// subpackage runs them in throwaway sandbox containers.
package executor

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrUnsupportedLanguage is returned for a block whose language has no
// configured runtime.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ExecutionRequest is one code block to run.
type ExecutionRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// ExecutionResult is the captured output of a run. ExitCode 124 means the
// run hit its timeout.
type ExecutionResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}

// TimeoutExitCode matches the exit status of the unix timeout command.
const TimeoutExitCode = 124

// Executor runs code blocks.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

var aliases = map[string]string{
	"py":      "python",
	"python3": "python",
	"js":      "javascript",
	"node":    "javascript",
	"bash":    "sh",
	"shell":   "sh",
}

// NormalizeLanguage maps the info string of a fence to a runtime name:
// lower-cased, with common aliases folded ("py" -> "python").
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if canonical, ok := aliases[lang]; ok {
		return canonical
	}
	return lang
}
