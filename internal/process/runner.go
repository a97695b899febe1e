// Package process runs external tools and shell command lines.
package process

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/mmcdole/yama/internal/domain"
)

// Strategy turns between argument vectors and a single command line.
// Each platform has exactly one.
type Strategy struct {
	Name string
	// Join builds a command line from a program and its arguments.
	Join func(name string, args ...string) string
	// Split turns a command line into the program and arguments to exec.
	Split func(command string) (string, []string)
}

// CommaStrategy separates tokens with commas so paths containing spaces
// survive without quoting.
var CommaStrategy = Strategy{
	Name: "comma",
	Join: func(name string, args ...string) string {
		return strings.Join(append([]string{name}, args...), ",")
	},
	Split: func(command string) (string, []string) {
		parts := strings.Split(command, ",")
		return parts[0], parts[1:]
	},
}

// ShellStrategy hands the command line to sh -c.
var ShellStrategy = Strategy{
	Name: "shell",
	Join: func(name string, args ...string) string {
		quoted := make([]string, 0, len(args)+1)
		for _, a := range append([]string{name}, args...) {
			quoted = append(quoted, shellQuote(a))
		}
		return strings.Join(quoted, " ")
	},
	Split: func(command string) (string, []string) {
		return "sh", []string{"-c", command}
	},
}

// StrategyFor returns the strategy used on goos
func StrategyFor(goos string) Strategy {
	if goos == "windows" {
		return CommaStrategy
	}
	return ShellStrategy
}

// shellQuote wraps s in single quotes unless it is made of safe characters
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, unsafeShellRune) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func unsafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./=:,+@%", r):
		return false
	}
	return true
}

// Runner executes subprocesses and waits for them
type Runner struct {
	strategy Strategy
	logger   *slog.Logger
}

// NewRunner creates a Runner using the strategy for the running platform
func NewRunner(logger *slog.Logger) *Runner {
	return NewRunnerWithStrategy(StrategyFor(runtime.GOOS), logger)
}

// NewRunnerWithStrategy creates a Runner with an explicit strategy
func NewRunnerWithStrategy(strategy Strategy, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{strategy: strategy, logger: logger}
}

// Strategy returns the command line strategy in use
func (r *Runner) Strategy() Strategy {
	return r.strategy
}

// Run executes name with args and returns its stdout.
// A non-zero exit is reported as a *domain.ToolError carrying stderr.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running external tool", "command", name, "args", args)

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &domain.ToolError{
			Command: name,
			Stderr:  stderr.String(),
			Err:     fmt.Errorf("run failed: %w", err),
		}
	}
	return stdout.Bytes(), nil
}

// RunCommand splits a command line with the platform strategy and runs it.
func (r *Runner) RunCommand(ctx context.Context, command string) ([]byte, error) {
	name, args := r.strategy.Split(command)
	return r.Run(ctx, name, args...)
}
