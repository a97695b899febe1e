package player

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mmcdole/yama/internal/process"
)

// CommandRunner runs a full command line and waits for it to exit
type CommandRunner interface {
	RunCommand(ctx context.Context, command string) ([]byte, error)
	Strategy() process.Strategy
}

// Launcher plays episodes in an external player and blocks until it exits
type Launcher struct {
	command    string   // player executable
	args       []string // additional arguments for the player
	scriptPath string   // progress helper loaded into the player
	minTime    float64  // seconds remaining below which the helper marks an episode watched
	runner     CommandRunner
	logger     *slog.Logger
}

// playerFlags defines how a player accepts the helper script and a start offset
type playerFlags struct {
	offsetFlag string // Resume offset flag (e.g., "--start=")
	scriptFlag string // Script flag (e.g., "--script=")
	optsFlag   string // Script options flag
}

// players registry, keyed by executable base name
var players = map[string]playerFlags{
	"mpv": {
		offsetFlag: "--start=",
		scriptFlag: "--script=",
		optsFlag:   "--script-opts=",
	},
	"iina": {
		offsetFlag: "--mpv-start=",
		scriptFlag: "--mpv-script=",
		optsFlag:   "--mpv-script-opts=",
	},
	"celluloid": {
		offsetFlag: "--mpv-start=",
		scriptFlag: "--mpv-script=",
		optsFlag:   "--mpv-script-opts=",
	},
}

// NewLauncher creates a new Launcher
func NewLauncher(command string, args []string, scriptPath string, minTime float64, runner CommandRunner, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	if command == "" {
		command = "mpv"
	}
	return &Launcher{
		command:    command,
		args:       args,
		scriptPath: scriptPath,
		minTime:    minTime,
		runner:     runner,
		logger:     logger,
	}
}

// flags looks up the registry entry for the configured player, falling back to mpv
func (l *Launcher) flags() playerFlags {
	base := strings.ToLower(filepath.Base(l.command))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if f, ok := players[base]; ok {
		return f
	}
	l.logger.Debug("unknown player, assuming mpv flags", "command", l.command)
	return players["mpv"]
}

// CommandLine builds the player command line for the given arguments.
// The helper script and its min_time option always come first.
func (l *Launcher) CommandLine(episodeArgs ...string) string {
	f := l.flags()

	args := []string{
		f.scriptFlag + l.scriptPath,
		f.optsFlag + "save_info-min_time=" + strconv.FormatFloat(l.minTime, 'f', -1, 64),
	}
	args = append(args, l.args...)
	args = append(args, episodeArgs...)

	return l.runner.Strategy().Join(l.command, args...)
}

// Run launches the player with episodeArgs and waits for it to exit
func (l *Launcher) Run(ctx context.Context, episodeArgs ...string) error {
	line := l.CommandLine(episodeArgs...)
	l.logger.Info("launching player", "command", line)

	if _, err := l.runner.RunCommand(ctx, line); err != nil {
		return fmt.Errorf("player exited with error: %w", err)
	}
	return nil
}

// Play opens path at startSeconds and waits for playback to end
func (l *Launcher) Play(ctx context.Context, path string, startSeconds float64) error {
	f := l.flags()
	return l.Run(ctx, f.offsetFlag+strconv.FormatFloat(startSeconds, 'f', -1, 64), path)
}
