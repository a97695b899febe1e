package player

import (
	"context"
	"errors"
	"testing"

	"github.com/mmcdole/yama/internal/domain"
	"github.com/mmcdole/yama/internal/process"
)

type recordingRunner struct {
	strategy process.Strategy
	lines    []string
	err      error
}

func (r *recordingRunner) RunCommand(ctx context.Context, command string) ([]byte, error) {
	r.lines = append(r.lines, command)
	return nil, r.err
}

func (r *recordingRunner) Strategy() process.Strategy { return r.strategy }

func TestPlayInjectsHelperScript(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		strategy process.Strategy
		want     string
	}{
		{
			name:     "mpv on unix",
			command:  "mpv",
			strategy: process.ShellStrategy,
			want:     "mpv --script=/cfg/scripts/save_info.lua --script-opts=save_info-min_time=10 --start=95.4 '/srv/Test Show/Test Show - 01.mkv'",
		},
		{
			name:     "mpv on windows",
			command:  "mpv",
			strategy: process.CommaStrategy,
			want:     "mpv,--script=/cfg/scripts/save_info.lua,--script-opts=save_info-min_time=10,--start=95.4,/srv/Test Show/Test Show - 01.mkv",
		},
		{
			name:     "iina",
			command:  "/usr/local/bin/iina",
			strategy: process.ShellStrategy,
			want:     "/usr/local/bin/iina --mpv-script=/cfg/scripts/save_info.lua --mpv-script-opts=save_info-min_time=10 --mpv-start=95.4 '/srv/Test Show/Test Show - 01.mkv'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &recordingRunner{strategy: tt.strategy}
			l := NewLauncher(tt.command, nil, "/cfg/scripts/save_info.lua", 10, runner, nil)

			if err := l.Play(context.Background(), "/srv/Test Show/Test Show - 01.mkv", 95.4); err != nil {
				t.Fatalf("Play() error = %v", err)
			}
			if len(runner.lines) != 1 || runner.lines[0] != tt.want {
				t.Errorf("command = %q\nwant      %q", runner.lines, tt.want)
			}
		})
	}
}

func TestRunPropagatesToolError(t *testing.T) {
	runner := &recordingRunner{
		strategy: process.ShellStrategy,
		err:      &domain.ToolError{Command: "sh", Err: errors.New("exit status 2")},
	}
	l := NewLauncher("mpv", []string{"--fs"}, "/s.lua", 5, runner, nil)

	err := l.Run(context.Background(), "a.mkv")
	if !errors.Is(err, domain.ErrExternalTool) {
		t.Fatalf("Run() error = %v, want ErrExternalTool", err)
	}
	if want := "mpv --script=/s.lua --script-opts=save_info-min_time=5 --fs a.mkv"; runner.lines[0] != want {
		t.Errorf("command = %q, want %q", runner.lines[0], want)
	}
}
