package process

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/mmcdole/yama/internal/domain"
)

func TestCommaStrategy(t *testing.T) {
	line := CommaStrategy.Join("mpv", "--start=12", `C:\Anime\Show 01.mkv`)
	if line != `mpv,--start=12,C:\Anime\Show 01.mkv` {
		t.Fatalf("Join() = %q", line)
	}

	name, args := CommaStrategy.Split(line)
	if name != "mpv" || len(args) != 2 || args[1] != `C:\Anime\Show 01.mkv` {
		t.Errorf("Split() = %q %q", name, args)
	}
}

func TestShellStrategy(t *testing.T) {
	line := ShellStrategy.Join("mpv", "--start=12", "/srv/My Show/it's 01.mkv")
	want := `mpv --start=12 '/srv/My Show/it'\''s 01.mkv'`
	if line != want {
		t.Fatalf("Join() = %q, want %q", line, want)
	}

	name, args := ShellStrategy.Split(line)
	if name != "sh" || len(args) != 2 || args[0] != "-c" || args[1] != line {
		t.Errorf("Split() = %q %q", name, args)
	}
}

func TestStrategyFor(t *testing.T) {
	if StrategyFor("windows").Name != "comma" {
		t.Error("windows should use the comma strategy")
	}
	if StrategyFor("linux").Name != "shell" || StrategyFor("darwin").Name != "shell" {
		t.Error("unix platforms should use the shell strategy")
	}
}

func TestRunCommandCapturesStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	r := NewRunner(nil)

	out, err := r.RunCommand(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Errorf("stdout = %q", out)
	}

	_, err = r.RunCommand(context.Background(), "echo broken >&2; exit 3")
	if !errors.Is(err, domain.ErrExternalTool) {
		t.Fatalf("error = %v, want ErrExternalTool", err)
	}
	var toolErr *domain.ToolError
	if !errors.As(err, &toolErr) || strings.TrimSpace(toolErr.Stderr) != "broken" {
		t.Errorf("stderr = %q", toolErr.Stderr)
	}
}
