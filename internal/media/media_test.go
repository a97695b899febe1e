package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mmcdole/yama/internal/domain"
)

// mkvHeader is the smallest header mimetype recognizes as Matroska.
var mkvHeader = []byte("\x1A\x45\xDF\xA3\x93\x42\x82\x88matroska")

type stubRunner struct {
	out   []byte
	err   error
	calls [][]string
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	return s.out, s.err
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		err     error
		want    float64
		wantErr error
	}{
		{name: "valid", out: `{"format":{"duration":"1420.533000"}}`, want: 1420.533},
		{name: "no duration", out: `{"format":{}}`, wantErr: domain.ErrInvalidMedia},
		{name: "garbage", out: `not json`, wantErr: domain.ErrParse},
		{name: "tool failure", err: &domain.ToolError{Command: "ffprobe", Err: errors.New("exit status 1")}, wantErr: domain.ErrExternalTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{out: []byte(tt.out), err: tt.err}
			tk := NewToolkit("", "", runner, nil)

			got, err := tk.Duration(context.Background(), "/v/ep.mkv")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Duration() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Duration() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
			if runner.calls[0][0] != "ffprobe" || runner.calls[0][len(runner.calls[0])-1] != "/v/ep.mkv" {
				t.Errorf("call = %v", runner.calls[0])
			}
		})
	}
}

func TestThumbnailArgs(t *testing.T) {
	runner := &stubRunner{}
	tk := NewToolkit("", "/opt/ffmpeg", runner, nil)

	if err := tk.Thumbnail(context.Background(), "in.mkv", "out.jpg"); err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	want := []string{"/opt/ffmpeg", "-i", "in.mkv", "-vf", "thumbnail", "-frames:v", "1", "-f", "mjpeg",
		"-hide_banner", "-nostdin", "-nostats", "-loglevel", "quiet", "out.jpg"}
	if !reflect.DeepEqual(runner.calls[0], want) {
		t.Errorf("args = %v\nwant %v", runner.calls[0], want)
	}
}

func TestIsVideo(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "ep.mkv")
	text := filepath.Join(dir, "notes.mkv")
	if err := os.WriteFile(video, mkvHeader, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(text, []byte("just some notes\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if !IsVideo(video) {
		t.Error("IsVideo(matroska) = false")
	}
	if IsVideo(text) {
		t.Error("IsVideo(text) = true")
	}
	if IsVideo(filepath.Join(dir, "missing.mkv")) {
		t.Error("IsVideo(missing) = true")
	}
}

func TestFitWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banner.jpg")
	img := image.NewRGBA(image.Rect(0, 0, 400, 100))
	for x := 0; x < 400; x++ {
		img.Set(x, 50, color.White)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := FitWidth(path, 200); err != nil {
		t.Fatalf("FitWidth() error = %v", err)
	}

	f, err = os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 200 || cfg.Height != 50 {
		t.Errorf("size = %dx%d, want 200x50", cfg.Width, cfg.Height)
	}
}
