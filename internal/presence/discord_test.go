package presence

import (
	"errors"
	"testing"
	"time"

	"github.com/hugolgst/rich-go/client"
	"github.com/mmcdole/yama/internal/domain"
)

type fakeIPC struct {
	loginErr   error
	appID      string
	activities []client.Activity
	loggedOut  bool
}

func (f *fakeIPC) hooks() ipc {
	return ipc{
		login: func(appID string) error {
			f.appID = appID
			return f.loginErr
		},
		setActivity: func(a client.Activity) error {
			f.activities = append(f.activities, a)
			return nil
		},
		logout: func() { f.loggedOut = true },
	}
}

func TestConnectFailsWithoutDiscord(t *testing.T) {
	f := &fakeIPC{loginErr: errors.New("dial unix /run/user/1000/discord-ipc-0: no such file")}
	if _, err := connect(f.hooks(), "42", nil); !errors.Is(err, domain.ErrIO) {
		t.Errorf("connect() error = %v, want ErrIO", err)
	}
}

func TestActivities(t *testing.T) {
	f := &fakeIPC{}
	d, err := connect(f.hooks(), "42", nil)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 4, 1, 20, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	if err := d.Idle(); err != nil {
		t.Fatal(err)
	}
	if err := d.Watching("Mushishi", "Mushishi - 03.mkv", 90.5); err != nil {
		t.Fatal(err)
	}
	if err := d.Watching("Mushishi", "Mushishi - 04.mkv", 0); err != nil {
		t.Fatal(err)
	}
	d.Close()

	if f.appID != "42" || !f.loggedOut || len(f.activities) != 3 {
		t.Fatalf("app %q, logged out %v, %d activities", f.appID, f.loggedOut, len(f.activities))
	}

	idle := f.activities[0]
	if idle.State != "Idle" || idle.Timestamps != nil || len(idle.Buttons) != 1 {
		t.Errorf("idle = %+v", idle)
	}

	watch := f.activities[1]
	if watch.Details != "Mushishi" || watch.State != "Watching" || watch.LargeText != "Mushishi - 03.mkv" {
		t.Errorf("watching = %+v", watch)
	}
	if watch.Timestamps == nil || !watch.Timestamps.End.Equal(now.Add(90500*time.Millisecond)) {
		t.Errorf("end timestamp = %+v", watch.Timestamps)
	}

	if f.activities[2].Timestamps != nil {
		t.Error("no countdown expected without remaining time")
	}
}
