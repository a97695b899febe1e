// Package presence shows what is playing as Discord rich presence.
package presence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hugolgst/rich-go/client"
	"github.com/mmcdole/yama/internal/domain"
)

const (
	largeImage = "megane"
	idleText   = "b-baka!!"
	projectURL = "https://github.com/yama-org/yama"
)

// ipc is the part of the Discord client in use
type ipc struct {
	login       func(appID string) error
	setActivity func(client.Activity) error
	logout      func()
}

var discordIPC = ipc{
	login:       client.Login,
	setActivity: client.SetActivity,
	logout:      client.Logout,
}

// Discord publishes activity to the Discord client running on this machine
type Discord struct {
	ipc    ipc
	logger *slog.Logger
	now    func() time.Time
}

// Connect logs in to the local Discord client as appID. It fails when
// Discord is not running.
func Connect(appID string, logger *slog.Logger) (*Discord, error) {
	return connect(discordIPC, appID, logger)
}

func connect(c ipc, appID string, logger *slog.Logger) (*Discord, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := c.login(appID); err != nil {
		return nil, fmt.Errorf("%w: discord login: %v", domain.ErrIO, err)
	}
	logger.Info("connected to discord", "app_id", appID)
	return &Discord{ipc: c, logger: logger, now: time.Now}, nil
}

// Idle shows that nothing is playing
func (d *Discord) Idle() error {
	return d.set(idleActivity())
}

// Watching shows an episode of title, counting down the remaining seconds
func (d *Discord) Watching(title, episode string, remaining float64) error {
	return d.set(watchActivity(title, episode, remaining, d.now()))
}

// Close disconnects, which also clears the activity
func (d *Discord) Close() error {
	d.ipc.logout()
	return nil
}

func (d *Discord) set(a client.Activity) error {
	if err := d.ipc.setActivity(a); err != nil {
		return fmt.Errorf("%w: discord activity: %v", domain.ErrIO, err)
	}
	d.logger.Debug("updated discord activity", "details", a.Details, "state", a.State)
	return nil
}

func idleActivity() client.Activity {
	return client.Activity{
		Details:    "Picking anime to watch...",
		State:      "Idle",
		LargeImage: largeImage,
		LargeText:  idleText,
		Buttons:    buttons(),
	}
}

func watchActivity(title, episode string, remaining float64, now time.Time) client.Activity {
	a := client.Activity{
		Details:    title,
		State:      "Watching",
		LargeImage: largeImage,
		LargeText:  episode,
		Buttons:    buttons(),
	}
	if remaining > 0 {
		end := now.Add(time.Duration(remaining * float64(time.Second)))
		a.Timestamps = &client.Timestamps{End: &end}
	}
	return a
}

func buttons() []*client.Button {
	return []*client.Button{{Label: "yama", Url: projectURL}}
}
