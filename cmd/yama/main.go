package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/yama/internal/anilist"
	"github.com/mmcdole/yama/internal/config"
	"github.com/mmcdole/yama/internal/library"
	"github.com/mmcdole/yama/internal/log"
	"github.com/mmcdole/yama/internal/media"
	"github.com/mmcdole/yama/internal/player"
	"github.com/mmcdole/yama/internal/presence"
	"github.com/mmcdole/yama/internal/process"
	"github.com/mmcdole/yama/internal/service"
	"github.com/mmcdole/yama/internal/store"
	"github.com/mmcdole/yama/internal/tui"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var (
		showVersion bool
		seriesPath  string
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&seriesPath, "series", "", "series directory (overrides the config file)")
	flag.Parse()

	if showVersion {
		fmt.Printf("yama %s\n", Version)
		return
	}

	if err := run(seriesPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(seriesPath string) error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if seriesPath != "" {
		cfg.Library.SeriesPath = seriesPath
	}

	// Setup logger
	logger, logFile, err := log.Setup(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
		logger = log.Discard()
	} else {
		defer logFile.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting yama", "version", Version)

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if !interactive && !cfg.IsConfigured() {
		return errors.New("no series path: pass -series or set library.series_path")
	}

	manifest, err := store.NewManifestStore(cfg.Cache.Dir, cfg.Library.SeriesPath)
	if err != nil {
		logger.Warn("metadata manifest unavailable, keeping it in memory", "error", err)
		manifest, _ = store.NewManifestStore("", "")
	}
	defer manifest.Close()

	runner := process.NewRunner(logger)
	client := anilist.NewClient(
		anilist.WithBaseURL(cfg.Anilist.URL),
		anilist.WithTimeout(cfg.Anilist.Timeout),
		anilist.WithRateLimit(cfg.Anilist.RequestsPerMinute),
		anilist.WithBannerWidth(cfg.Anilist.BannerWidth),
		anilist.WithManifest(manifest),
		anilist.WithLogger(logger),
	)
	launcher := player.NewLauncher(cfg.Player.Command, cfg.Player.Args, cfg.Player.ScriptPath, cfg.Player.MinTime, runner, logger)

	lib := library.New(library.Deps{
		Source:  client,
		Tools:   media.NewToolkit(cfg.Tools.FFprobe, cfg.Tools.FFmpeg, runner, logger),
		IsVideo: media.IsVideo,
		Runner:  runner,
		Player:  launcher,
		Logger:  logger,
	})
	backend := service.NewBackend(lib, config.SaveSeriesPath, logger)
	if cfg.Discord.Enabled {
		if discord, err := presence.Connect(cfg.Discord.AppID, logger); err != nil {
			logger.Warn("discord presence unavailable", "error", err)
		} else {
			backend.SetPresence(discord)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- backend.Run(ctx, cfg.Library.SeriesPath)
	}()

	if interactive {
		err = runTUI(backend, logger)
	} else {
		err = runHeadless(ctx, backend, os.Stdout)
	}

	// Stop the backend if the front end left without a shutdown
	stop()
	if runErr := <-done; runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("backend error", "error", runErr)
	}

	logger.Info("shutting down")
	return err
}

func runTUI(backend *service.Backend, logger *slog.Logger) error {
	p := tea.NewProgram(
		tui.NewModel(backend),
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runHeadless waits for the first snapshot and prints one line per title
func runHeadless(ctx context.Context, backend *service.Backend, w io.Writer) error {
	defer backend.Send(ctx, service.Shutdown{})

	for ev := range backend.Events() {
		switch ev := ev.(type) {
		case service.Recovery:
			return ev.Err
		case service.Ready:
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for i := range ev.Cache.Len() {
				name, _ := ev.Cache.TitleName(i)
				tc, _ := ev.Cache.Title(i)
				fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, name, tc.Meta.Title)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			r := ev.Report
			fmt.Fprintf(w, "\n%d titles: %d fetched, %d cached, %d failed\n",
				ev.Cache.Len(), r.Fetched, r.Cached, len(r.Failed))
			for _, f := range r.Failed {
				fmt.Fprintf(w, "  %s: %v\n", f.Name, f.Err)
			}
			return nil
		}
	}
	return ctx.Err()
}
