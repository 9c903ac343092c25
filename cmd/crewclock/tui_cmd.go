package main

import (
	"fmt"
	"time"

	"github.com/fentz26/crewclock/internal/auth"
	"github.com/fentz26/crewclock/internal/config"
	"github.com/fentz26/crewclock/internal/connectivity"
	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive time-clock board",
	RunE:  runTUI,
}

var refreshInterval time.Duration

func init() {
	tuiCmd.Flags().DurationVar(&refreshInterval, "refresh", 30*time.Second, "Reload the board at this interval (0 disables)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	var username string
	if m, err := auth.NewManager(config.Dir()); err == nil {
		if s, err := m.Current(); err == nil {
			username = s.User.Username
		}
	}

	// The board syncs on every back-online event.
	monitor := connectivity.New(d.client, cfg.PingInterval, logger)
	monitor.Start()
	defer monitor.Stop()
	// A queued action means the backend just failed us; sync as soon as it
	// answers again instead of waiting for a poll to notice the outage.
	d.onQueued = func(models.PendingAction) { monitor.MarkOffline() }

	app := tui.New(tui.Options{
		Service:  d.service,
		Online:   monitor.Events(),
		IsOnline: monitor.Online,
		Username: username,
		Refresh:  refreshInterval,
		// Assign plus clock call, each with its own timeout.
		Timeout: 3 * cfg.RequestTimeout,
	})
	logger.Info("starting board", zap.String("api", cfg.APIBase))
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
