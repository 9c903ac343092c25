package main

import (
	"fmt"
	"os"

	"github.com/fentz26/crewclock/internal/config"
	"github.com/fentz26/crewclock/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "crewclock",
	Short: "crewclock - offline-first time clock for crews",
	Long: `crewclock records worker clock-ins and clock-outs against a project-management
backend. Actions taken while the backend is unreachable are queued locally and
replayed when connectivity returns.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Config commands must work with a broken config file.
		if cmd.Parent() == configCmd {
			return nil
		}
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var (
	configPath string
	apiAddr    string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "", "Backend base URL (overrides api_base)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(clockInCmd, clockOutCmd, entriesCmd, syncCmd, pendingCmd)
	rootCmd.AddCommand(projectCmd, workerCmd, queryCmd)
	rootCmd.AddCommand(reportCmd, askCmd, auditCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(watchCmd, tuiCmd, configCmd)
}

func setup(cmd *cobra.Command) error {
	var err error
	cfg, err = config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if apiAddr != "" {
		cfg.APIBase = apiAddr
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	// The board owns the terminal, so its logs go to a file.
	var outputs []string
	if cmd == tuiCmd {
		outputs = append(outputs, logFilePath())
	}
	logger, err = logging.New(cfg.LogLevel, verbose, outputs...)
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
