package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"htnadmin/cmd/htnadmin/dashboard"
	"htnadmin/internal/api"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Logger
	logger *zap.Logger

	// current is the wired application for the running command.
	current *app
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "htnadmin",
	Short: "htnadmin - HTN program admin console",
	Long: `htnadmin manages the hypertension monitoring program from the terminal.

It talks to the program's admin API: approve and manage enrolled patients,
review blood pressure readings, and work the nurse and coach call lists.

Run without arguments to start the interactive dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		current, err = openApp(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		logger.Debug("Application ready",
			zap.String("api", current.cfg.API.BaseURL),
			zap.String("session", current.session.State().String()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeApp()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch the dashboard
		return dashboard.Run(dashboard.Config{
			Session:    current.session,
			Client:     current.client,
			Recorder:   current.recorder,
			Settings:   current.cfg,
			ConfigPath: current.cfgPath,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.htnadmin/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(callListCmd)
	rootCmd.AddCommand(readingsCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	err := rootCmd.Execute()
	// Post-run hooks are skipped when a command fails.
	closeApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", api.UserMessage(err))
		os.Exit(1)
	}
}

func closeApp() {
	if current != nil {
		current.Close()
		current = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// commandContext bounds a command by --timeout and cancels it on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

// requireSession fails fast when no authenticated session is stored.
func requireSession() error {
	if !current.session.IsAuthenticated() {
		return fmt.Errorf("not signed in: run 'htnadmin auth login <email>' first")
	}
	return nil
}
