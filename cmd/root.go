package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/davebream/olaunch/internal/config"
	"github.com/davebream/olaunch/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "olaunch",
	Short: "Start Ollama if needed and run the chat program",
	Long: `olaunch makes sure the Ollama server is running, activates the project's
Python virtual environment, runs the entry point inside it and waits for a
key press before exiting.

Without a subcommand it behaves like 'olaunch run'.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLaunch(cmd)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads config.json from the config directory, falling back to
// defaults when it does not exist.
func loadConfig() (*config.Config, string, error) {
	cfgPath, err := config.ConfigFilePath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config: %w", err)
	}
	return cfg, cfgPath, nil
}

// setupLogger opens launcher.log. File logging problems are not fatal:
// records go to stderr instead.
func setupLogger(level string, alsoStderr bool) (*slog.Logger, func()) {
	lvl := logging.ParseLevel(level)
	logPath, err := config.LogFilePath()
	if err == nil {
		logger, cleanup, setupErr := logging.Setup(logPath, lvl, alsoStderr)
		if setupErr == nil {
			return logger, cleanup
		}
		err = setupErr
	}
	fmt.Fprintf(os.Stderr, "olaunch: cannot set up file logging: %v\n", err)
	logger := slog.New(logging.NewScrubbingHandler(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})))
	return logger, func() {}
}
