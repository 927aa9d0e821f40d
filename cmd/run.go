package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/davebream/olaunch/internal/launcher"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	runNoPause bool
	runDryRun  bool
	runVerbose bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ensure the service is up, then run the entry point",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLaunch(cmd)
	},
}

func runLaunch(cmd *cobra.Command) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if runNoPause {
		cfg.Pause = false
	}

	logger, logCleanup := setupLogger(cfg.LogLevel, runVerbose)
	defer logCleanup()

	// Interrupts are left to the entry point; only termination cancels.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	l := launcher.New(cfg, launcher.Deps{Logger: logger})

	if runDryRun {
		printPlan(l.Plan(ctx))
		return nil
	}

	res := l.Run(ctx)
	if err := res.Err(); err != nil {
		return fmt.Errorf("launch failed: %w", err)
	}
	return nil
}

func printPlan(steps []launcher.Step) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Step", "Action", "Detail")
	for _, s := range steps {
		table.Append([]string{s.Name, s.Action, s.Detail})
	}
	table.Render()
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runNoPause, "no-pause", false, "Do not wait for a key press at the end")
	cmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Show what would be done without doing it")
	cmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Mirror log records to stderr")
}

func init() {
	addRunFlags(runCmd)
	addRunFlags(rootCmd)
	rootCmd.AddCommand(runCmd)
}
