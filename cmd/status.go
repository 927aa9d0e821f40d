package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/davebream/olaunch/internal/config"
	"github.com/davebream/olaunch/internal/process"
	"github.com/davebream/olaunch/internal/readiness"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background service is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		found, err := process.NewPsutilInspector().Find(ctx, cfg.Service.Name)
		if err != nil {
			fmt.Printf("Service: unknown (%v)\n", err)
			return nil
		}
		if len(found) == 0 {
			fmt.Printf("Service: %s not running\n", cfg.Service.Name)
			return nil
		}
		for _, p := range found {
			fmt.Printf("Service: %s running (PID %d, %s)\n", cfg.Service.Name, p.PID, p.Name)
		}

		if cfg.Readiness.Mode != config.ReadinessProbe {
			return nil
		}
		if err := (readiness.HTTPProbe{URL: cfg.Readiness.URL}).Check(ctx); err != nil {
			fmt.Printf("Probe:   not answering at %s (%v)\n", cfg.Readiness.URL, err)
		} else {
			fmt.Printf("Probe:   ready at %s\n", cfg.Readiness.URL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
