package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/davebream/olaunch/internal/config"
	"github.com/davebream/olaunch/internal/process"
	"github.com/davebream/olaunch/internal/readiness"
	"github.com/davebream/olaunch/internal/venv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const (
	checkOK   = "OK"
	checkWarn = "WARN"
	checkFail = "FAIL"
)

type check struct {
	name, status, detail string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check olaunch configuration and environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		checks := runChecks(ctx)

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Check", "Status", "Detail")
		allOK := true
		for _, c := range checks {
			if c.status == checkFail {
				allOK = false
			}
			table.Append([]string{c.name, c.status, c.detail})
		}
		table.Render()

		if !allOK {
			return fmt.Errorf("some checks failed")
		}
		return nil
	},
}

func runChecks(ctx context.Context) []check {
	var checks []check

	// 1. Config file
	cfgPath, err := config.ConfigFilePath()
	if err != nil {
		return append(checks, check{"config", checkFail, fmt.Sprintf("cannot determine path: %v", err)})
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return append(checks, check{"config", checkFail, err.Error()})
	}
	if _, statErr := os.Stat(cfgPath); statErr != nil {
		checks = append(checks, check{"config", checkWarn, fmt.Sprintf("using defaults, %s not found", cfgPath)})
	} else {
		checks = append(checks, check{"config", checkOK, cfgPath})
	}

	// 2. Service command and process
	svc := cfg.Service
	if _, err := exec.LookPath(svc.Command); err != nil {
		checks = append(checks, check{"service command", checkWarn, fmt.Sprintf("%q not found in PATH", svc.Command)})
	} else {
		checks = append(checks, check{"service command", checkOK, svc.Command})
	}
	found, err := process.NewPsutilInspector().Find(ctx, svc.Name)
	switch {
	case err != nil:
		checks = append(checks, check{"service", checkWarn, fmt.Sprintf("cannot list processes: %v", err)})
	case len(found) == 0:
		checks = append(checks, check{"service", checkWarn, fmt.Sprintf("%s not running, run will start it", svc.Name)})
	default:
		checks = append(checks, check{"service", checkOK, fmt.Sprintf("%s running (PID %d)", svc.Name, found[0].PID)})
	}

	// 3. Readiness
	if cfg.Readiness.Mode == config.ReadinessProbe {
		if err := (readiness.HTTPProbe{URL: cfg.Readiness.URL}).Check(ctx); err != nil {
			checks = append(checks, check{"readiness", checkWarn, fmt.Sprintf("%s: %v", cfg.Readiness.URL, err)})
		} else {
			checks = append(checks, check{"readiness", checkOK, cfg.Readiness.URL})
		}
	} else {
		checks = append(checks, check{"readiness", checkOK, fmt.Sprintf("fixed delay %s", cfg.Readiness.DelayDuration())})
	}

	// 4. Environment and entry point
	vctx, err := venv.Resolve(cfg.Environment.Path)
	if err != nil {
		return append(checks,
			check{"environment", checkFail, err.Error()},
			check{"entry point", checkFail, "environment unavailable"},
		)
	}
	if err := vctx.LoadEnvFile(cfg.Environment.EnvFile); err != nil {
		checks = append(checks, check{"environment", checkFail, err.Error()})
	} else {
		detail := vctx.Root
		if v := vctx.Config["version"]; v != "" {
			detail += " (python " + v + ")"
		}
		checks = append(checks, check{"environment", checkOK, detail})
	}
	if path, err := vctx.LookPath(cfg.EntryPoint.Program, vctx.Environ(os.Environ())); err != nil {
		checks = append(checks, check{"entry point", checkFail, err.Error()})
	} else {
		checks = append(checks, check{"entry point", checkOK, path})
	}
	return checks
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
