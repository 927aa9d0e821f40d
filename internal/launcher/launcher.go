// Package launcher runs the start-up sequence: make sure the background
// service is up, activate the environment, run the entry point, then wait
// for the user to acknowledge.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/davebream/olaunch/internal/config"
	"github.com/davebream/olaunch/internal/logging"
	"github.com/davebream/olaunch/internal/process"
	"github.com/davebream/olaunch/internal/readiness"
	"github.com/davebream/olaunch/internal/venv"
)

// ServiceState is the outcome of EnsureService.
type ServiceState int

const (
	ServiceUnknown ServiceState = iota
	ServiceAlreadyRunning
	ServiceStarted
	ServiceSpawnFailed
)

func (s ServiceState) String() string {
	switch s {
	case ServiceAlreadyRunning:
		return "already-running"
	case ServiceStarted:
		return "started"
	case ServiceSpawnFailed:
		return "spawn-failed"
	default:
		return "unknown"
	}
}

// Result records what one Run did.
type Result struct {
	RunID          string
	Service        ServiceState
	SpawnedPID     int
	ReadinessWaits int
	ServiceErr     error
	EnvironmentErr error
	EntryPointRan  bool
	EntryExitCode  int
	EntryErr       error
	Acknowledged   bool
}

// Err reports the failure that should decide the process exit status. The
// entry point's own exit code is not one of them.
func (r Result) Err() error {
	if r.EnvironmentErr != nil {
		return r.EnvironmentErr
	}
	return r.EntryErr
}

// Deps are the launcher's collaborators. Nil fields get the real
// implementations.
type Deps struct {
	Inspector process.Inspector
	Spawner   process.Spawner
	Waiter    readiness.Waiter
	Runner    EntryRunner
	Ack       Acknowledger
	Out       io.Writer
	Logger    *slog.Logger
	// Environ supplies the base environment for the entry point.
	Environ func() []string
}

type Launcher struct {
	cfg       *config.Config
	inspector process.Inspector
	spawner   process.Spawner
	waiter    readiness.Waiter
	runner    EntryRunner
	ack       Acknowledger
	out       io.Writer
	logger    *slog.Logger
	environ   func() []string
}

func New(cfg *config.Config, deps Deps) *Launcher {
	l := &Launcher{
		cfg:       cfg,
		inspector: deps.Inspector,
		spawner:   deps.Spawner,
		waiter:    deps.Waiter,
		runner:    deps.Runner,
		ack:       deps.Ack,
		out:       deps.Out,
		logger:    deps.Logger,
		environ:   deps.Environ,
	}
	if l.inspector == nil {
		l.inspector = process.NewPsutilInspector()
	}
	if l.spawner == nil {
		l.spawner = process.ExecSpawner{}
	}
	if l.waiter == nil {
		l.waiter = readiness.FromConfig(cfg.Readiness)
	}
	if l.out == nil {
		l.out = os.Stdout
	}
	if l.runner == nil {
		l.runner = ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	}
	if l.ack == nil {
		l.ack = &KeyPrompt{In: os.Stdin, Out: l.out}
	}
	if l.logger == nil {
		l.logger = logging.Discard()
	}
	if l.environ == nil {
		l.environ = os.Environ
	}
	return l
}

// Run performs the whole sequence. Failures are recorded in the Result and
// never skip the acknowledgment step.
func (l *Launcher) Run(ctx context.Context) Result {
	run := *l
	var res Result
	run.logger, res.RunID = logging.RunLogger(l.logger)
	run.logger.Info("launch started", "service", l.cfg.Service.Name, "environment", l.cfg.Environment.Path)

	res.Service, res.SpawnedPID, res.ReadinessWaits, res.ServiceErr = run.ensureService(ctx)

	if vctx, err := run.ActivateEnvironment(); err != nil {
		res.EnvironmentErr = err
		fmt.Fprintf(run.out, "Cannot activate environment: %v\n", err)
		run.logger.Error("environment activation failed, entry point skipped", "error", err)
	} else {
		res.EntryPointRan = true
		res.EntryExitCode, res.EntryErr = run.RunEntryPoint(ctx, vctx)
		if res.EntryErr != nil {
			fmt.Fprintf(run.out, "Cannot run %s: %v\n", l.cfg.EntryPoint.Program, res.EntryErr)
		}
	}

	if err := run.WaitForAcknowledgment(ctx); err != nil {
		run.logger.Warn("acknowledgment interrupted", "error", err)
	}
	res.Acknowledged = true

	run.logger.Info("launch finished",
		"service_state", res.Service.String(),
		"readiness_waits", res.ReadinessWaits,
		"entry_ran", res.EntryPointRan,
		"entry_exit_code", res.EntryExitCode,
	)
	return res
}

// EnsureService starts the background service unless a process whose name
// contains the service name is already running. A fresh start is followed
// by exactly one readiness wait; a readiness failure is returned alongside
// ServiceStarted.
func (l *Launcher) EnsureService(ctx context.Context) (ServiceState, error) {
	state, _, _, err := l.ensureService(ctx)
	return state, err
}

func (l *Launcher) ensureService(ctx context.Context) (state ServiceState, pid, waits int, err error) {
	svc := l.cfg.Service

	found, err := l.inspector.Find(ctx, svc.Name)
	if err != nil {
		// Treat as absent: a duplicate start fails on its own.
		l.logger.Warn("process inspection failed", "service", svc.Name, "error", err)
	}
	if len(found) > 0 {
		fmt.Fprintf(l.out, "%s is already running.\n", svc.Name)
		l.logger.Info("service already running", "service", svc.Name, "pid", found[0].PID, "matches", len(found))
		return ServiceAlreadyRunning, int(found[0].PID), 0, nil
	}

	cmd := process.Command{Path: svc.Command, Args: svc.Args}
	fmt.Fprintf(l.out, "Starting %s...\n", svc.Name)
	pid, err = l.spawner.Spawn(ctx, cmd)
	if err != nil {
		fmt.Fprintf(l.out, "Could not start %s: %v\n", svc.Name, err)
		l.logger.Error("service spawn failed", "service", svc.Name, "command", cmd.String(), "error", err)
		return ServiceSpawnFailed, 0, 0, err
	}
	l.logger.Info("service spawned", "service", svc.Name, "pid", pid, "command", cmd.String())

	err = l.waiter.Wait(ctx)
	switch {
	case err == nil:
		l.logger.Info("service ready", "service", svc.Name, "mode", l.cfg.Readiness.Mode)
	case errors.Is(err, readiness.ErrNotReady):
		fmt.Fprintf(l.out, "Warning: %s did not become ready: %v\n", svc.Name, err)
		l.logger.Warn("service not ready, continuing", "service", svc.Name, "error", err)
	default:
		l.logger.Warn("readiness wait interrupted", "service", svc.Name, "error", err)
	}
	return ServiceStarted, pid, 1, err
}

// ActivateEnvironment resolves the configured environment. It never falls
// back to another interpreter.
func (l *Launcher) ActivateEnvironment() (*venv.Context, error) {
	vctx, err := venv.Resolve(l.cfg.Environment.Path)
	if err != nil {
		return nil, err
	}
	if err := vctx.LoadEnvFile(l.cfg.Environment.EnvFile); err != nil {
		return nil, err
	}
	l.logger.Info("environment activated", "root", vctx.Root, "interpreter", vctx.Interpreter)
	return vctx, nil
}

// RunEntryPoint runs the configured program inside vctx and waits for it.
// A non-zero exit code is returned with a nil error.
func (l *Launcher) RunEntryPoint(ctx context.Context, vctx *venv.Context) (int, error) {
	ep := l.cfg.EntryPoint
	env := vctx.Environ(l.environ())

	path, err := vctx.LookPath(ep.Program, env)
	if err != nil {
		l.logger.Error("entry point not found", "program", ep.Program, "error", err)
		return -1, err
	}

	cmd := process.Command{Path: path, Args: ep.Args, Env: env, Dir: ep.Dir}
	l.logger.Info("entry point starting", "command", cmd.String(), "dir", ep.Dir)
	code, err := l.runner.Run(ctx, cmd)
	if err != nil {
		l.logger.Error("entry point failed to run", "command", cmd.String(), "error", err)
		return code, err
	}
	l.logger.Info("entry point exited", "exit_code", code)
	return code, nil
}

// WaitForAcknowledgment blocks on the user unless pausing is disabled.
func (l *Launcher) WaitForAcknowledgment(ctx context.Context) error {
	if !l.cfg.Pause {
		return nil
	}
	return l.ack.Acknowledge(ctx)
}
