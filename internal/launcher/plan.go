package launcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/davebream/olaunch/internal/config"
)

// Step is one line of a dry-run plan.
type Step struct {
	Name   string
	Action string
	Detail string
}

const (
	ActionSkip     = "skip"
	ActionStart    = "start"
	ActionActivate = "activate"
	ActionRun      = "run"
	ActionPause    = "pause"
	ActionFail     = "fail"
)

// Plan reports what Run would do right now without starting anything.
func (l *Launcher) Plan(ctx context.Context) []Step {
	svc := l.cfg.Service
	steps := make([]Step, 0, 4)

	found, err := l.inspector.Find(ctx, svc.Name)
	switch {
	case len(found) > 0:
		steps = append(steps, Step{"service", ActionSkip, fmt.Sprintf("%s already running (pid %d)", svc.Name, found[0].PID)})
	default:
		detail := fmt.Sprintf("%s %s, then %s", svc.Command, strings.Join(svc.Args, " "), describeWait(l.cfg.Readiness))
		if err != nil {
			detail += fmt.Sprintf(" (process list unavailable: %v)", err)
		}
		steps = append(steps, Step{"service", ActionStart, detail})
	}

	vctx, err := l.ActivateEnvironment()
	if err != nil {
		steps = append(steps,
			Step{"environment", ActionFail, err.Error()},
			Step{"entry point", ActionSkip, "environment unavailable"},
		)
	} else {
		steps = append(steps, Step{"environment", ActionActivate, vctx.Root})
		ep := l.cfg.EntryPoint
		if path, err := vctx.LookPath(ep.Program, vctx.Environ(l.environ())); err != nil {
			steps = append(steps, Step{"entry point", ActionFail, err.Error()})
		} else {
			steps = append(steps, Step{"entry point", ActionRun, strings.TrimSpace(path + " " + strings.Join(ep.Args, " "))})
		}
	}

	if l.cfg.Pause {
		steps = append(steps, Step{"acknowledge", ActionPause, "wait for a key"})
	} else {
		steps = append(steps, Step{"acknowledge", ActionSkip, "pause disabled"})
	}
	return steps
}

func describeWait(r config.ReadinessConfig) string {
	if r.Mode == config.ReadinessDelay {
		return fmt.Sprintf("wait %s", r.DelayDuration())
	}
	return fmt.Sprintf("poll %s for up to %s", r.URL, r.TimeoutDuration())
}
