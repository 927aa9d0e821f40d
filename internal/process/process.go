// Package process inspects the OS process table and starts detached
// background services.
package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	psproc "github.com/shirou/gopsutil/v3/process"
)

// Info describes a process found in the process table.
type Info struct {
	PID     int32
	Name    string
	Cmdline string
}

// Inspector answers whether a named process is running.
type Inspector interface {
	Find(ctx context.Context, name string) ([]Info, error)
}

// Command is a program to start, with an explicit environment.
// A nil Env inherits the current process environment.
type Command struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Spawner starts a command without waiting for it.
type Spawner interface {
	Spawn(ctx context.Context, cmd Command) (int, error)
}

// MatchName reports whether image contains name, ignoring case.
func MatchName(image, name string) bool {
	if name == "" {
		return false
	}
	return strings.Contains(strings.ToLower(image), strings.ToLower(name))
}

// PsutilInspector lists processes through gopsutil.
type PsutilInspector struct {
	// list is swapped out in tests.
	list    func(ctx context.Context) ([]*psproc.Process, error)
	selfPID int32
}

func NewPsutilInspector() *PsutilInspector {
	return &PsutilInspector{
		list:    psproc.ProcessesWithContext,
		selfPID: int32(os.Getpid()),
	}
}

// Find returns every process other than the caller whose image name contains
// name, case-insensitively. Processes that exit mid-scan are skipped.
func (p *PsutilInspector) Find(ctx context.Context, name string) ([]Info, error) {
	procs, err := p.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var found []Info
	for _, proc := range procs {
		if proc.Pid == p.selfPID {
			continue
		}
		image, err := proc.NameWithContext(ctx)
		if err != nil || !MatchName(image, name) {
			continue
		}
		cmdline, _ := proc.CmdlineWithContext(ctx)
		found = append(found, Info{PID: proc.Pid, Name: image, Cmdline: cmdline})
	}
	return found, nil
}

// ExecSpawner starts commands detached from the launcher's console: stdio is
// closed, the child gets its own session or process group, and the handle is
// released so the child outlives the launcher.
type ExecSpawner struct{}

func (ExecSpawner) Spawn(ctx context.Context, c Command) (int, error) {
	path, err := exec.LookPath(c.Path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", c.Path, err)
	}

	// Not CommandContext: the child must survive ctx.
	cmd := exec.Command(path, c.Args...)
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachedAttr()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", c, err)
	}
	pid := cmd.Process.Pid
	cmd.Process.Release()
	return pid, nil
}
