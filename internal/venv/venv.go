// Package venv resolves a Python virtual environment into an explicit
// execution context instead of mutating the launcher's own environment.
package venv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
)

// ErrNotFound means the environment directory or its bin dir is missing.
var ErrNotFound = errors.New("virtual environment not found")

// Context is an activated environment: where its executables live and the
// variables a child process needs to run inside it.
type Context struct {
	Root        string
	BinDir      string
	Interpreter string
	// Config holds pyvenv.cfg entries, if the file exists.
	Config map[string]string
	// Extra is applied on top of the activation variables.
	Extra map[string]string
}

// BinDirName is "Scripts" on Windows and "bin" elsewhere.
func BinDirName() string {
	if runtime.GOOS == "windows" {
		return "Scripts"
	}
	return "bin"
}

// Resolve activates the environment at dir. dir may be relative to the
// working directory.
func Resolve(dir string) (*Context, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
	}
	bin := filepath.Join(root, BinDirName())
	if info, err := os.Stat(bin); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s has no %s directory", ErrNotFound, root, BinDirName())
	}

	ctx := &Context{Root: root, BinDir: bin}
	for _, name := range []string{"python", "python3"} {
		if p, ok := executableIn(bin, name); ok {
			ctx.Interpreter = p
			break
		}
	}

	cfgPath := filepath.Join(root, "pyvenv.cfg")
	if f, err := os.Open(cfgPath); err == nil {
		ctx.Config, err = parsePyvenvCfg(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", cfgPath, err)
		}
	}
	return ctx, nil
}

// parsePyvenvCfg reads "key = value" lines. Keys are lower-cased.
func parsePyvenvCfg(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return out, sc.Err()
}

// Prompt is the label activation scripts put in front of the shell prompt.
func (c *Context) Prompt() string {
	if p := c.Config["prompt"]; p != "" {
		return strings.Trim(p, `'"`)
	}
	return filepath.Base(c.Root)
}

// LoadEnvFile reads a dotenv file into c.Extra. An empty path is a no-op.
func (c *Context) LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	if c.Extra == nil {
		c.Extra = make(map[string]string, len(vars))
	}
	for k, v := range vars {
		c.Extra[k] = v
	}
	return nil
}

// Environ returns base with the environment activated: VIRTUAL_ENV set, the
// bin dir first on PATH, PYTHONHOME removed, then Extra applied.
func (c *Context) Environ(base []string) []string {
	env := make([]string, 0, len(base)+4)
	oldPath := ""
	for _, kv := range base {
		key, val, _ := strings.Cut(kv, "=")
		switch {
		case keyEqual(key, "PATH"):
			oldPath = val
			continue
		case keyEqual(key, "PYTHONHOME"),
			keyEqual(key, "VIRTUAL_ENV"),
			keyEqual(key, "VIRTUAL_ENV_PROMPT"):
			continue
		}
		if _, overridden := c.lookupExtra(key); overridden {
			continue
		}
		env = append(env, kv)
	}

	path := c.BinDir
	if oldPath != "" {
		path += string(os.PathListSeparator) + oldPath
	}
	env = append(env,
		"VIRTUAL_ENV="+c.Root,
		"VIRTUAL_ENV_PROMPT="+c.Prompt(),
		"PATH="+path,
	)
	for k, v := range c.Extra {
		if keyEqual(k, "PATH") || keyEqual(k, "VIRTUAL_ENV") {
			continue
		}
		env = append(env, k+"="+v)
	}
	return env
}

func (c *Context) lookupExtra(key string) (string, bool) {
	for k, v := range c.Extra {
		if keyEqual(k, key) {
			return v, true
		}
	}
	return "", false
}

// LookPath resolves name the way a shell would after activation: the bin dir
// first, then the rest of PATH from env. Names containing a separator are
// returned unchanged.
func (c *Context) LookPath(name string, env []string) (string, error) {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return name, nil
	}
	dirs := []string{c.BinDir}
	for _, kv := range env {
		if key, val, _ := strings.Cut(kv, "="); keyEqual(key, "PATH") {
			dirs = append(dirs, filepath.SplitList(val)...)
		}
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if p, ok := executableIn(dir, name); ok {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: executable not found in %s or PATH", name, c.BinDir)
}

func keyEqual(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
