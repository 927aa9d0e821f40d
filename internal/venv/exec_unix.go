//go:build !windows

package venv

import (
	"os"
	"path/filepath"
)

func executableIn(dir, name string) (string, bool) {
	p := filepath.Join(dir, name)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() || info.Mode().Perm()&0111 == 0 {
		return "", false
	}
	return p, true
}
