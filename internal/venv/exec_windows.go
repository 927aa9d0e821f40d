//go:build windows

package venv

import (
	"os"
	"path/filepath"
	"strings"
)

var windowsExts = []string{".exe", ".com", ".bat", ".cmd"}

func executableIn(dir, name string) (string, bool) {
	candidates := []string{name}
	if filepath.Ext(name) == "" {
		candidates = candidates[:0]
		for _, ext := range windowsExts {
			candidates = append(candidates, name+ext)
		}
	}
	for _, c := range candidates {
		p := filepath.Join(dir, c)
		if info, err := os.Stat(p); err == nil && !info.IsDir() && hasExecExt(c) {
			return p, true
		}
	}
	return "", false
}

func hasExecExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range windowsExts {
		if ext == e {
			return true
		}
	}
	return false
}
