//go:build windows

package venv

func exeName(name string) string { return name + ".exe" }
