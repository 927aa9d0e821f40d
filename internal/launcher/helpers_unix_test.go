//go:build !windows

package launcher

func exeName(name string) string { return name }
