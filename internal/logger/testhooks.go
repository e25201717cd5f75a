package logger

import (
	"os"
	"path/filepath"
)

// cleanupHooks are the filesystem and process probes used by log cleanup.
type cleanupHooks struct {
	probe        func(int) ownerState
	remove       func(string) error
	glob         func(string) ([]string, error)
	lstat        func(string) (os.FileInfo, error)
	evalSymlinks func(string) (string, error)
}

var hooks = cleanupHooks{
	probe:        probeOwner,
	remove:       os.Remove,
	glob:         filepath.Glob,
	lstat:        os.Lstat,
	evalSymlinks: filepath.EvalSymlinks,
}

// patchHooks overrides the non-nil fields of h and returns a restore func.
func patchHooks(h cleanupHooks) (restore func()) {
	prev := hooks
	if h.probe != nil {
		hooks.probe = h.probe
	}
	if h.remove != nil {
		hooks.remove = h.remove
	}
	if h.glob != nil {
		hooks.glob = h.glob
	}
	if h.lstat != nil {
		hooks.lstat = h.lstat
	}
	if h.evalSymlinks != nil {
		hooks.evalSymlinks = h.evalSymlinks
	}
	return func() { hooks = prev }
}
