package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CleanupStats summarises a CleanupOldLogs pass.
type CleanupStats struct {
	Scanned      int
	Deleted      int
	Kept         int
	Errors       int
	DeletedFiles []string
	KeptFiles    []string
}

// CleanupOldLogs removes log files left behind by processes that are no
// longer running. Logs of live processes, including this one, are kept.
func CleanupOldLogs() (CleanupStats, error) {
	return cleanupOldLogs()
}

func cleanupOldLogs() (CleanupStats, error) {
	var stats CleanupStats
	tempDir := os.TempDir()

	matches, err := hooks.glob(filepath.Join(tempDir, PrimaryLogPrefix()+"-*.log"))
	if err != nil {
		return stats, fmt.Errorf("glob log files: %w", err)
	}

	var errs []error
	for _, path := range matches {
		pid, ok := parsePIDFromLog(path)
		if !ok {
			continue
		}
		stats.Scanned++

		if isUnsafeFile(path, tempDir) {
			stats.Kept++
			stats.KeptFiles = append(stats.KeptFiles, path)
			continue
		}

		if pid == os.Getpid() || ownerHoldsLog(path, pid) {
			stats.Kept++
			stats.KeptFiles = append(stats.KeptFiles, path)
			continue
		}

		if err := hooks.remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			stats.Errors++
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		stats.Deleted++
		stats.DeletedFiles = append(stats.DeletedFiles, path)
	}

	return stats, errors.Join(errs...)
}

// parsePIDFromLog extracts the pid from promptbatch-<pid>[-suffix].log.
func parsePIDFromLog(path string) (int, bool) {
	name := filepath.Base(path)
	prefix := PrimaryLogPrefix() + "-"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".log") {
		return 0, false
	}
	core := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".log")
	if idx := strings.IndexByte(core, '-'); idx >= 0 {
		core = core[:idx]
	}
	if core == "" {
		return 0, false
	}
	pid, err := strconv.Atoi(core)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// ownerHoldsLog reports whether the process named in the log file is still
// the one that wrote it.
func ownerHoldsLog(path string, pid int) bool {
	owner := hooks.probe(pid)
	if !owner.Alive {
		return false
	}
	info, err := hooks.lstat(path)
	if err != nil {
		return true
	}
	return !owner.outlivedBy(info.ModTime())
}

// isUnsafeFile refuses symlinks, non-regular files, and anything that resolves
// outside the temp dir.
func isUnsafeFile(path, tempDir string) bool {
	info, err := hooks.lstat(path)
	if err != nil {
		return true
	}
	if info.Mode()&os.ModeSymlink != 0 || !info.Mode().IsRegular() {
		return true
	}
	resolved, err := hooks.evalSymlinks(path)
	if err != nil {
		return true
	}
	base, err := hooks.evalSymlinks(tempDir)
	if err != nil {
		base = tempDir
	}
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(resolved))
	if err != nil {
		return true
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
