package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscapesRoot is returned when a path resolves outside its root.
var ErrPathEscapesRoot = errors.New("path escapes root directory")

// IsWithinDir reports whether path is dir or lies beneath it. Both should be
// clean absolute paths.
func IsWithinDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	rel = filepath.Clean(rel)
	if rel == "." {
		return true
	}
	if rel == ".." {
		return false
	}
	prefix := ".." + string(os.PathSeparator)
	return !strings.HasPrefix(rel, prefix)
}

// ResolveWithin resolves p against root and returns the absolute path. The
// result must stay inside root both lexically and once symlinks are followed.
// p need not exist yet.
func ResolveWithin(root, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("path is empty")
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	rootAbs = filepath.Clean(rootAbs)

	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(rootAbs, target)
	}
	target = filepath.Clean(target)
	if !IsWithinDir(target, rootAbs) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, p)
	}

	resolvedRoot, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	resolved, err := evalExistingPrefix(target)
	if err != nil {
		return "", err
	}
	if !IsWithinDir(resolved, filepath.Clean(resolvedRoot)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, p)
	}
	return target, nil
}

// evalExistingPrefix follows symlinks in the longest existing prefix of p and
// re-attaches the missing tail.
func evalExistingPrefix(p string) (string, error) {
	existing := p
	var rest []string
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return p, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}
}
