// Package mutator applies task actions to files under a workspace root.
package mutator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"promptbatch/internal/executor"
	ilogger "promptbatch/internal/logger"
	"promptbatch/internal/utils"
)

// ErrNoMatch is returned by findReplace when the find text does not occur.
var ErrNoMatch = errors.New("find text not found")

const defaultFileMode fs.FileMode = 0o644

// FileMutator writes action results to files. Every target must resolve
// inside root. Mutations are serialised so concurrent tasks touching the same
// file do not interleave.
type FileMutator struct {
	root string
	mu   sync.Mutex
}

var _ executor.ContentMutator = (*FileMutator)(nil)

func New(root string) *FileMutator {
	return &FileMutator{root: root}
}

// Root is the directory targets are confined to.
func (m *FileMutator) Root() string { return m.root }

func (m *FileMutator) Apply(ctx context.Context, kind executor.ActionType, p executor.MutationParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := utils.ResolveWithin(m.root, p.TargetPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case executor.ActionCreate:
		err = createFile(path, p.Content)
	case executor.ActionAppend:
		err = appendFile(path, p.Content)
	case executor.ActionPrepend:
		err = prependFile(path, p.Content)
	case executor.ActionReplace:
		if p.Line > 0 {
			err = replaceLine(path, p.Line, p.Content)
		} else {
			err = writeFileAtomic(path, []byte(p.Content))
		}
	case executor.ActionFindReplace:
		err = findReplace(path, p)
	default:
		return &executor.UnknownActionTypeError{Type: kind}
	}
	if err != nil {
		return err
	}
	ilogger.LogDebug("file mutated", "action", string(kind), "path", path)
	return nil
}

func createFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, defaultFileMode) // #nosec G304 -- confined to root
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("target %s already exists", filepath.Base(path))
		}
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// appendFile adds content on a new line after any existing text.
func appendFile(path, content string) error {
	existing, err := readOptional(path)
	if err != nil {
		return err
	}
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		content = "\n" + content
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, defaultFileMode) // #nosec G304 -- confined to root
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func prependFile(path, content string) error {
	existing, err := readOptional(path)
	if err != nil {
		return err
	}
	if existing != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return writeFileAtomic(path, []byte(content+existing))
}

func replaceLine(path string, line int, content string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- confined to root
	if err != nil {
		return err
	}
	text := string(data)
	trailingNewline := strings.HasSuffix(text, "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if text == "" {
		lines = nil
	}
	if line > len(lines) {
		return fmt.Errorf("line %d out of range (file has %d lines)", line, len(lines))
	}
	lines[line-1] = strings.TrimSuffix(content, "\n")

	out := strings.Join(lines, "\n")
	if trailingNewline {
		out += "\n"
	}
	return writeFileAtomic(path, []byte(out))
}

func findReplace(path string, p executor.MutationParams) error {
	if p.FindText == "" {
		return executor.ErrMissingFindText
	}
	data, err := os.ReadFile(path) // #nosec G304 -- confined to root
	if err != nil {
		return err
	}
	re, err := findPattern(p.FindText, p.CaseSensitive, p.WholeWord)
	if err != nil {
		return err
	}

	text := string(data)
	var out string
	if p.ReplaceAll {
		if !re.MatchString(text) {
			return fmt.Errorf("%w: %q in %s", ErrNoMatch, p.FindText, filepath.Base(path))
		}
		out = re.ReplaceAllLiteralString(text, p.Content)
	} else {
		loc := re.FindStringIndex(text)
		if loc == nil {
			return fmt.Errorf("%w: %q in %s", ErrNoMatch, p.FindText, filepath.Base(path))
		}
		out = text[:loc[0]] + p.Content + text[loc[1]:]
	}
	return writeFileAtomic(path, []byte(out))
}

// findPattern matches find literally. Word boundaries are only enforced on
// edges that start or end with a word character.
func findPattern(find string, caseSensitive, wholeWord bool) (*regexp.Regexp, error) {
	pattern := regexp.QuoteMeta(find)
	if wholeWord {
		if r, _ := utf8.DecodeRuneInString(find); isWordRune(r) {
			pattern = `\b` + pattern
		}
		if r, _ := utf8.DecodeLastRuneInString(find); isWordRune(r) {
			pattern += `\b`
		}
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- confined to root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// writeFileAtomic replaces path via a temp file in the same directory,
// keeping the existing file mode.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	mode := defaultFileMode
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
