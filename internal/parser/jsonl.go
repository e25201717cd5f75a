package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"promptbatch/internal/executor"
)

const (
	jsonLineReaderSize   = 64 * 1024
	jsonLineMaxBytes     = 10 * 1024 * 1024
	jsonLinePreviewBytes = 256
)

// ParseJSONL reads one task per line. Blank lines are ignored. A line over
// 10 MiB or one that does not decode becomes a task with InputError set,
// naming its 1-based line number, and warnFn is told about it.
func ParseJSONL(r io.Reader, warnFn func(string)) ([]executor.PromptTask, error) {
	if warnFn == nil {
		warnFn = func(string) {}
	}
	lr := &lineReader{
		r:       bufio.NewReaderSize(r, jsonLineReaderSize),
		max:     jsonLineMaxBytes,
		preview: jsonLinePreviewBytes,
	}

	var tasks []executor.PromptTask
	lineNo := 0
	for {
		line, tooLong, err := lr.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read line %d: %w", lineNo+1, err)
		}
		lineNo++

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if tooLong {
			warnFn(fmt.Sprintf("Overlong JSON line %d (> %d bytes): %s", lineNo, jsonLineMaxBytes, TruncateBytes(line, 100)))
			tasks = append(tasks, executor.PromptTask{
				InputError: fmt.Sprintf("task line %d exceeds %d MiB", lineNo, jsonLineMaxBytes>>20),
			})
			continue
		}

		task := decodeTask(line, fmt.Sprintf("line %d", lineNo))
		if task.InputError != "" {
			warnFn(fmt.Sprintf("Invalid task on line %d: %s", lineNo, TruncateBytes(line, 100)))
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// lineReader yields newline-terminated lines without buffering more than max
// bytes of any one of them.
type lineReader struct {
	r       *bufio.Reader
	max     int
	preview int
	buf     []byte
}

// next returns the next line, valid until the following call. A line longer
// than max comes back as its first preview bytes with tooLong set; the rest
// of it is discarded.
func (lr *lineReader) next() (line []byte, tooLong bool, err error) {
	if lr.r == nil {
		return nil, false, errors.New("reader is nil")
	}
	lr.buf = lr.buf[:0]
	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			return nil, tooLong, err
		}
		if !tooLong {
			if len(lr.buf)+len(chunk) <= lr.max {
				lr.buf = append(lr.buf, chunk...)
			} else {
				tooLong = true
				keep := min(max(lr.preview, 0), len(lr.buf)+len(chunk))
				if keep <= len(lr.buf) {
					lr.buf = lr.buf[:keep]
				} else {
					lr.buf = append(lr.buf, chunk[:keep-len(lr.buf)]...)
				}
			}
		}
		if !isPrefix {
			return lr.buf, tooLong, nil
		}
	}
}

// TruncateBytes renders at most maxLen bytes of b, marking a cut with "...".
func TruncateBytes(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	if maxLen < 0 {
		return ""
	}
	return string(b[:maxLen]) + "..."
}
