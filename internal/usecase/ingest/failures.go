package ingest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"lickarchive/internal/errs"
)

const failureFileBase = "ingest_failures"

// FailureLog appends one line per file that could not be ingested. The file
// is created lazily on the first failure, so a clean run leaves nothing
// behind. Line formats are stable because RetryFailures parses them back.
type FailureLog struct {
	dir string

	mu   sync.Mutex
	file *os.File
	path string
}

func NewFailureLog(dir string) *FailureLog {
	return &FailureLog{dir: dir}
}

// Path returns the artifact path, or "" if no failure was recorded.
func (l *FailureLog) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// ReadFailure records a file whose header could not be read or parsed.
func (l *FailureLog) ReadFailure(path string, cause error) error {
	return l.append(fmt.Sprintf("Failed to read %s: %v\n", path, cause))
}

// RetryFailure records a row the database still rejected after retries.
func (l *FailureLog) RetryFailure(path string, cause error) error {
	return l.append(fmt.Sprintf("Failed to retry %s: %v\n", path, cause))
}

func (l *FailureLog) append(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		path, err := nextFailurePath(l.dir)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return errs.Wrapf(err, "create failure log %s", path)
		}
		l.file = f
		l.path = path
	}

	if _, err := l.file.WriteString(line); err != nil {
		return errs.Wrapf(err, "append to failure log %s", l.path)
	}
	return nil
}

// Close flushes and closes the artifact, if one was opened.
func (l *FailureLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// nextFailurePath picks the first unused name in dir:
// ingest_failures.txt, ingest_failures.1.txt, ingest_failures.2.txt, ...
func nextFailurePath(dir string) (string, error) {
	for i := 0; ; i++ {
		name := failureFileBase + ".txt"
		if i > 0 {
			name = fmt.Sprintf("%s.%d.txt", failureFileBase, i)
		}
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		} else if err != nil {
			return "", errs.Wrapf(err, "stat %s", path)
		}
	}
}

// ParseFailureLine extracts the file path from a failure artifact line.
// Only the two formats this package writes are accepted; the path is the
// fourth whitespace field with the trailing colon stripped:
//
//	Failed to read /data/2022-01/01/shane/b1.fits: no END card
//	Failed to retry /data/2022-01/01/shane/b1.fits: connection reset
func ParseFailureLine(line string) (string, bool) {
	if !strings.HasPrefix(line, "Failed to read ") &&
		!strings.HasPrefix(line, "Failed to retry ") {
		return "", false
	}
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return "", false
	}
	path := strings.TrimSuffix(fields[3], ":")
	if path == "" {
		return "", false
	}
	return path, true
}

// ReadFailurePaths parses every line of a failure artifact, skipping blank
// and malformed lines.
func ReadFailurePaths(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrapf(err, "open failure log %s", path)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if p, ok := ParseFailureLine(line); ok {
			paths = append(paths, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrapf(err, "read failure log %s", path)
	}
	return paths, nil
}
