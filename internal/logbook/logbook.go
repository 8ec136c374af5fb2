// Package logbook keeps a plain-text journal of graph commands in
// .agent/logs/graph.log so past builds and validations can be reviewed.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileName is the journal file created inside the logs directory.
const FileName = "graph.log"

// Level represents the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook appends one line per entry to a text file.
type Logbook struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// Open creates a logbook backed by dir/graph.log, creating dir if needed.
func Open(dir string) (*Logbook, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure %s: %w", dir, err)
	}
	return &Logbook{path: filepath.Join(dir, FileName), now: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record appends an entry tagged with the command that produced it. A nil
// logbook drops the entry.
func (l *Logbook) Record(level Level, command, message string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %-5s [%s] %s\n",
		l.now().UTC().Format(time.RFC3339),
		string(level),
		command,
		strings.Join(strings.Fields(message), " "),
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logbook: open %s: %w", l.path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("logbook: append: %w", err)
	}
	return nil
}

// Info records an informational entry.
func (l *Logbook) Info(command, format string, args ...any) error {
	return l.Record(LevelInfo, command, fmt.Sprintf(format, args...))
}

// Warn records a warning entry.
func (l *Logbook) Warn(command, format string, args ...any) error {
	return l.Record(LevelWarn, command, fmt.Sprintf(format, args...))
}

// Error records an error entry.
func (l *Logbook) Error(command, format string, args ...any) error {
	return l.Record(LevelError, command, fmt.Sprintf(format, args...))
}

// Tail returns up to maxLines of the most recent entries along with the
// total number of entries in the journal.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}
