// Package audit appends one JSON line per successful match to a local log
// file. The log is append-only; nothing in the service reads it back.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is a snapshot of one successful match.
type Event struct {
	Timestamp time.Time       `json:"ts"`
	SessionID string          `json:"session_id"`
	Lat       float64         `json:"lat"`
	Lon       float64         `json:"lon"`
	NeedRaw   string          `json:"need_raw"`
	Category  string          `json:"need_category"`
	Returned  int             `json:"returned"`
	Results   json.RawMessage `json:"results"`
}

// Log is a mutex-guarded JSONL appender.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates the appender, ensuring the parent directory exists.
func NewLog(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &Log{path: path}, nil
}

// Append writes one event as a single JSON line. The file is opened per call
// with O_APPEND so concurrent processes cannot interleave partial lines.
func (l *Log) Append(ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
