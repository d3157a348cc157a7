package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

// EventLog appends events as JSON lines to a single file.
type EventLog struct {
	path string

	mu sync.Mutex
}

func NewEventLog(path string) (*EventLog, error) {
	if path == "" {
		path = "logs/app_log.jsonl"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create event log dir: %w", err)
	}
	return &EventLog{path: path}, nil
}

func (l *EventLog) Record(_ context.Context, event domain.Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write event log: %w", err)
	}
	return nil
}
