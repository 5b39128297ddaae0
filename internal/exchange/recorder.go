package exchange

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"

	"mbostrength-go/internal/signal"
)

// SessionRecorder appends events as JSON lines the replay provider can read back.
type SessionRecorder struct {
	mu    sync.Mutex
	path  string
	step  decimal.Decimal
	file  *os.File
	w     *bufio.Writer
	count int
}

// NewSessionRecorder creates/opens path for appending. step must match the feed's price step.
func NewSessionRecorder(path string, step decimal.Decimal) (*SessionRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &SessionRecorder{path: path, step: step, file: file, w: bufio.NewWriter(file)}, nil
}

// Record writes one event.
func (r *SessionRecorder) Record(ev signal.Event) error {
	data, err := EncodeEvent(ev, r.step)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return fmt.Errorf("record %s: recorder closed", r.path)
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("record %s: %w", r.path, err)
	}
	r.count++
	return nil
}

// Path returns the session file.
func (r *SessionRecorder) Path() string { return r.path }

// Count reports how many events were written.
func (r *SessionRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close flushes and closes the file.
func (r *SessionRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.w.Flush()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file = nil
	return err
}
