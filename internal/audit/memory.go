package audit

import (
	"context"
	"sync"
)

type memoryRecorder struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryRecorder returns an in-process recorder.
func NewMemoryRecorder() Recorder {
	return &memoryRecorder{}
}

func (m *memoryRecorder) Record(_ context.Context, ev Event) error {
	ev, err := prepare(ev)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

// Recent returns events for ceu, newest first.
func (m *memoryRecorder) Recent(_ context.Context, ceu string, limit int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for i := len(m.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if m.events[i].CEU == ceu {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}
