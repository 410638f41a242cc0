// internal/adapters/notify/recorder.go
package notify

import (
	"context"
	"sync"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// Recorder keeps notifications in memory. cartctl uses it to print what a
// command produced.
type Recorder struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, note domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
	return nil
}

// All returns a copy of the recorded notifications in arrival order
func (r *Recorder) All() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, len(r.notes))
	copy(out, r.notes)
	return out
}

// Count returns how many notifications of the given level were recorded
func (r *Recorder) Count(level domain.NotificationLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Level == level {
			n++
		}
	}
	return n
}

// Drain returns the recorded notifications and forgets them
func (r *Recorder) Drain() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notes
	r.notes = nil
	return out
}
