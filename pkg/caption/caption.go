// Package caption converts raw AI-generated text into bounded, readable
// caption units and retains a short visible history for the dashboard.
package caption

import (
	"sync"
	"time"
)

// Role identifies the author of a caption.
type Role string

const (
	// RoleAssistant is text spoken by the AI interviewer.
	RoleAssistant Role = "assistant"

	// RoleCandidate is text transcribed from the candidate.
	// Candidate captions are retained but never displayed.
	RoleCandidate Role = "candidate"
)

// DefaultHistorySize is the default caption history capacity.
const DefaultHistorySize = 10

// Caption is a single display unit of interviewer speech.
type Caption struct {
	Text      string    `json:"text"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Visible   bool      `json:"visible"`
}

// Queue holds the current caption plus a bounded most-recent-first history.
// All methods are safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	capacity int
	entries  []Caption // oldest first; bounded by capacity
	current  *Caption  // most recent assistant caption
}

// NewQueue creates a caption queue with the given history capacity.
// A capacity <= 0 uses DefaultHistorySize.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &Queue{
		capacity: capacity,
		entries:  make([]Caption, 0, capacity),
	}
}

// Enqueue sanitizes and records text from the given role.
// Assistant text becomes the new current caption; candidate text is
// accepted but filtered out at the read boundary.
func (q *Queue) Enqueue(text string, role Role) {
	c := Caption{
		Text:      Sanitize(text),
		Role:      role,
		Timestamp: time.Now(),
		Visible:   true,
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, c)
	if len(q.entries) > q.capacity {
		// Evict the oldest entry.
		q.entries = q.entries[1:]
	}

	if role == RoleAssistant {
		q.current = &c
	}
}

// Current returns the current assistant caption, or nil when none exists.
func (q *Queue) Current() *Caption {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return nil
	}
	c := *q.current
	return &c
}

// History returns up to k assistant captions, newest first.
func (q *Queue) History(k int) []Caption {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Caption, 0, k)
	for i := len(q.entries) - 1; i >= 0 && len(out) < k; i-- {
		if q.entries[i].Role != RoleAssistant {
			continue
		}
		out = append(out, q.entries[i])
	}
	return out
}

// Len returns the number of retained entries (all roles).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// SetCurrentVisibility toggles the display flag on the current caption.
// No-op when the queue is empty.
func (q *Queue) SetCurrentVisibility(visible bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return
	}
	q.current.Visible = visible
}
