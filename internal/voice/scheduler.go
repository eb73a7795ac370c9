package voice

import (
	"errors"
	"sync"
	"time"
)

var ErrSchedulerClosed = errors.New("scheduler is closed")

// Slot is one buffer placed on the playback timeline, measured from the start of the session.
type Slot struct {
	ID       int
	Start    time.Duration
	Duration time.Duration
}

func (s Slot) End() time.Duration {
	return s.Start + s.Duration
}

// Scheduler places incoming audio buffers back to back. nextStart is the watermark where the
// next buffer begins; a buffer never starts in the past.
type Scheduler struct {
	mu        sync.Mutex
	now       func() time.Duration
	nextStart time.Duration
	slots     map[int]Slot
	seq       int
	closed    bool
}

// NewScheduler uses now as the playback clock. A nil clock measures time since construction.
func NewScheduler(now func() time.Duration) *Scheduler {
	if now == nil {
		began := time.Now()
		now = func() time.Duration { return time.Since(began) }
	}
	return &Scheduler{now: now, slots: make(map[int]Slot)}
}

func (s *Scheduler) Schedule(d time.Duration) (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Slot{}, ErrSchedulerClosed
	}
	now := s.now()
	s.pruneLocked(now)
	start := s.nextStart
	if now > start {
		start = now
	}
	s.seq++
	slot := Slot{ID: s.seq, Start: start, Duration: d}
	s.slots[slot.ID] = slot
	s.nextStart = slot.End()
	return slot, nil
}

// Interrupt drops every scheduled buffer and resets the watermark. It returns how many
// buffers were cancelled.
func (s *Scheduler) Interrupt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.closed = true
}

// Active counts buffers that have not finished playing.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())
	return len(s.slots)
}

func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

func (s *Scheduler) resetLocked() int {
	n := len(s.slots)
	s.slots = make(map[int]Slot)
	s.nextStart = 0
	return n
}

func (s *Scheduler) pruneLocked(now time.Duration) {
	for id, slot := range s.slots {
		if slot.End() <= now {
			delete(s.slots, id)
		}
	}
}
