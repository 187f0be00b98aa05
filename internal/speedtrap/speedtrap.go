// Package speedtrap buffers the named events and timers a page records
// between two metrics flushes. Offsets are reported in milliseconds
// relative to the buffer baseline, which moves forward on every Clear.
package speedtrap

import (
	"sync"
	"time"

	"github.com/vincentbai/accounts-metrics/internal/clock"
	"github.com/vincentbai/accounts-metrics/internal/models"
)

type event struct {
	name string
	at   time.Time
}

type timer struct {
	name  string
	start time.Time
	stop  time.Time
	open  bool
}

// Buffer holds one generation of events and timers.
type Buffer struct {
	mu               sync.Mutex
	clock            clock.Clock
	pageStart        time.Time
	baseline         time.Time
	events           []event
	timers           []*timer
	navigationTiming map[string]int64
}

// New returns an empty Buffer whose page start and baseline are now.
// navigationTiming may be nil.
func New(c clock.Clock, navigationTiming map[string]int64) *Buffer {
	if c == nil {
		c = clock.Real()
	}
	now := c.Now()
	return &Buffer{
		clock:            c,
		pageStart:        now,
		baseline:         now,
		navigationTiming: navigationTiming,
	}
}

// Capture appends an event stamped with the current time.
func (b *Buffer) Capture(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event{name: name, at: b.clock.Now()})
}

// Start opens a timer. Timers sharing a name may overlap.
func (b *Buffer) Start(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timers = append(b.timers, &timer{name: name, start: b.clock.Now(), open: true})
}

// Stop closes the oldest open timer called name. It is a no-op when no
// such timer is open.
func (b *Buffer) Stop(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.timers {
		if t.open && t.name == name {
			t.stop = b.clock.Now()
			t.open = false
			return
		}
	}
}

// Clear starts a new generation. Navigation timing is only reported in
// the first one.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
	b.timers = nil
	b.navigationTiming = nil
	b.baseline = b.clock.Now()
}

// Events returns the captured events in insertion order.
func (b *Buffer) Events() []models.EventRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	records := make([]models.EventRecord, 0, len(b.events))
	for _, e := range b.events {
		records = append(records, models.EventRecord{
			Type:   e.name,
			Offset: b.offsetLocked(e.at),
		})
	}
	return records
}

// Timers returns completed timers grouped by name. Timers that were
// never stopped are left out.
func (b *Buffer) Timers() map[string][]models.TimerRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	records := make(map[string][]models.TimerRecord)
	for _, t := range b.timers {
		if t.open {
			continue
		}
		records[t.name] = append(records[t.name], models.TimerRecord{
			Start:   b.offsetLocked(t.start),
			Stop:    b.offsetLocked(t.stop),
			Elapsed: t.stop.Sub(t.start).Milliseconds(),
		})
	}
	return records
}

// Duration is the time the page has been open, in milliseconds.
func (b *Buffer) Duration() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clock.Now().Sub(b.pageStart).Milliseconds()
}

// NavigationTiming returns the page load timing, or nil once the first
// generation has been cleared.
func (b *Buffer) NavigationTiming() map[string]int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.navigationTiming == nil {
		return nil
	}
	timing := make(map[string]int64, len(b.navigationTiming))
	for key, value := range b.navigationTiming {
		timing[key] = value
	}
	return timing
}

// offsetLocked assumes b.mu is held.
func (b *Buffer) offsetLocked(at time.Time) int64 {
	return at.Sub(b.baseline).Milliseconds()
}
