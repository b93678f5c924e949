// Package render drives repainting of a board: a Scheduler runs a frame
// loop on top of a FrameSource, and an Engine paints the visible part of a
// scene through the viewport transform on each tick.
package render

import (
	"sort"
	"sync"
	"time"
)

// FrameID identifies a pending frame request.
type FrameID uint64

// FrameSource delivers one-shot frame callbacks, like requestAnimationFrame.
type FrameSource interface {
	Request(fn func(now time.Time)) FrameID
	Cancel(id FrameID)
}

// TickerSource fires frame callbacks on timers at a fixed rate.
type TickerSource struct {
	interval time.Duration

	mu     sync.Mutex
	nextID FrameID
	timers map[FrameID]*time.Timer
}

// NewTickerSource creates a source firing at fps frames per second.
// Non-positive fps defaults to 60.
func NewTickerSource(fps int) *TickerSource {
	if fps <= 0 {
		fps = 60
	}
	return &TickerSource{
		interval: time.Second / time.Duration(fps),
		timers:   make(map[FrameID]*time.Timer),
	}
}

// Interval returns the delay between frames.
func (t *TickerSource) Interval() time.Duration { return t.interval }

func (t *TickerSource) Request(fn func(now time.Time)) FrameID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.timers[id] = time.AfterFunc(t.interval, func() {
		t.mu.Lock()
		_, live := t.timers[id]
		delete(t.timers, id)
		t.mu.Unlock()
		if live {
			fn(time.Now())
		}
	})
	return id
}

func (t *TickerSource) Cancel(id FrameID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tm, ok := t.timers[id]; ok {
		tm.Stop()
		delete(t.timers, id)
	}
}

// ManualSource queues frame callbacks until Step is called. Hosts that own
// their own frame clock (tests, the wasm bridge) drive it explicitly.
type ManualSource struct {
	mu      sync.Mutex
	nextID  FrameID
	pending map[FrameID]func(time.Time)
}

// NewManualSource creates an idle source.
func NewManualSource() *ManualSource {
	return &ManualSource{pending: make(map[FrameID]func(time.Time))}
}

func (m *ManualSource) Request(fn func(now time.Time)) FrameID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.pending[m.nextID] = fn
	return m.nextID
}

func (m *ManualSource) Cancel(id FrameID) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

// Pending returns the number of queued callbacks.
func (m *ManualSource) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Step fires every callback queued before the call, in request order.
// Callbacks requested while stepping wait for the next Step.
func (m *ManualSource) Step(now time.Time) int {
	m.mu.Lock()
	ids := make([]FrameID, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(time.Time), len(ids))
	for i, id := range ids {
		fns[i] = m.pending[id]
		delete(m.pending, id)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(now)
	}
	return len(fns)
}

// Scheduler runs fn once per frame while started. Start and Stop are
// idempotent; Stop cancels the pending request so no callback fires after it.
type Scheduler struct {
	src FrameSource
	fn  func(now time.Time)

	mu      sync.Mutex
	running bool
	gen     uint64
	pending FrameID
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(src FrameSource, fn func(now time.Time)) *Scheduler {
	return &Scheduler{src: src, fn: fn}
}

// Start begins the frame loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.gen++
	s.request()
}

// Stop ends the frame loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.gen++
	s.src.Cancel(s.pending)
	s.pending = 0
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// request must be called with s.mu held.
func (s *Scheduler) request() {
	gen := s.gen
	s.pending = s.src.Request(func(now time.Time) {
		s.fire(gen, now)
	})
}

func (s *Scheduler) fire(gen uint64, now time.Time) {
	s.mu.Lock()
	if !s.running || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.fn(now)

	s.mu.Lock()
	if s.running && gen == s.gen {
		s.request()
	}
	s.mu.Unlock()
}
