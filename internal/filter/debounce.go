// Package filter holds the list-filtering primitives shared by every list
// view: debounced search, multi-select, ranges, and pagination.
package filter

import (
	"strings"
	"sync"
	"time"
)

// DefaultSearchDelay is the quiet period before a search term is committed.
const DefaultSearchDelay = 300 * time.Millisecond

// Debouncer runs a function once calls have stopped for a fixed duration.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// NewDebouncer creates a new debouncer with the specified duration
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
	}
}

// Debounce executes the function after the debounce duration has elapsed
// without any new calls. Rapid successive calls reset the timer.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel cancels any pending debounced function call
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Immediate executes the function immediately and cancels any pending call
func (d *Debouncer) Immediate(fn func()) {
	d.Cancel()
	fn()
}

// Search is a debounced text input. Typed values are committed to onChange
// after the quiet period; Clear commits "" at once.
type Search struct {
	d        *Debouncer
	onChange func(string)

	mu        sync.Mutex
	value     string
	committed string
	seq       uint64
}

// NewSearch creates a search box. A non-positive delay uses DefaultSearchDelay.
func NewSearch(delay time.Duration, onChange func(string)) *Search {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &Search{d: NewDebouncer(delay), onChange: onChange}
}

// Set records a keystroke. Only the last value within the window is emitted.
func (s *Search) Set(v string) {
	s.mu.Lock()
	s.value = v
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.d.Debounce(func() { s.commit(seq) })
}

// Clear empties the box and emits "" immediately, dropping any pending value.
func (s *Search) Clear() {
	s.mu.Lock()
	s.value = ""
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.d.Immediate(func() { s.commit(seq) })
}

// Flush emits the pending value now, as on pressing enter.
func (s *Search) Flush() {
	s.mu.Lock()
	seq := s.seq
	s.mu.Unlock()

	s.d.Immediate(func() { s.commit(seq) })
}

// commit emits the current value if no newer keystroke has superseded seq.
func (s *Search) commit(seq uint64) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	v := s.value
	s.committed = v
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(v)
	}
}

// Value is what has been typed so far.
func (s *Search) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Committed is the last value emitted.
func (s *Search) Committed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// Term is the committed value trimmed for use as a query parameter.
func (s *Search) Term() string {
	return strings.TrimSpace(s.Committed())
}

// Stop cancels any pending emission.
func (s *Search) Stop() {
	s.d.Cancel()
}
