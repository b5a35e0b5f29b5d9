package recorder

import (
	"sync"
	"time"

	"github.com/architect/interactive-content/internal/tracking/models"
)

const (
	// DefaultCapacity bounds the interaction history; oldest entries are
	// evicted first so a long-running session cannot grow without bound.
	DefaultCapacity = 100

	// DefaultScrollDebounce is the minimum spacing between recorded
	// scroll events. Scroll fires at high frequency and would otherwise
	// crowd everything else out of the history.
	DefaultScrollDebounce = 500 * time.Millisecond

	engagementHighThreshold = 50
	engagementLowThreshold  = 10
)

// Recorder captures host UI events into a bounded FIFO history and
// computes derived analytics over it on demand.
type Recorder struct {
	mu             sync.Mutex
	capacity       int
	scrollDebounce time.Duration
	history        []models.InteractionEvent
	lastScrollAt   time.Time
	now            func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithCapacity overrides the history capacity.
func WithCapacity(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithScrollDebounce overrides the minimum spacing between recorded
// scroll events.
func WithScrollDebounce(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.scrollDebounce = d
		}
	}
}

// WithNow injects the time source, for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// New creates a Recorder with the default capacity and scroll debounce.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		capacity:       DefaultCapacity,
		scrollDebounce: DefaultScrollDebounce,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an event to the history, stamping it with the current
// time if the caller left Timestamp zero. Scroll events inside the
// debounce window are dropped. Returns whether the event was recorded.
func (r *Recorder) Record(ev models.InteractionEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now()
	}

	if ev.Type == models.EventScroll {
		if !r.lastScrollAt.IsZero() && ev.Timestamp.Sub(r.lastScrollAt) < r.scrollDebounce {
			return false
		}
		r.lastScrollAt = ev.Timestamp
	}

	r.history = append(r.history, ev)
	if len(r.history) > r.capacity {
		r.history = r.history[len(r.history)-r.capacity:]
	}
	return true
}

// History returns a copy of the retained events in arrival order.
func (r *Recorder) History() []models.InteractionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.InteractionEvent, len(r.history))
	copy(out, r.history)
	return out
}

// Len returns the number of retained events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

// Analytics computes derived measures over the retained history.
func (r *Recorder) Analytics() models.InteractionAnalytics {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := len(r.history)
	a := models.InteractionAnalytics{
		TotalInteractions: total,
		EngagementLevel:   engagementLevel(total),
	}

	if total == 0 {
		return a
	}

	clicks := 0
	scrolls := 0
	for _, ev := range r.history {
		switch ev.Type {
		case models.EventClick:
			clicks++
		case models.EventScroll:
			scrolls++
		case models.EventSubmit:
			a.FormInteractionCount++
		}
	}
	a.ClickRatio = float64(clicks) / float64(total)
	a.ScrollFrequency = float64(scrolls) / float64(total)

	if total >= 2 {
		elapsed := r.history[total-1].Timestamp.Sub(r.history[0].Timestamp)
		a.AverageIntervalMs = float64(elapsed.Milliseconds()) / float64(total-1)
	}

	return a
}

func engagementLevel(total int) models.EngagementLevel {
	switch {
	case total > engagementHighThreshold:
		return models.EngagementHigh
	case total < engagementLowThreshold:
		return models.EngagementLow
	default:
		return models.EngagementMedium
	}
}
