package watch

import (
	"context"
	"sync"
	"time"

	derrors "github.com/torn-open/docsmith/internal/errors"
	"github.com/torn-open/docsmith/internal/events"
)

// DebouncerConfig tunes build request coalescing.
type DebouncerConfig struct {
	// QuietWindow is how long activity must pause before a build fires.
	QuietWindow time.Duration

	// MaxDelay caps how long a burst can postpone a build.
	MaxDelay time.Duration

	// CheckBuildRunning reports whether a build is currently running. While
	// true, the debouncer schedules exactly one follow-up instead of
	// emitting BuildNow.
	CheckBuildRunning func() bool

	// PollInterval is how often to re-check for build completion once a
	// follow-up is queued.
	PollInterval time.Duration
}

// Debouncer coalesces bursts of BuildRequested events into single BuildNow
// emissions: quiet window debounce, a max delay so a steady stream of edits
// cannot postpone forever, and one queued follow-up when a build is already
// running.
type Debouncer struct {
	bus *events.Bus
	cfg DebouncerConfig

	mu        sync.Mutex
	readyOnce sync.Once
	ready     chan struct{}

	pending         bool
	pendingAfterRun bool
	lastReason      string
	requestCount    int
}

// NewDebouncer validates the configuration and creates a debouncer.
func NewDebouncer(bus *events.Bus, cfg DebouncerConfig) (*Debouncer, error) {
	if bus == nil {
		return nil, derrors.ValidationError("bus is required")
	}
	if cfg.QuietWindow <= 0 {
		return nil, derrors.ValidationError("quiet window must be > 0")
	}
	if cfg.MaxDelay <= 0 {
		return nil, derrors.ValidationError("max delay must be > 0")
	}
	if cfg.CheckBuildRunning == nil {
		cfg.CheckBuildRunning = func() bool { return false }
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	return &Debouncer{bus: bus, cfg: cfg, ready: make(chan struct{})}, nil
}

// Ready is closed once Run has subscribed; tests use it for deterministic
// startup sequencing.
func (d *Debouncer) Ready() <-chan struct{} { return d.ready }

// Run processes build requests until the context is canceled.
func (d *Debouncer) Run(ctx context.Context) error {
	reqCh, unsubscribe := events.Subscribe[events.BuildRequested](d.bus, 64)
	defer unsubscribe()

	d.readyOnce.Do(func() { close(d.ready) })

	newStoppedTimer := func() *time.Timer {
		t := time.NewTimer(time.Hour)
		if !t.Stop() {
			<-t.C
		}
		return t
	}
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()
	pollTimer := newStoppedTimer()

	var quietC, maxC, pollC <-chan time.Time

	resetTimer := func(t *time.Timer, after time.Duration) {
		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
		t.Reset(after)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case req, ok := <-reqCh:
			if !ok {
				return nil
			}
			first := d.onRequest(req)
			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C
			if first {
				resetTimer(maxTimer, d.cfg.MaxDelay)
				maxC = maxTimer.C
			}

		case <-quietC:
			if d.tryEmit(ctx) {
				quietC, maxC = nil, nil
			}

		case <-maxC:
			if d.tryEmit(ctx) {
				quietC, maxC = nil, nil
			}

		case <-pollC:
			if d.tryEmitAfterRun(ctx) {
				pollC, quietC, maxC = nil, nil, nil
				continue
			}
			resetTimer(pollTimer, d.cfg.PollInterval)
			pollC = pollTimer.C
		}

		if d.followUpQueued() && pollC == nil {
			resetTimer(pollTimer, d.cfg.PollInterval)
			pollC = pollTimer.C
		}
	}
}

// onRequest records a request and reports whether it started a new burst.
func (d *Debouncer) onRequest(req events.BuildRequested) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	first := !d.pending
	if first {
		d.pending = true
		d.requestCount = 0
	}
	d.lastReason = req.Reason
	d.requestCount++
	return first
}

func (d *Debouncer) followUpQueued() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pendingAfterRun
}

// tryEmit publishes BuildNow unless a build is running, in which case it
// queues a follow-up. Returns true when the pending burst is resolved.
func (d *Debouncer) tryEmit(ctx context.Context) bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return true
	}
	if d.cfg.CheckBuildRunning() {
		d.pendingAfterRun = true
		d.mu.Unlock()
		return false
	}
	reason := d.lastReason
	count := d.requestCount
	d.pending = false
	d.pendingAfterRun = false
	d.mu.Unlock()

	_ = d.bus.Publish(ctx, events.BuildNow{Reason: reason, Requests: count, At: time.Now()})
	return true
}

// tryEmitAfterRun emits the single queued follow-up once the running build
// completes.
func (d *Debouncer) tryEmitAfterRun(ctx context.Context) bool {
	d.mu.Lock()
	if !d.pendingAfterRun {
		d.mu.Unlock()
		return true
	}
	d.mu.Unlock()

	if d.cfg.CheckBuildRunning() {
		return false
	}

	d.mu.Lock()
	reason := d.lastReason
	count := d.requestCount
	d.pending = false
	d.pendingAfterRun = false
	d.mu.Unlock()

	_ = d.bus.Publish(ctx, events.BuildNow{Reason: reason, Requests: count, At: time.Now()})
	return true
}
