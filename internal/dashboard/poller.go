package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/Anandhalagan/LIMS/pkg/logger"
)

// Counter is the query surface the poller refreshes from
type Counter interface {
	Counts(ctx context.Context) (*Snapshot, error)
}

// Subscriber receives each refreshed snapshot. The snapshot is a private
// copy; the poller never mutates it after delivery.
type Subscriber func(snap Snapshot)

// Poller refreshes dashboard counters on a fixed interval from a background
// goroutine. It holds the latest snapshot for pull-style readers and pushes
// copies to subscribers; it never reaches back into caller state.
type Poller struct {
	counter  Counter
	interval time.Duration
	logger   *logger.Logger

	mu          sync.RWMutex
	latest      Snapshot
	subscribers []Subscriber

	stop chan struct{}
	done chan struct{}
}

// NewPoller creates a dashboard poller
func NewPoller(counter Counter, interval time.Duration, log *logger.Logger) *Poller {
	return &Poller{
		counter:  counter,
		interval: interval,
		logger:   log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Subscribe registers a callback for refreshed snapshots. Callbacks run on
// the polling goroutine and must not block.
func (p *Poller) Subscribe(fn Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// Latest returns the most recent snapshot
func (p *Poller) Latest() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Start launches the polling goroutine. An immediate refresh runs before
// the first tick so the dashboard is populated at startup.
func (p *Poller) Start() {
	go p.run()
}

func (p *Poller) run() {
	defer close(p.done)

	p.refresh()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.refresh()
		case <-p.stop:
			return
		}
	}
}

func (p *Poller) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := p.counter.Counts(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("Dashboard refresh failed")
		return
	}

	p.mu.Lock()
	p.latest = *snap
	subscribers := make([]Subscriber, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.Unlock()

	for _, fn := range subscribers {
		fn(*snap)
	}
}

// Name implements lifecycle.Stoppable
func (p *Poller) Name() string { return "dashboard-poller" }

// Stop implements lifecycle.Stoppable, waiting for the polling goroutine to
// exit or the context to expire.
func (p *Poller) Stop(ctx context.Context) error {
	close(p.stop)
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
