package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anandhalagan/LIMS/pkg/logger"
)

type fakeCounter struct {
	mu    sync.Mutex
	calls int
	snap  Snapshot
}

func (f *fakeCounter) Counts(ctx context.Context) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	snap := f.snap
	return &snap, nil
}

func (f *fakeCounter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPollerDeliversSnapshots(t *testing.T) {
	counter := &fakeCounter{snap: Snapshot{OrdersToday: 4, PendingResults: 2}}
	poller := NewPoller(counter, 10*time.Millisecond, logger.New("dashboard-test", "error"))

	received := make(chan Snapshot, 16)
	poller.Subscribe(func(snap Snapshot) {
		select {
		case received <- snap:
		default:
		}
	})

	poller.Start()
	defer poller.Stop(context.Background())

	select {
	case snap := <-received:
		assert.Equal(t, 4, snap.OrdersToday)
		assert.Equal(t, 2, snap.PendingResults)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	assert.Eventually(t, func() bool {
		return poller.Latest().OrdersToday == 4
	}, time.Second, 5*time.Millisecond)
}

func TestPollerStopTerminatesGoroutine(t *testing.T) {
	counter := &fakeCounter{}
	poller := NewPoller(counter, 5*time.Millisecond, logger.New("dashboard-test", "error"))
	poller.Start()

	require.Eventually(t, func() bool {
		return counter.callCount() > 0
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, poller.Stop(ctx))

	calls := counter.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, counter.callCount())
}

func TestPollerName(t *testing.T) {
	poller := NewPoller(&fakeCounter{}, time.Second, logger.New("dashboard-test", "error"))
	assert.Equal(t, "dashboard-poller", poller.Name())
}
