package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Anandhalagan/LIMS/pkg/logger"
)

type fakeStoppable struct {
	name    string
	err     error
	stopped *[]string
}

func (f *fakeStoppable) Name() string { return f.name }

func (f *fakeStoppable) Stop(ctx context.Context) error {
	*f.stopped = append(*f.stopped, f.name)
	return f.err
}

func TestStopAllReverseOrder(t *testing.T) {
	m := NewManager(logger.New("test", "error"))
	var stopped []string

	m.Register(&fakeStoppable{name: "first", stopped: &stopped})
	m.Register(&fakeStoppable{name: "second", stopped: &stopped})
	m.Register(&fakeStoppable{name: "third", stopped: &stopped})

	err := m.StopAll(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, stopped)
}

func TestStopAllContinuesPastFailure(t *testing.T) {
	m := NewManager(logger.New("test", "error"))
	var stopped []string
	bang := errors.New("stuck")

	m.Register(&fakeStoppable{name: "healthy", stopped: &stopped})
	m.Register(&fakeStoppable{name: "broken", err: bang, stopped: &stopped})

	err := m.StopAll(context.Background())
	assert.ErrorIs(t, err, bang)
	assert.Equal(t, []string{"broken", "healthy"}, stopped)
}
