package lifecycle

import (
	"context"
	"sync"

	"github.com/Anandhalagan/LIMS/pkg/logger"
)

// Stoppable is the capability any component owning a background task must
// implement. Components register themselves at construction time; shutdown
// walks the registry instead of probing objects for thread-like attributes.
type Stoppable interface {
	// Name identifies the component in shutdown logs.
	Name() string
	// Stop blocks until the component's background work has ended or the
	// context is done.
	Stop(ctx context.Context) error
}

// Manager tracks Stoppable components and stops them in reverse
// registration order on shutdown.
type Manager struct {
	mu         sync.Mutex
	components []Stoppable
	logger     *logger.Logger
}

// NewManager creates a lifecycle manager
func NewManager(log *logger.Logger) *Manager {
	return &Manager{logger: log}
}

// Register adds a component to the shutdown list
func (m *Manager) Register(s Stoppable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, s)
	m.logger.WithComponent(s.Name()).Debug("Registered stoppable component")
}

// StopAll stops every registered component, last registered first. It keeps
// going past individual failures so one stuck component cannot block the
// rest of shutdown; the first error is returned.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	components := make([]Stoppable, len(m.components))
	copy(components, m.components)
	m.mu.Unlock()

	var firstErr error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		m.logger.WithComponent(c.Name()).Info("Stopping component")
		if err := c.Stop(ctx); err != nil {
			m.logger.WithComponent(c.Name()).WithError(err).Error("Failed to stop component")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
