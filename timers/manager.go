package timers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type entry struct {
	timer *time.Timer
	seq   uint64
	due   time.Time
}

// Manager runs cancellable one-shot timers keyed by identifier, such as
// "mute:<guild>:<user>" or "ticket:<channel>".
type Manager struct {
	mu     sync.RWMutex
	active map[string]*entry
	seq    uint64
	logger *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		active: make(map[string]*entry),
		logger: logger,
	}
}

// Schedule runs fn after d. An existing timer under the same key is replaced.
func (m *Manager) Schedule(key string, d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.active[key]; ok {
		old.timer.Stop()
		m.logger.Debug("Replacing timer", zap.String("key", key))
	}

	m.seq++
	seq := m.seq
	e := &entry{seq: seq, due: time.Now().Add(d)}
	e.timer = time.AfterFunc(d, func() {
		// A replaced or cancelled timer that already fired must not run.
		m.mu.Lock()
		current, ok := m.active[key]
		if !ok || current.seq != seq {
			m.mu.Unlock()
			return
		}
		delete(m.active, key)
		m.mu.Unlock()

		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("Timer callback panicked", zap.String("key", key), zap.Any("panic", r))
			}
		}()
		fn()
	})
	m.active[key] = e
}

// Cancel stops the timer under key. It reports whether a pending timer was removed.
func (m *Manager) Cancel(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.active[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(m.active, key)
	return true
}

// Pending reports whether key has a timer that has not fired yet.
func (m *Manager) Pending(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[key]
	return ok
}

// Remaining returns the time left on the timer under key.
func (m *Manager) Remaining(key string) (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.active[key]
	if !ok {
		return 0, false
	}
	return time.Until(e.due), true
}

// Active returns the number of pending timers.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// StopAll cancels every pending timer.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.active {
		e.timer.Stop()
		delete(m.active, key)
	}
}
