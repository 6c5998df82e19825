package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/catalog"
	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/observability/telemetry"
	"github.com/laundrotech/intel-gateway/internal/ports"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

const snapshotKeyPrefix = "session:"

type entry struct {
	ctrl    *Controller
	touched time.Time
}

// Manager owns the live session controllers, evicts idle ones, and writes
// JSON snapshots to the cache after every transition so the dashboard can
// read session state without holding a controller reference.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	catalog *catalog.Catalog
	intel   ports.IntelClient
	cache   ports.Cache
	ttl     time.Duration
	log     *zap.Logger
	stopCh  chan struct{}
}

// NewManager creates a manager with a background idle sweep.
func NewManager(cat *catalog.Catalog, intel ports.IntelClient, cache ports.Cache, ttl time.Duration, log *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	m := &Manager{
		sessions: make(map[string]*entry),
		catalog:  cat,
		intel:    intel,
		cache:    cache,
		ttl:      ttl,
		log:      log,
		stopCh:   make(chan struct{}),
	}

	go m.sweepLoop(ttl / 2)
	return m
}

// Create registers a fresh controller for a user and returns it.
func (m *Manager) Create(userID string) *Controller {
	ctrl := NewController(uuid.New().String(), userID, m.catalog, m.intel, m.log)

	m.mu.Lock()
	m.sessions[ctrl.Snapshot().ID] = &entry{ctrl: ctrl, touched: time.Now()}
	m.mu.Unlock()

	telemetry.ActiveSessions.Inc()
	return ctrl
}

// Get returns the controller for a session id, refreshing its idle timer.
func (m *Manager) Get(sessionID string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	e.touched = time.Now()
	return e.ctrl, nil
}

// Remove drops a controller and its cached snapshot.
func (m *Manager) Remove(ctx context.Context, sessionID string) {
	m.mu.Lock()
	if _, ok := m.sessions[sessionID]; ok {
		delete(m.sessions, sessionID)
		telemetry.ActiveSessions.Dec()
	}
	m.mu.Unlock()

	if err := m.cache.Delete(ctx, snapshotKeyPrefix+sessionID); err != nil {
		m.log.Debug("Failed to delete session snapshot", zap.Error(err))
	}
}

// SaveSnapshot writes the session state to the cache with the manager TTL.
// Best effort: a cache outage must never fail a flow operation.
func (m *Manager) SaveSnapshot(ctx context.Context, sess domain.AnalysisSession) {
	data, err := json.Marshal(sess)
	if err != nil {
		m.log.Error("Failed to marshal session snapshot", zap.Error(err))
		return
	}
	if err := m.cache.Set(ctx, snapshotKeyPrefix+sess.ID, data, m.ttl); err != nil {
		m.log.Warn("Failed to cache session snapshot",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}
}

// Close stops the sweep loop.
func (m *Manager) Close() {
	close(m.stopCh)
}

func (m *Manager) sweepLoop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.ttl)
	expired := 0
	for id, e := range m.sessions {
		if e.touched.Before(cutoff) {
			delete(m.sessions, id)
			expired++
		}
	}

	if expired > 0 {
		telemetry.ActiveSessions.Sub(float64(expired))
		m.log.Debug("Session sweep completed", zap.Int("expired_sessions", expired))
	}
}
