package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"edgegen/internal/registry"
	"edgegen/internal/session"
	"edgegen/pkg/types"
)

type Manager struct {
	sess  *session.Session
	store *registry.Store

	mu           sync.RWMutex
	state        State
	cur          *types.Model
	ctx          *session.Context
	err          string
	defaultModel string
	backendBuilt bool
	// id of the running generation
	currentReq string

	// Queue config
	maxQueueDepth int
	maxWait       time.Duration
	genCh         chan struct{} // size 1: single in-flight operation
	queueCh       chan struct{} // buffered: queue slots

	loads       atomic.Uint64
	generations atomic.Uint64
	startTime   time.Time

	// single background model download; kept after it ends for Status
	dlMu sync.Mutex
	dl   *download

	publisher EventPublisher
	log       zerolog.Logger
}

// New builds a Manager with default queue settings.
func New(sess *session.Session, store *registry.Store, defaultModel string) *Manager {
	return NewWithConfig(ManagerConfig{
		Session:      sess,
		Store:        store,
		DefaultModel: defaultModel,
	})
}

// Ready reports whether a model is loaded and a context is live.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady && m.ctx != nil
}

// ListModels returns the models in the store, marking the loaded one.
func (m *Manager) ListModels() []types.Model {
	models, err := m.store.List()
	if err != nil {
		m.log.Warn().Err(err).Str("dir", m.store.Dir).Msg("list models")
		return []types.Model{}
	}
	m.mu.RLock()
	loaded := ""
	if m.cur != nil {
		loaded = m.cur.ID
	}
	m.mu.RUnlock()
	for i := range models {
		models[i].Loaded = models[i].ID == loaded
	}
	return models
}

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{State: m.state, Err: m.err}
	if m.cur != nil {
		s.ModelID = m.cur.ID
	}
	return s
}

// Close cancels a running download and unloads the model.
func (m *Manager) Close() error {
	if m.CancelDownload() {
		<-m.downloadDone()
	}
	m.mu.Lock()
	m.cur, m.ctx = nil, nil
	m.state = StateEmpty
	m.mu.Unlock()
	return m.sess.Close()
}

func (m *Manager) publish(name, modelID string, fields map[string]any) {
	m.publisher.Publish(Event{Name: name, ModelID: modelID, Fields: fields})
}
