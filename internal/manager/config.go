package manager

import (
	"time"

	"github.com/rs/zerolog"

	"edgegen/internal/registry"
	"edgegen/internal/session"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Session      *session.Session
	Store        *registry.Store
	DefaultModel string
	// MaxQueueDepth bounds callers waiting for the engine, including the one running.
	MaxQueueDepth int
	MaxWait       time.Duration
	// BackendBuilt reports whether the native runtime is compiled in.
	BackendBuilt bool
	Publisher    EventPublisher
	Logger       *zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		sess:         cfg.Session,
		store:        cfg.Store,
		defaultModel: cfg.DefaultModel,
		backendBuilt: cfg.BackendBuilt,
		state:        StateEmpty,
		publisher:    cfg.Publisher,
		log:          zerolog.Nop(),
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	}
	m.genCh = make(chan struct{}, 1)
	m.queueCh = make(chan struct{}, m.maxQueueDepth)
	m.startTime = time.Now()
	return m
}
