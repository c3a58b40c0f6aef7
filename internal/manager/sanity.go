package manager

// SanityReport describes whether the native runtime can be used.
type SanityReport struct {
	Backend      string `json:"backend"`
	BackendBuilt bool   `json:"backend_built"`
	Initialized  bool   `json:"initialized"`
	Error        string `json:"error,omitempty"`
}

// SanityCheck initializes the backend if needed and reports the outcome.
// It is safe to call at any time; initialization happens at most once.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{Backend: m.sess.BackendName(), BackendBuilt: m.backendBuilt}
	if err := m.sess.Init(); err != nil {
		r.Error = err.Error()
		return r
	}
	r.Initialized = true
	return r
}
