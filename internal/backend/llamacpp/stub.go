//go:build !llama

package llamacpp

// Default builds stay cgo-free. The real runtime lives in llama.go and is
// compiled with -tags=llama.

import "edgegen/internal/backend"

// Built reports whether this binary links the native runtime.
const Built = false

type stubBackend struct{}

// New returns a backend that refuses every operation with
// backend.ErrUnavailable.
func New() backend.Backend { return stubBackend{} }

func (stubBackend) Name() string { return "llama.cpp (not built)" }

func (stubBackend) Init() error { return backend.ErrUnavailable }

func (stubBackend) LoadModel(string) (backend.Model, error) { return nil, backend.ErrUnavailable }
