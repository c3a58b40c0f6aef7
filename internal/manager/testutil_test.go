package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"edgegen/internal/backend"
	"edgegen/internal/registry"
	"edgegen/internal/session"
)

const (
	promptBase = 1000
	vocabSize  = promptBase + 256
	eogToken   = backend.Token(99)
)

// fakeBackend produces the pieces in script, one per generated token, then
// end of generation.
type fakeBackend struct {
	mu      sync.Mutex
	initErr error
	script  []string
	loaded  []string
}

func (b *fakeBackend) Name() string { return "fake" }
func (b *fakeBackend) Init() error  { return b.initErr }

func (b *fakeBackend) LoadModel(path string) (backend.Model, error) {
	b.mu.Lock()
	b.loaded = append(b.loaded, filepath.Base(path))
	b.mu.Unlock()
	return &fakeModel{script: b.script}, nil
}

type fakeModel struct{ script []string }

func (m *fakeModel) Tokenize(text string, buf []backend.Token, _, _ bool) (int, error) {
	if len(text) > len(buf) {
		return 0, errors.New("buffer too small")
	}
	for i := 0; i < len(text); i++ {
		buf[i] = backend.Token(promptBase + int(text[i]))
	}
	return len(text), nil
}

func (m *fakeModel) TokenToPiece(tok backend.Token, buf []byte) int {
	i := int(tok) - 1
	if i < 0 || i >= len(m.script) {
		return 0
	}
	return copy(buf, m.script[i])
}

func (m *fakeModel) IsEOG(tok backend.Token) bool { return tok == eogToken }
func (m *fakeModel) VocabSize() int               { return vocabSize }
func (m *fakeModel) Close() error                 { return nil }

func (m *fakeModel) NewContext(p backend.ContextParams) (backend.Context, error) {
	return &fakeContext{m: m}, nil
}

type fakeContext struct {
	m    *fakeModel
	pos  int
	step int
}

func (c *fakeContext) Decode(tokens []backend.Token) error {
	if len(tokens) == 1 && tokens[0] < promptBase {
		c.step++
	}
	c.pos += len(tokens)
	return nil
}

func (c *fakeContext) Logits() []float32 {
	l := make([]float32, vocabSize)
	next := eogToken
	if c.step < len(c.m.script) {
		next = backend.Token(c.step + 1)
	}
	l[next] = 100
	return l
}

func (c *fakeContext) Pos() int     { return c.pos }
func (c *fakeContext) Reset()       { c.pos, c.step = 0, 0 }
func (c *fakeContext) Close() error { return nil }

// createModelFile writes a minimal GGUF file into dir.
func createModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, append([]byte("GGUF"), make([]byte, 60)...), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	return p
}

// newTestManager returns a manager over a temp store holding alpha.gguf and
// beta-q4_k_m.gguf.
func newTestManager(t *testing.T, fb *fakeBackend, cfg ManagerConfig) (*Manager, *MemoryPublisher) {
	t.Helper()
	dir := t.TempDir()
	createModelFile(t, dir, "alpha.gguf")
	createModelFile(t, dir, "beta-q4_k_m.gguf")
	store, err := registry.NewStore(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	pub := NewMemoryPublisher(0)
	cfg.Session = session.New(fb, session.Config{StopSequences: []string{"STOP"}})
	cfg.Store = store
	cfg.Publisher = pub
	m := NewWithConfig(cfg)
	t.Cleanup(func() { _ = m.Close() })
	return m, pub
}

// errWriter writes once, then returns an error on subsequent writes.
type errWriter struct{ wrote int }

func (e *errWriter) Write(p []byte) (int, error) {
	if e.wrote == 0 {
		e.wrote += len(p)
		return len(p), nil
	}
	return 0, errors.New("write fail")
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
