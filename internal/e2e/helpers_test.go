package e2e

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"edgegen/internal/backend"
	"edgegen/internal/httpapi"
	"edgegen/internal/manager"
	"edgegen/internal/registry"
	"edgegen/internal/session"
)

const (
	promptBase = 1000
	vocabSize  = promptBase + 256
	eogToken   = backend.Token(99)
)

// scriptBackend generates the pieces of script in order, then end of
// generation. While gate is non-nil, every generation decode waits for it
// to close.
type scriptBackend struct {
	script []string

	mu   sync.Mutex
	gate chan struct{}
}

func (b *scriptBackend) Name() string { return "script" }
func (b *scriptBackend) Init() error  { return nil }

func (b *scriptBackend) LoadModel(string) (backend.Model, error) { return &scriptModel{b: b}, nil }

func (b *scriptBackend) hold() chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
	return b.gate
}

func (b *scriptBackend) wait() {
	b.mu.Lock()
	g := b.gate
	b.mu.Unlock()
	if g != nil {
		<-g
	}
}

type scriptModel struct{ b *scriptBackend }

func (m *scriptModel) Tokenize(text string, buf []backend.Token, _, _ bool) (int, error) {
	if len(text) > len(buf) {
		return 0, errors.New("buffer too small")
	}
	for i := 0; i < len(text); i++ {
		buf[i] = backend.Token(promptBase + int(text[i]))
	}
	return len(text), nil
}

func (m *scriptModel) TokenToPiece(tok backend.Token, buf []byte) int {
	i := int(tok) - 1
	if i < 0 || i >= len(m.b.script) {
		return 0
	}
	return copy(buf, m.b.script[i])
}

func (m *scriptModel) IsEOG(tok backend.Token) bool { return tok == eogToken }
func (m *scriptModel) VocabSize() int               { return vocabSize }
func (m *scriptModel) Close() error                 { return nil }

func (m *scriptModel) NewContext(backend.ContextParams) (backend.Context, error) {
	return &scriptContext{b: m.b}, nil
}

type scriptContext struct {
	b    *scriptBackend
	pos  int
	step int
}

func (c *scriptContext) Decode(tokens []backend.Token) error {
	if len(tokens) == 1 && tokens[0] < promptBase {
		c.b.wait()
		c.step++
	}
	c.pos += len(tokens)
	return nil
}

func (c *scriptContext) Logits() []float32 {
	l := make([]float32, vocabSize)
	next := eogToken
	if c.step < len(c.b.script) {
		next = backend.Token(c.step + 1)
	}
	l[next] = 100
	return l
}

func (c *scriptContext) Pos() int     { return c.pos }
func (c *scriptContext) Reset()       { c.pos, c.step = 0, 0 }
func (c *scriptContext) Close() error { return nil }

// createTempModelsDir creates a directory holding minimal GGUF files.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, append([]byte("GGUF"), make([]byte, 28)...), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

// newServer runs the full stack (HTTP, manager, session) over sb.
func newServer(t *testing.T, dir string, sb *scriptBackend, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	store, err := registry.NewStore(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	cfg.Store = store
	cfg.Session = session.New(sb, session.Config{})
	mgr := manager.NewWithConfig(cfg)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Close()
	})
	return srv, mgr
}

func do(t *testing.T, method, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
