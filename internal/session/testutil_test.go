package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"edgegen/internal/backend"
)

// Prompt bytes tokenize to promptBase+b; scripted tokens live below it.
const (
	promptBase = 1000
	vocabSize  = promptBase + 256
	eogToken   = backend.Token(99)
)

// fakeBackend is an in-memory backend whose contexts "predict" a fixed
// token script: after each accepted generation token the logits peak at the
// next scripted token.
type fakeBackend struct {
	mu        sync.Mutex
	initCalls int
	initErr   error
	loadErr   error
	models    []*fakeModel

	// template for new models
	script       []backend.Token
	pieces       map[backend.Token][]byte
	tokenizeErr  error
	prefillErr   error
	failGenAt    int // generation decode index that fails; <0 disables
	logitsAbsent bool
}

func newFakeBackend(script []backend.Token, pieces map[backend.Token][]byte) *fakeBackend {
	return &fakeBackend{script: script, pieces: pieces, failGenAt: -1}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initCalls++
	return b.initErr
}

func (b *fakeBackend) LoadModel(path string) (backend.Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	m := &fakeModel{b: b, path: path}
	b.models = append(b.models, m)
	return m, nil
}

func (b *fakeBackend) resident() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, m := range b.models {
		if !m.closed {
			n++
		}
	}
	return n
}

type fakeModel struct {
	b      *fakeBackend
	path   string
	closed bool
	ctxs   []*fakeContext
}

func (m *fakeModel) Tokenize(text string, buf []backend.Token, addSpecial, parseSpecial bool) (int, error) {
	if m.b.tokenizeErr != nil {
		return 0, m.b.tokenizeErr
	}
	if !addSpecial || !parseSpecial {
		return 0, errors.New("special handling must be enabled")
	}
	if len(text) > len(buf) {
		return 0, errors.New("buffer too small")
	}
	for i := 0; i < len(text); i++ {
		buf[i] = backend.Token(promptBase + int(text[i]))
	}
	return len(text), nil
}

func (m *fakeModel) TokenToPiece(tok backend.Token, buf []byte) int {
	p, ok := m.b.pieces[tok]
	if !ok {
		return 0
	}
	if len(p) > len(buf) {
		return -len(p)
	}
	return copy(buf, p)
}

func (m *fakeModel) IsEOG(tok backend.Token) bool { return tok == eogToken }

func (m *fakeModel) VocabSize() int { return vocabSize }

func (m *fakeModel) NewContext(p backend.ContextParams) (backend.Context, error) {
	if m.closed {
		return nil, errors.New("model closed")
	}
	c := &fakeContext{m: m, params: p}
	m.ctxs = append(m.ctxs, c)
	return c, nil
}

func (m *fakeModel) Close() error {
	m.b.mu.Lock()
	m.closed = true
	m.b.mu.Unlock()
	return nil
}

type fakeContext struct {
	m      *fakeModel
	params backend.ContextParams
	closed bool

	pos          int
	step         int // accepted generation tokens since reset
	prefillCalls int
	genCalls     int
	resets       int
}

func (c *fakeContext) Decode(tokens []backend.Token) error {
	if c.closed {
		return errors.New("context closed")
	}
	if len(tokens) > c.params.BatchSize {
		return errors.New("batch larger than n_batch")
	}
	gen := len(tokens) == 1 && tokens[0] < promptBase
	if gen {
		if c.m.b.failGenAt >= 0 && c.genCalls == c.m.b.failGenAt {
			c.genCalls++
			return errors.New("kv full")
		}
		c.genCalls++
		c.step++
	} else {
		c.prefillCalls++
		if c.m.b.prefillErr != nil {
			return c.m.b.prefillErr
		}
	}
	c.pos += len(tokens)
	return nil
}

func (c *fakeContext) Logits() []float32 {
	if c.m.b.logitsAbsent {
		return nil
	}
	l := make([]float32, vocabSize)
	next := eogToken
	if c.step < len(c.m.b.script) {
		next = c.m.b.script[c.step]
	}
	l[next] = 100
	return l
}

func (c *fakeContext) Pos() int { return c.pos }

func (c *fakeContext) Reset() {
	c.pos = 0
	c.step = 0
	c.resets++
}

func (c *fakeContext) Close() error {
	c.closed = true
	return nil
}

// writeGGUF creates a minimal file that passes the magic check.
func writeGGUF(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, append([]byte("GGUF"), make([]byte, 28)...), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

// ready returns a session with a model loaded and a context created.
func ready(t *testing.T, fb *fakeBackend, cfg Config) (*Session, *Context) {
	t.Helper()
	s := New(fb, cfg)
	m, err := s.LoadModel(writeGGUF(t, t.TempDir(), "m.gguf"))
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	c, err := s.CreateContext(m)
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}
	return s, c
}

func fctx(c *Context) *fakeContext { return c.c.(*fakeContext) }

// collect returns a sink that appends pieces.
func collect(out *[]string) Sink {
	return func(s string) error {
		*out = append(*out, s)
		return nil
	}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

// abc is a script/pieces pair producing "A", "B", "C" then end of generation.
func abc() ([]backend.Token, map[backend.Token][]byte) {
	return []backend.Token{1, 2, 3}, map[backend.Token][]byte{1: []byte("A"), 2: []byte("B"), 3: []byte("C")}
}
