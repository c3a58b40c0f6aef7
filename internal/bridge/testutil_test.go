package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"edgegen/internal/backend"
	"edgegen/internal/session"
)

const (
	promptBase = 1000
	vocabSize  = promptBase + 256
	eogToken   = backend.Token(99)
)

// scriptBackend emits pieces[0], pieces[1], ... as successive generated
// tokens (ids 1..n) and then end of generation.
type scriptBackend struct {
	pieces     [][]byte
	sampled    int // highest token id whose logits were produced
	genDecodes int
	preDecodes int
}

func (b *scriptBackend) Name() string { return "script" }
func (b *scriptBackend) Init() error  { return nil }

func (b *scriptBackend) LoadModel(string) (backend.Model, error) { return &scriptModel{b: b}, nil }

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
	if i < 0 || i >= len(m.b.pieces) {
		return 0
	}
	if len(m.b.pieces[i]) > len(buf) {
		return -len(m.b.pieces[i])
	}
	return copy(buf, m.b.pieces[i])
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
		c.b.genDecodes++
		c.step++
	} else {
		c.b.preDecodes++
	}
	c.pos += len(tokens)
	return nil
}

func (c *scriptContext) Logits() []float32 {
	l := make([]float32, vocabSize)
	next := eogToken
	if c.step < len(c.b.pieces) {
		next = backend.Token(c.step + 1)
		c.b.sampled = max(c.b.sampled, c.step+1)
	}
	l[next] = 100
	return l
}

func (c *scriptContext) Pos() int     { return c.pos }
func (c *scriptContext) Reset()       { c.pos, c.step = 0, 0 }
func (c *scriptContext) Close() error { return nil }

func modelFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "m.gguf")
	if err := os.WriteFile(p, []byte("GGUF\x03\x00\x00\x00"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

// loaded returns a bridge with a model and context ready.
func loaded(t *testing.T, pieces ...string) (*Bridge, *scriptBackend, int64) {
	t.Helper()
	sb := &scriptBackend{}
	for _, p := range pieces {
		sb.pieces = append(sb.pieces, []byte(p))
	}
	b := New(session.New(sb, session.Config{StopSequences: []string{"STOP"}}))
	if !b.InitBackend() {
		t.Fatalf("InitBackend failed")
	}
	mh := b.LoadModel(modelFile(t))
	if mh == 0 {
		t.Fatalf("LoadModel returned 0")
	}
	ch := b.CreateContext(mh)
	if ch == 0 {
		t.Fatalf("CreateContext returned 0")
	}
	t.Cleanup(b.Unload)
	return b, sb, mh
}
