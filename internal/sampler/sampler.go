// Package sampler picks the next token from a logits vector through an
// ordered chain of stages. The default chain is
//
//	penalties(last 32, repeat 1.1, freq 0, presence 0) -> top-k(32) -> temperature(0.5) -> dist(seed 42)
//
// Stages see the candidate list in turn; the final stage selects. Accepted
// tokens feed back into stages that keep history (penalties). Reset clears
// that history and re-seeds the random source, so equal inputs yield equal
// outputs across generations.
package sampler

import (
	"errors"
	"math"

	"edgegen/internal/backend"
)

// Config holds the tunables for the default chain.
type Config struct {
	RepeatLastN      int     `json:"repeat_last_n" yaml:"repeat_last_n" toml:"repeat_last_n"`
	RepeatPenalty    float32 `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty"`
	FrequencyPenalty float32 `json:"frequency_penalty" yaml:"frequency_penalty" toml:"frequency_penalty"`
	PresencePenalty  float32 `json:"presence_penalty" yaml:"presence_penalty" toml:"presence_penalty"`
	TopK             int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	Temperature      float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	Seed             int64   `json:"seed" yaml:"seed" toml:"seed"`
}

// Defaults for the chain.
const (
	DefaultRepeatLastN   = 32
	DefaultRepeatPenalty = 1.1
	DefaultTopK          = 32
	DefaultTemperature   = 0.5
	DefaultSeed          = 42
)

// DefaultConfig returns the standard chain parameters.
func DefaultConfig() Config {
	return Config{
		RepeatLastN:   DefaultRepeatLastN,
		RepeatPenalty: DefaultRepeatPenalty,
		TopK:          DefaultTopK,
		Temperature:   DefaultTemperature,
		Seed:          DefaultSeed,
	}
}

// ErrNoLogits is returned when the context has no scores to sample from.
var ErrNoLogits = errors.New("sampler: empty logits")

// Candidate is one vocabulary entry under consideration.
type Candidate struct {
	ID    backend.Token
	Logit float32
	P     float32
}

// Candidates is the working set passed through the chain. Selected is the
// index chosen by the final stage, or -1.
type Candidates struct {
	Items    []Candidate
	Selected int
}

// Stage is one step of the chain.
type Stage interface {
	Name() string
	Apply(c *Candidates)
	Accept(tok backend.Token)
	Reset()
}

// Pipeline is an ordered chain of stages. It is not safe for concurrent use.
type Pipeline struct {
	stages []Stage
	cands  Candidates
}

// New builds the default chain from cfg.
func New(cfg Config) *Pipeline {
	return NewChain(
		Penalties(cfg.RepeatLastN, cfg.RepeatPenalty, cfg.FrequencyPenalty, cfg.PresencePenalty),
		TopK(cfg.TopK),
		Temperature(cfg.Temperature),
		Dist(cfg.Seed),
	)
}

// NewChain builds a pipeline from explicit stages, applied in order.
func NewChain(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Stages returns the stage names in application order.
func (p *Pipeline) Stages() []string {
	out := make([]string, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.Name()
	}
	return out
}

// Sample runs the chain over logits, accepts the chosen token and returns it.
// logits is only read.
func (p *Pipeline) Sample(logits []float32) (backend.Token, error) {
	if len(logits) == 0 {
		return 0, ErrNoLogits
	}
	items := p.cands.Items[:0]
	if cap(items) < len(logits) {
		items = make([]Candidate, 0, len(logits))
	}
	for i, l := range logits {
		items = append(items, Candidate{ID: backend.Token(i), Logit: l})
	}
	p.cands.Items = items
	p.cands.Selected = -1
	for _, s := range p.stages {
		s.Apply(&p.cands)
	}
	if len(p.cands.Items) == 0 {
		return 0, ErrNoLogits
	}
	idx := p.cands.Selected
	if idx < 0 || idx >= len(p.cands.Items) {
		idx = argmax(p.cands.Items)
	}
	tok := p.cands.Items[idx].ID
	p.Accept(tok)
	return tok, nil
}

// Accept records tok in every stage that keeps history.
func (p *Pipeline) Accept(tok backend.Token) {
	for _, s := range p.stages {
		s.Accept(tok)
	}
}

// Reset discards history and re-seeds randomness.
func (p *Pipeline) Reset() {
	for _, s := range p.stages {
		s.Reset()
	}
}

func argmax(items []Candidate) int {
	best := 0
	for i := 1; i < len(items); i++ {
		if items[i].Logit > items[best].Logit {
			best = i
		}
	}
	return best
}

// softmax fills P over the current items.
func softmax(items []Candidate) {
	if len(items) == 0 {
		return
	}
	maxv := float32(math.Inf(-1))
	for _, c := range items {
		if c.Logit > maxv {
			maxv = c.Logit
		}
	}
	var sum float64
	for i := range items {
		e := math.Exp(float64(items[i].Logit - maxv))
		items[i].P = float32(e)
		sum += e
	}
	if sum == 0 {
		return
	}
	for i := range items {
		items[i].P = float32(float64(items[i].P) / sum)
	}
}
