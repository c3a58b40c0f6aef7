package sampler

import (
	"math"
	"math/rand"

	"edgegen/internal/backend"
)

type penaltyStage struct {
	lastN    int
	repeat   float32
	freq     float32
	presence float32

	history []backend.Token
	counts  map[backend.Token]int
}

// Penalties lowers the scores of tokens seen in the last lastN accepted
// tokens. repeat divides positive logits and multiplies negative ones; freq
// is subtracted once per occurrence; presence once per distinct token.
// lastN <= 0 disables the stage.
func Penalties(lastN int, repeat, freq, presence float32) Stage {
	return &penaltyStage{
		lastN:    lastN,
		repeat:   repeat,
		freq:     freq,
		presence: presence,
		counts:   make(map[backend.Token]int),
	}
}

func (s *penaltyStage) Name() string { return "penalties" }

func (s *penaltyStage) disabled() bool {
	return s.lastN <= 0 || (s.repeat == 1 && s.freq == 0 && s.presence == 0)
}

func (s *penaltyStage) Apply(c *Candidates) {
	if s.disabled() || len(s.counts) == 0 {
		return
	}
	for i := range c.Items {
		n, ok := s.counts[c.Items[i].ID]
		if !ok {
			continue
		}
		l := c.Items[i].Logit
		if s.repeat > 0 && s.repeat != 1 {
			if l <= 0 {
				l *= s.repeat
			} else {
				l /= s.repeat
			}
		}
		l -= float32(n)*s.freq + s.presence
		c.Items[i].Logit = l
	}
}

func (s *penaltyStage) Accept(tok backend.Token) {
	if s.lastN <= 0 {
		return
	}
	s.history = append(s.history, tok)
	s.counts[tok]++
	if len(s.history) > s.lastN {
		old := s.history[0]
		s.history = s.history[1:]
		if s.counts[old]--; s.counts[old] <= 0 {
			delete(s.counts, old)
		}
	}
}

func (s *penaltyStage) Reset() {
	s.history = s.history[:0]
	clear(s.counts)
}

type topKStage struct{ k int }

// TopK keeps the k highest-scoring candidates, sorted by descending logit.
// k <= 0 keeps everything.
func TopK(k int) Stage { return topKStage{k: k} }

func (s topKStage) Name() string { return "top_k" }

func (s topKStage) Apply(c *Candidates) {
	if s.k <= 0 || s.k >= len(c.Items) {
		return
	}
	top := make([]Candidate, 0, s.k)
	for _, cand := range c.Items {
		if len(top) == s.k && cand.Logit <= top[len(top)-1].Logit {
			continue
		}
		pos := len(top)
		for pos > 0 && top[pos-1].Logit < cand.Logit {
			pos--
		}
		if len(top) < s.k {
			top = append(top, Candidate{})
		}
		copy(top[pos+1:], top[pos:len(top)-1])
		top[pos] = cand
	}
	c.Items = append(c.Items[:0], top...)
}

func (topKStage) Accept(backend.Token) {}
func (topKStage) Reset()               {}

type tempStage struct{ t float32 }

// Temperature divides logits by t. t <= 0 collapses the candidates to the
// single best one.
func Temperature(t float32) Stage { return tempStage{t: t} }

func (s tempStage) Name() string { return "temperature" }

func (s tempStage) Apply(c *Candidates) {
	if len(c.Items) == 0 {
		return
	}
	if s.t <= 0 {
		best := argmax(c.Items)
		c.Items = append(c.Items[:0], c.Items[best])
		return
	}
	for i := range c.Items {
		c.Items[i].Logit /= s.t
	}
}

func (tempStage) Accept(backend.Token) {}
func (tempStage) Reset()               {}

type distStage struct {
	seed int64
	rng  *rand.Rand
}

// Dist normalizes the candidates and draws one using a seeded source.
func Dist(seed int64) Stage {
	return &distStage{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

func (s *distStage) Name() string { return "dist" }

func (s *distStage) Apply(c *Candidates) {
	if len(c.Items) == 0 {
		return
	}
	softmax(c.Items)
	r := s.rng.Float64()
	var cum float64
	for i, cand := range c.Items {
		if math.IsNaN(float64(cand.P)) {
			continue
		}
		cum += float64(cand.P)
		if r < cum {
			c.Selected = i
			return
		}
	}
	c.Selected = len(c.Items) - 1
}

func (s *distStage) Accept(backend.Token) {}

func (s *distStage) Reset() { s.rng = rand.New(rand.NewSource(s.seed)) }
