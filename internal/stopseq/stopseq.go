// Package stopseq detects stop markers in generated output.
package stopseq

import "bytes"

// Defaults are the chat-template markers and prompt-echo guards that end a
// reply across the common model families (Llama 3, ChatML, Phi, Gemma,
// Mistral/Llama 2).
var Defaults = []string{
	"Отвечай на русском",
	"<|eot_id|>",
	"<|start_header_id|>",
	"<|im_end|>",
	"<|im_start|>",
	"<|end|>",
	"<|user|>",
	"</s>",
	"[INST]",
	"<end_of_turn>",
	"<start_of_turn>",
}

// Set is an immutable list of stop patterns matched as byte substrings.
type Set struct {
	patterns [][]byte
	maxLen   int
}

// NewSet builds a Set. Empty patterns are ignored; nil or empty input
// yields a Set that never matches.
func NewSet(patterns []string) *Set {
	s := &Set{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		s.patterns = append(s.patterns, []byte(p))
		if len(p) > s.maxLen {
			s.maxLen = len(p)
		}
	}
	return s
}

// Len reports the number of patterns.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Match reports whether any pattern occurs anywhere in buf and returns the
// first one (in Set order) that does.
func (s *Set) Match(buf []byte) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, p := range s.patterns {
		if bytes.Contains(buf, p) {
			return string(p), true
		}
	}
	return "", false
}

// Detector scans a growing output buffer. Only the tail that could still
// contain a new match is rescanned on each Append.
type Detector struct {
	set     *Set
	buf     []byte
	scanned int
}

// NewDetector returns a Detector over set.
func NewDetector(set *Set) *Detector { return &Detector{set: set} }

// Append adds piece to the accumulated output and reports whether a stop
// pattern is now present. The match may span earlier pieces.
func (d *Detector) Append(piece []byte) (string, bool) {
	d.buf = append(d.buf, piece...)
	if d.set.Len() == 0 {
		return "", false
	}
	from := d.scanned - (d.set.maxLen - 1)
	if from < 0 {
		from = 0
	}
	d.scanned = len(d.buf)
	return d.set.Match(d.buf[from:])
}

// Bytes returns the accumulated output.
func (d *Detector) Bytes() []byte { return d.buf }

// Reset discards accumulated output.
func (d *Detector) Reset() {
	d.buf = d.buf[:0]
	d.scanned = 0
}
