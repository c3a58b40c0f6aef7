// Package backend defines the contract the generation engine consumes from a
// native inference runtime. The runtime owns weights, the KV memory and the
// raw logits; everything above it (sampling, stop detection, text assembly)
// lives in Go.
package backend

import "errors"

// Token is a vocabulary id.
type Token int32

// ContextParams configures a new inference context.
type ContextParams struct {
	// ContextSize is the number of positions in the KV memory.
	ContextSize int
	// BatchSize is the maximum number of tokens per Decode call.
	BatchSize int
	// Threads is used for both single-token and batch evaluation.
	Threads int
}

// Backend is a process-wide runtime. Init must be idempotent.
type Backend interface {
	Name() string
	Init() error
	LoadModel(path string) (Model, error)
}

// Model is a loaded set of weights plus its vocabulary.
type Model interface {
	// Tokenize writes token ids for text into buf and returns how many were
	// written. It fails when buf is too small.
	Tokenize(text string, buf []Token, addSpecial, parseSpecial bool) (int, error)
	// TokenToPiece writes the raw bytes of tok into buf. A negative return is
	// the required size negated; nothing is written in that case.
	TokenToPiece(tok Token, buf []byte) int
	IsEOG(tok Token) bool
	VocabSize() int
	NewContext(p ContextParams) (Context, error)
	Close() error
}

// Context is an evaluation state bound to one Model.
type Context interface {
	// Decode evaluates tokens at the current position and advances it.
	Decode(tokens []Token) error
	// Logits returns the vocabulary-sized score vector for the last decoded
	// position. The slice is only valid until the next Decode.
	Logits() []float32
	Pos() int
	// Reset clears the KV memory and rewinds the position to zero.
	Reset()
	Close() error
}

// ErrUnavailable is returned by backends compiled without their native runtime.
var ErrUnavailable = errors.New("inference backend not available in this build")
