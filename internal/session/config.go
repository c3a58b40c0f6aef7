package session

import (
	"runtime"

	"edgegen/internal/sampler"
	"edgegen/internal/stopseq"
)

// Defaults applied when the corresponding Config fields are unset.
const (
	DefaultContextSize   = 2048
	DefaultBatchSize     = 512
	DefaultReservedCores = 2
	DefaultMaxTokens     = 400

	// TokenizeHeadroom is added to the prompt byte length when sizing the
	// token buffer.
	TokenizeHeadroom = 256
	// MaxPieceSize bounds the bytes kept per token; longer pieces are truncated.
	MaxPieceSize = 256
)

// Config holds the engine tunables.
type Config struct {
	ContextSize   int `json:"context_size" yaml:"context_size" toml:"context_size"`
	BatchSize     int `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	Threads       int `json:"threads" yaml:"threads" toml:"threads"`
	ReservedCores int `json:"reserved_cores" yaml:"reserved_cores" toml:"reserved_cores"`
	// MaxTokens is the generation budget used by callers that do not pass one.
	MaxTokens     int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	StopSequences []string `json:"stop_sequences" yaml:"stop_sequences" toml:"stop_sequences"`
	// KeepContext skips clearing the KV memory between generations, so each
	// prompt continues from where the previous one ended. It is off by
	// default: every call starts from position zero with an empty cache.
	// Turning it on restores the older behaviour of advancing the position
	// across calls, which eventually overflows ContextSize on long chats.
	KeepContext bool           `json:"keep_context" yaml:"keep_context" toml:"keep_context"`
	Sampler     sampler.Config `json:"sampler" yaml:"sampler" toml:"sampler"`
}

// DefaultConfig returns a fully populated Config.
func DefaultConfig() Config {
	return Config{
		ContextSize:   DefaultContextSize,
		BatchSize:     DefaultBatchSize,
		ReservedCores: DefaultReservedCores,
		MaxTokens:     DefaultMaxTokens,
		StopSequences: append([]string(nil), stopseq.Defaults...),
		Sampler:       sampler.DefaultConfig(),
	}
}

// WithDefaults fills unset fields from DefaultConfig. Sampler fields are
// taken as a unit: a zero sampler section means "use the defaults".
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ContextSize <= 0 {
		c.ContextSize = d.ContextSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.ReservedCores <= 0 {
		c.ReservedCores = d.ReservedCores
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.StopSequences == nil {
		c.StopSequences = d.StopSequences
	}
	if c.Sampler == (sampler.Config{}) {
		c.Sampler = d.Sampler
	}
	return c
}

// ThreadCount resolves Threads, falling back to all cores but ReservedCores.
func (c Config) ThreadCount() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return max(1, runtime.NumCPU()-c.ReservedCores)
}
