package session

import (
	"context"
	"fmt"
	"time"

	"edgegen/internal/backend"
	"edgegen/internal/stopseq"
	"edgegen/internal/textasm"
)

// FinishReason tells why the loop ended.
type FinishReason string

const (
	FinishEOG         FinishReason = "eog"
	FinishLength      FinishReason = "length"
	FinishStop        FinishReason = "stop_sequence"
	FinishCanceled    FinishReason = "canceled"
	FinishDecodeError FinishReason = "decode_error"
)

// Request is one generation call.
type Request struct {
	Prompt string
	// MaxTokens caps generated tokens. Zero or negative runs the prefill only.
	MaxTokens int
	// Stop adds patterns to the session stop list for this call.
	Stop []string
}

// Result summarizes a finished generation.
type Result struct {
	// Text is the assembled output in batch mode; empty when streaming.
	Text         string
	Tokens       int
	PromptTokens int
	// StopSequence is the pattern that ended the loop, if any.
	StopSequence    string
	FinishReason    FinishReason
	Elapsed         time.Duration
	TimeToFirst     time.Duration
	TokensPerSecond float64
}

// Sink receives each generated piece in order. Returning an error ends the
// generation and the error is returned to the caller.
type Sink func(text string) error

// Generate runs the loop in batch mode and returns the whole output.
// Raw bytes are collected across tokens and decoded once, so characters
// split between tokens survive.
func (s *Session) Generate(ctx context.Context, c *Context, req Request) (Result, error) {
	return s.run(ctx, c, req, nil)
}

// GenerateStream runs the loop and hands each piece to sink as soon as it is
// produced. Every piece is decoded on its own (see textasm).
func (s *Session) GenerateStream(ctx context.Context, c *Context, req Request, sink Sink) (Result, error) {
	if sink == nil {
		s.log.Error().Msg("generate stream: nil sink")
		return Result{}, ErrCallbackBinding
	}
	return s.run(ctx, c, req, sink)
}

func (s *Session) run(ctx context.Context, c *Context, req Request, sink Sink) (Result, error) {
	if !s.tryAcquire() {
		return Result{}, ErrBusy
	}
	defer s.release()
	if !s.valid(c) {
		s.log.Error().Msg("generate: context handle is nil or stale")
		return Result{}, ErrInvalidHandle
	}
	s.cancel.Reset()
	s.setState(StatePrefill)

	start := time.Now()
	model := c.model.m
	if !s.cfg.KeepContext {
		c.c.Reset()
	}
	c.sampler.Reset()

	tokens, err := s.tokenize(model, req.Prompt)
	if err != nil {
		s.setState(StateFailed)
		s.log.Error().Err(err).Int("prompt_bytes", len(req.Prompt)).Msg("tokenization failed")
		return Result{}, err
	}
	room := c.params.ContextSize - c.c.Pos() - len(tokens)
	if room < 0 {
		s.setState(StateFailed)
		err := fmt.Errorf("%w: prompt of %d tokens exceeds context window (%d free)", ErrTokenization, len(tokens), c.params.ContextSize-c.c.Pos())
		s.log.Error().Err(err).Msg("prompt too long")
		return Result{}, err
	}
	if err := s.prefill(c, tokens); err != nil {
		s.setState(StateFailed)
		s.log.Error().Err(err).Int("prompt_tokens", len(tokens)).Msg("prefill failed")
		return Result{}, err
	}

	res := Result{PromptTokens: len(tokens)}
	maxTokens := min(req.MaxTokens, room)
	s.setState(StateDecoding)
	s.log.Debug().Int("prompt_tokens", len(tokens)).Int("max_tokens", maxTokens).Bool("stream", sink != nil).Msg("generation start")

	stops := s.stopSet(req.Stop)
	det := stopseq.NewDetector(stops)
	pieces := newPieceBuffer(MaxPieceSize)
	var out []byte
	decodeStart := time.Now()
	var sinkErr error

	res.FinishReason = FinishLength
loop:
	for res.Tokens < maxTokens {
		if s.cancel.Requested() || ctx.Err() != nil {
			res.FinishReason = FinishCanceled
			break
		}
		tok, err := c.sampler.Sample(c.c.Logits())
		if err != nil {
			s.log.Warn().Err(err).Int("generated", res.Tokens).Msg("sampling failed, ending generation")
			res.FinishReason = FinishDecodeError
			break
		}
		if model.IsEOG(tok) {
			res.FinishReason = FinishEOG
			break
		}
		piece := pieces.fill(model, tok)
		if p, hit := det.Append(piece); hit {
			res.FinishReason = FinishStop
			res.StopSequence = p
			break
		}
		if res.Tokens == 0 {
			res.TimeToFirst = time.Since(start)
		}
		if sink != nil {
			if text := textasm.Decode(piece); text != "" {
				if err := sink(text); err != nil {
					sinkErr = err
					res.FinishReason = FinishCanceled
					break loop
				}
			}
		} else {
			out = append(out, piece...)
		}
		if err := c.c.Decode([]backend.Token{tok}); err != nil {
			derr := &DecodeError{Phase: PhaseGeneration, Pos: c.c.Pos(), Err: err}
			s.log.Warn().Err(derr).Int("generated", res.Tokens).Msg("decode failed, ending generation")
			res.FinishReason = FinishDecodeError
			break
		}
		res.Tokens++
		s.log.Debug().Int32("token", int32(tok)).Int("n", res.Tokens).Msg("token")
	}

	if sink == nil {
		res.Text = textasm.Decode(out)
	}
	res.Elapsed = time.Since(start)
	if secs := time.Since(decodeStart).Seconds(); secs > 0 {
		res.TokensPerSecond = float64(res.Tokens) / secs
	}
	switch res.FinishReason {
	case FinishStop, FinishCanceled, FinishDecodeError:
		s.setState(StateStopped)
	default:
		s.setState(StateCompleted)
	}
	s.log.Info().
		Int("tokens", res.Tokens).
		Int("prompt_tokens", res.PromptTokens).
		Int64("elapsed_ms", res.Elapsed.Milliseconds()).
		Float64("tokens_per_sec", res.TokensPerSecond).
		Str("finish_reason", string(res.FinishReason)).
		Msg("generation finished")
	if sinkErr != nil {
		return res, fmt.Errorf("sink: %w", sinkErr)
	}
	return res, nil
}

// tokenize sizes the buffer to the prompt length plus headroom and lets the
// backend add special tokens and parse special markup.
func (s *Session) tokenize(m backend.Model, prompt string) ([]backend.Token, error) {
	buf := make([]backend.Token, len(prompt)+TokenizeHeadroom)
	n, err := m.Tokenize(prompt, buf, true, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenization, err)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: prompt produced no tokens", ErrTokenization)
	}
	return buf[:n], nil
}

// prefill evaluates the prompt in chunks of at most BatchSize tokens.
func (s *Session) prefill(c *Context, tokens []backend.Token) error {
	batch := c.params.BatchSize
	if batch <= 0 {
		batch = len(tokens)
	}
	for i := 0; i < len(tokens); i += batch {
		end := min(i+batch, len(tokens))
		if err := c.c.Decode(tokens[i:end]); err != nil {
			return &DecodeError{Phase: PhasePrefill, Pos: c.c.Pos(), Err: err}
		}
	}
	return nil
}

func (s *Session) stopSet(extra []string) *stopseq.Set {
	if len(extra) == 0 {
		return stopseq.NewSet(s.cfg.StopSequences)
	}
	all := make([]string, 0, len(s.cfg.StopSequences)+len(extra))
	all = append(all, s.cfg.StopSequences...)
	all = append(all, extra...)
	return stopseq.NewSet(all)
}
