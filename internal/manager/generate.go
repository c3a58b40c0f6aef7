package manager

import (
	"context"
	"io"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"edgegen/internal/session"
	"edgegen/pkg/types"
)

// Generate runs one generation and writes the outcome to w. With
// req.Stream it writes one TokenEvent line per piece and a closing DoneEvent
// (NDJSON), calling flush after each line; otherwise it writes a single
// GenerateResponse. The requested model is loaded first when it differs
// from the loaded one.
//
// Errors raised before anything is written are returned untouched so the
// caller can map them to a status code.
func (m *Manager) Generate(ctx context.Context, req types.GenerateRequest, w io.Writer, flush func()) error {
	release, err := m.beginOp(ctx, "generate")
	if err != nil {
		return err
	}
	defer release()
	if err := m.ensureLocked(req.Model); err != nil {
		return err
	}

	rid := req.RequestID
	if rid == "" {
		rid = uuid.NewString()
	}
	m.mu.Lock()
	sc, modelID := m.ctx, m.cur.ID
	m.currentReq = rid
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.currentReq = ""
		m.mu.Unlock()
	}()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = m.sess.Config().MaxTokens
	}
	sreq := session.Request{Prompt: req.Prompt, MaxTokens: maxTokens, Stop: req.Stop}
	m.generations.Add(1)
	m.publish(EventGenerateStart, modelID, map[string]any{"request_id": rid, "max_tokens": maxTokens, "stream": req.Stream})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if !req.Stream {
		res, err := m.sess.Generate(ctx, sc, sreq)
		m.finish(modelID, rid, res, err)
		if err != nil {
			return err
		}
		return enc.Encode(types.GenerateResponse{RequestID: rid, Text: res.Text, Stats: statsOf(res)})
	}

	res, err := m.sess.GenerateStream(ctx, sc, sreq, func(text string) error {
		if err := enc.Encode(types.TokenEvent{RequestID: rid, Token: text}); err != nil {
			return err
		}
		if flush != nil {
			flush()
		}
		return nil
	})
	m.finish(modelID, rid, res, err)
	if err != nil {
		return err
	}
	if err := enc.Encode(types.DoneEvent{RequestID: rid, Done: true, Stats: statsOf(res)}); err != nil {
		return err
	}
	if flush != nil {
		flush()
	}
	return nil
}

// Stop asks the running generation to end after its current token. An
// empty requestID matches whatever is running. It reports whether a
// generation was signalled.
func (m *Manager) Stop(requestID string) bool {
	m.mu.RLock()
	cur := m.currentReq
	m.mu.RUnlock()
	if cur == "" || (requestID != "" && requestID != cur) {
		return false
	}
	m.sess.Stop()
	m.publish(EventStopRequested, "", map[string]any{"request_id": cur})
	m.log.Info().Str("request_id", cur).Msg("stop requested")
	return true
}

func (m *Manager) finish(modelID, rid string, res session.Result, err error) {
	if err != nil {
		m.mu.Lock()
		m.err = err.Error()
		m.mu.Unlock()
		m.publish(EventGenerateFinish, modelID, map[string]any{"request_id": rid, "error": err.Error()})
		return
	}
	generationsTotal.WithLabelValues(string(res.FinishReason)).Inc()
	tokensTotal.Add(float64(res.Tokens))
	generationDuration.Observe(res.Elapsed.Seconds())
	if res.Tokens > 0 {
		timeToFirstToken.Observe(res.TimeToFirst.Seconds())
	}
	m.publish(EventGenerateFinish, modelID, map[string]any{
		"request_id":    rid,
		"tokens":        res.Tokens,
		"finish_reason": string(res.FinishReason),
	})
}

func statsOf(res session.Result) types.Stats {
	return types.Stats{
		Tokens:          res.Tokens,
		PromptTokens:    res.PromptTokens,
		ElapsedMS:       res.Elapsed.Milliseconds(),
		TTFTMS:          res.TimeToFirst.Milliseconds(),
		TokensPerSecond: res.TokensPerSecond,
		FinishReason:    string(res.FinishReason),
		StopSequence:    res.StopSequence,
	}
}
