package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"edgegen/internal/manager"
	"edgegen/internal/session"
	"edgegen/pkg/types"
)

type mockService struct {
	models   []types.Model
	status   types.StatusResponse
	ready    bool
	genErr   error
	loadErr  error
	delErr   error
	loaded   string
	stopped  string
	lastReq  types.GenerateRequest
	blocking bool

	dlReq      types.DownloadRequest
	dlErr      error
	dlStatus   types.DownloadStatus
	dlCanceled bool
}

func (m *mockService) StartDownload(req types.DownloadRequest) (types.DownloadStatus, error) {
	m.dlReq = req
	if m.dlErr != nil {
		return types.DownloadStatus{}, m.dlErr
	}
	return types.DownloadStatus{Downloading: true, Model: req.Model, TotalBytes: req.Size, Progress: 0}, nil
}

func (m *mockService) CancelDownload() bool {
	m.dlCanceled = true
	return m.dlStatus.Downloading
}

func (m *mockService) DownloadStatus() types.DownloadStatus { return m.dlStatus }

func (m *mockService) ListModels() []types.Model    { return append([]types.Model(nil), m.models...) }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

func (m *mockService) Load(ctx context.Context, id string) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	m.loaded = id
	return nil
}

func (m *mockService) Unload(ctx context.Context) error {
	m.loaded = ""
	return nil
}

func (m *mockService) DeleteModel(ctx context.Context, id string) error { return m.delErr }

func (m *mockService) Stop(id string) bool {
	m.stopped = id
	return true
}

func (m *mockService) Generate(ctx context.Context, req types.GenerateRequest, w io.Writer, flush func()) error {
	m.lastReq = req
	if m.blocking {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.genErr != nil {
		return m.genErr
	}
	enc := json.NewEncoder(w)
	if !req.Stream {
		return enc.Encode(types.GenerateResponse{RequestID: req.RequestID, Text: "hi"})
	}
	_ = enc.Encode(types.TokenEvent{RequestID: req.RequestID, Token: "hi"})
	if flush != nil {
		flush()
	}
	_ = enc.Encode(types.DoneEvent{RequestID: req.RequestID, Done: true})
	if flush != nil {
		flush()
	}
	return nil
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.Model{{ID: "m1"}, {ID: "m2", Loaded: true}}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 2 || !body.Models[1].Loaded {
		t.Fatalf("models=%+v", body.Models)
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "decoding", MaxQueueDepth: 32}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.State != "decoding" || body.MaxQueueDepth != 32 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestReadyz(t *testing.T) {
	for _, tc := range []struct {
		ready bool
		code  int
	}{{true, http.StatusOK}, {false, http.StatusServiceUnavailable}} {
		r := NewMux(&mockService{ready: tc.ready})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if w.Code != tc.code {
			t.Fatalf("ready=%v status=%d", tc.ready, w.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestGenerateStreams(t *testing.T) {
	svc := &mockService{}
	w := postJSON(t, NewMux(svc), "/generate", `{"prompt":"hi","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content-type=%s", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 ndjson lines, got %d", len(lines))
	}
	// chi request id is used when the caller did not pick one
	if svc.lastReq.RequestID == "" {
		t.Fatalf("request id not assigned")
	}
}

func TestGenerateBatch(t *testing.T) {
	svc := &mockService{}
	w := postJSON(t, NewMux(svc), "/generate", `{"prompt":"hi","request_id":"abc","max_tokens":5,"stop":["\n"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp types.GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "abc" || resp.Text != "hi" {
		t.Fatalf("resp=%+v", resp)
	}
	if svc.lastReq.MaxTokens != 5 || len(svc.lastReq.Stop) != 1 {
		t.Fatalf("request not forwarded: %+v", svc.lastReq)
	}
}

func TestGenerateValidation(t *testing.T) {
	h := NewMux(&mockService{})
	cases := []struct {
		body string
		ct   string
		code int
	}{
		{"not-json", "application/json", http.StatusBadRequest},
		{`{"prompt":"   "}`, "application/json", http.StatusBadRequest},
		{`{"prompt":"x","max_tokens":-1}`, "application/json", http.StatusBadRequest},
		{`{"prompt":"hi"}`, "text/plain", http.StatusUnsupportedMediaType},
		{`{"prompt":"hi"}`, "Application/JSON; charset=utf-8", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(tc.body))
		req.Header.Set("Content-Type", tc.ct)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != tc.code {
			t.Fatalf("body=%q ct=%q: status=%d want %d", tc.body, tc.ct, w.Code, tc.code)
		}
	}
}

func TestGenerateBodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(64)
	defer SetMaxBodyBytes(0)
	body := `{"prompt":"` + strings.Repeat("a", 200) + `"}`
	w := postJSON(t, NewMux(&mockService{}), "/generate", body)
	if w.Code != http.StatusRequestEntityTooLarge && w.Code != http.StatusBadRequest {
		t.Fatalf("expected rejection of large body, got %d", w.Code)
	}
}

func TestGenerateErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{manager.ErrModelNotFound("x"), http.StatusNotFound},
		{session.ErrBusy, http.StatusTooManyRequests},
		{manager.ErrDependencyUnavailable("no runtime"), http.StatusServiceUnavailable},
		{session.ErrTokenization, http.StatusBadRequest},
		{session.ErrModelLoad, http.StatusUnprocessableEntity},
		{mockHTTPError{msg: "teapot", code: http.StatusTeapot}, http.StatusTeapot},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := postJSON(t, NewMux(&mockService{genErr: tc.err}), "/generate", `{"prompt":"hi"}`)
		if w.Code != tc.code {
			t.Fatalf("%v: status=%d want %d", tc.err, w.Code, tc.code)
		}
		var e types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Code != tc.code {
			t.Fatalf("error body=%q", w.Body.String())
		}
	}
}

func TestGenerateTimeout(t *testing.T) {
	SetGenerateTimeout(20 * time.Millisecond)
	defer SetGenerateTimeout(0)
	w := postJSON(t, NewMux(&mockService{blocking: true}), "/generate", `{"prompt":"x"}`)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 on timeout, got %d", w.Code)
	}
}

func TestGenerateShutdownCancels(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- postJSON(t, NewMux(&mockService{blocking: true}), "/generate", `{"prompt":"x"}`) }()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("handler did not return after shutdown")
	}
}

func TestLoadUnloadStop(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "idle"}}
	h := NewMux(svc)
	if w := postJSON(t, h, "/load", `{"model":"m1"}`); w.Code != http.StatusOK || svc.loaded != "m1" {
		t.Fatalf("load status=%d loaded=%q", w.Code, svc.loaded)
	}
	if w := postJSON(t, h, "/load", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("load without model: %d", w.Code)
	}
	svc.loadErr = manager.ErrModelNotFound("m9")
	if w := postJSON(t, h, "/load", `{"model":"m9"}`); w.Code != http.StatusNotFound {
		t.Fatalf("load missing: %d", w.Code)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/unload", nil))
	if w.Code != http.StatusOK || svc.loaded != "" {
		t.Fatalf("unload status=%d", w.Code)
	}
	w = postJSON(t, h, "/stop", `{"request_id":"r1"}`)
	var sr types.StopResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sr); err != nil || !sr.Stopped || svc.stopped != "r1" {
		t.Fatalf("stop body=%s stopped=%q", w.Body.String(), svc.stopped)
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stop", nil))
	if w.Code != http.StatusOK || svc.stopped != "" {
		t.Fatalf("bare stop status=%d stopped=%q", w.Code, svc.stopped)
	}
}

func TestDeleteModel(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/models/m1", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d", w.Code)
	}
	svc.delErr = manager.ErrModelNotFound("m1")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/models/m1", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	h := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS header Access-Control-Allow-Origin to be set")
	}
}

func TestGenerateLogsWithZerolog(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer func() { zlog = nil }()
	w := postJSON(t, NewMux(&mockService{}), "/generate?log=debug", `{"prompt":"hi","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	out := buf.String()
	for _, want := range []string{"generate start", "generate>", "generate end"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in log: %s", want, out)
		}
	}
}

func TestDownloadRoutes(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	w := postJSON(t, h, "/downloads", `{"model":"m1","url":"https://example.com/m1.gguf","size":42}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("start status=%d body=%s", w.Code, w.Body.String())
	}
	var st types.DownloadStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !st.Downloading || st.Model != "m1" || svc.dlReq.URL != "https://example.com/m1.gguf" || svc.dlReq.Size != 42 {
		t.Fatalf("status=%+v req=%+v", st, svc.dlReq)
	}

	svc.dlStatus = types.DownloadStatus{Downloading: true, Model: "m1", DownloadedBytes: 21, TotalBytes: 42, Progress: 0.5}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/downloads", nil))
	st = types.DownloadStatus{}
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil || st.Progress != 0.5 {
		t.Fatalf("progress: %+v err=%v", st, err)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/downloads", nil))
	var cr types.CancelDownloadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &cr); err != nil || !cr.Canceled || !svc.dlCanceled {
		t.Fatalf("cancel: %+v err=%v", cr, err)
	}
}

func TestDownloadErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{manager.ErrInvalidRequest("model and url are required"), http.StatusBadRequest},
		{manager.ErrModelExists("m1"), http.StatusConflict},
		{manager.ErrDownloadInProgress("m0"), http.StatusConflict},
	}
	for _, tc := range cases {
		w := postJSON(t, NewMux(&mockService{dlErr: tc.err}), "/downloads", `{"model":"m1","url":"http://x"}`)
		if w.Code != tc.code {
			t.Fatalf("%v: status=%d want %d", tc.err, w.Code, tc.code)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/downloads", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("missing content type: status=%d", w.Code)
	}
}
