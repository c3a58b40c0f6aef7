package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edgegen/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	Load(ctx context.Context, modelID string) error
	Unload(ctx context.Context) error
	DeleteModel(ctx context.Context, modelID string) error
	Generate(ctx context.Context, req types.GenerateRequest, w io.Writer, flush func()) error
	Stop(requestID string) bool
	StartDownload(req types.DownloadRequest) (types.DownloadStatus, error)
	CancelDownload() bool
	DownloadStatus() types.DownloadStatus
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: orDefault(corsAllowedOrigins, []string{"*"}),
			AllowedMethods: orDefault(corsAllowedMethods, []string{"GET", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders: orDefault(corsAllowedHeaders, []string{"Content-Type", "X-Log-Level"}),
			MaxAge:         300,
		}))
	}

	h := &handlers{svc: svc}
	r.Get("/models", h.listModels)
	r.Delete("/models/{id}", h.deleteModel)
	r.Get("/status", h.status)
	r.Post("/load", h.load)
	r.Post("/unload", h.unload)
	r.Post("/generate", h.generate)
	r.Post("/stop", h.stop)
	r.Post("/downloads", h.startDownload)
	r.Get("/downloads", h.downloadStatus)
	r.Delete("/downloads", h.cancelDownload)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no model loaded"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

type handlers struct {
	svc Service
}

// listModels godoc
// @Summary      List models
// @Description  Lists *.gguf files in the models directory and marks the loaded one.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: h.svc.ListModels()})
}

// deleteModel godoc
// @Summary      Delete a model file
// @Tags         models
// @Param        id   path  string  true  "Model id"
// @Success      204
// @Failure      404  {object}  types.ErrorResponse
// @Failure      409  {object}  types.ErrorResponse
// @Router       /models/{id} [delete]
func (h *handlers) deleteModel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteModel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// status godoc
// @Summary      Engine status
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// load godoc
// @Summary      Load a model
// @Description  Loads the model and creates its context, replacing the loaded one.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        body  body      types.LoadRequest  true  "Model to load"
// @Success      200   {object}  types.StatusResponse
// @Failure      404   {object}  types.ErrorResponse
// @Failure      429   {object}  types.ErrorResponse
// @Failure      503   {object}  types.ErrorResponse
// @Router       /load [post]
func (h *handlers) load(w http.ResponseWriter, r *http.Request) {
	var req types.LoadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if err := h.svc.Load(ctx, req.Model); err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// unload godoc
// @Summary      Unload the model
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Failure      429  {object}  types.ErrorResponse
// @Router       /unload [post]
func (h *handlers) unload(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unload(r.Context()); err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// stop godoc
// @Summary      Stop the running generation
// @Description  Ends the running generation after its current token. An empty id matches any.
// @Tags         generate
// @Accept       json
// @Produce      json
// @Param        body  body      types.StopRequest  false  "Request to stop"
// @Success      200   {object}  types.StopResponse
// @Router       /stop [post]
func (h *handlers) stop(w http.ResponseWriter, r *http.Request) {
	var req types.StopRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	writeJSON(w, http.StatusOK, types.StopResponse{Stopped: h.svc.Stop(req.RequestID)})
}

// startDownload godoc
// @Summary      Download a model
// @Description  Starts fetching a GGUF file into the models directory. Progress is reported by GET /downloads and /status.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        body  body      types.DownloadRequest  true  "Model to download"
// @Success      202   {object}  types.DownloadStatus
// @Failure      400   {object}  types.ErrorResponse
// @Failure      409   {object}  types.ErrorResponse
// @Router       /downloads [post]
func (h *handlers) startDownload(w http.ResponseWriter, r *http.Request) {
	var req types.DownloadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.StartDownload(req)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	if zlog != nil {
		zlog.Info().Str("model", st.Model).Str("url", req.URL).Msg("download accepted")
	}
	writeJSON(w, http.StatusAccepted, st)
}

// downloadStatus godoc
// @Summary      Download progress
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.DownloadStatus
// @Router       /downloads [get]
func (h *handlers) downloadStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.DownloadStatus())
}

// cancelDownload godoc
// @Summary      Cancel the running download
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.CancelDownloadResponse
// @Router       /downloads [delete]
func (h *handlers) cancelDownload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.CancelDownloadResponse{Canceled: h.svc.CancelDownload()})
}

// generate godoc
// @Summary      Generate text
// @Description  Runs one generation. With stream=true the body is NDJSON: one {"request_id","token"} line per piece, then a {"done":true,"stats":...} line.
// @Tags         generate
// @Accept       json
// @Produce      json
// @Produce      application/x-ndjson
// @Param        body  body      types.GenerateRequest  true  "Generation request"
// @Success      200   {object}  types.GenerateResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      404   {object}  types.ErrorResponse
// @Failure      409   {object}  types.ErrorResponse
// @Failure      429   {object}  types.ErrorResponse
// @Failure      503   {object}  types.ErrorResponse
// @Router       /generate [post]
func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Basic validation
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if req.MaxTokens < 0 {
		writeJSONError(w, http.StatusBadRequest, "max_tokens must not be negative")
		return
	}
	if req.RequestID == "" {
		req.RequestID = middleware.GetReqID(r.Context())
	}

	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	if req.Stream {
		w.Header().Set("Content-Type", "application/x-ndjson")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	start := time.Now()
	writer := io.Writer(w)
	lvl := requestLogLevel(r)
	if lvl >= LevelDebug {
		writer = io.MultiWriter(w, &loggingLineWriter{reqID: req.RequestID})
	}
	if lvl >= LevelInfo && zlog != nil {
		zlog.Info().Str("path", r.URL.Path).Str("model", req.Model).Str("request_id", req.RequestID).Bool("stream", req.Stream).Msg("generate start")
	}

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if generateTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, generateTimeout)
		defer tcancel()
	}
	err := h.svc.Generate(ctx, req, writer, flush)
	if err != nil {
		// If context was canceled (client disconnect or shutdown), just return.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusFor(err)
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeJSONError(w, status, err.Error())
		logEnd(r, lvl, req.RequestID, status, start, err)
		return
	}
	logEnd(r, lvl, req.RequestID, http.StatusOK, start, nil)
}

func logEnd(r *http.Request, lvl LogLevel, reqID string, status int, start time.Time, err error) {
	if zlog == nil || lvl < LevelInfo {
		return
	}
	ev := zlog.Info()
	if err != nil && status >= http.StatusInternalServerError {
		ev = zlog.Error()
	}
	ev.Str("path", r.URL.Path).Str("request_id", reqID).Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("generate end")
}

// decodeJSON enforces the content type and body limit, then decodes into v.
// It writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
