package types

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	// Model id to use. When set and different from the loaded model, it is loaded first.
	// example: qwen2-0.5b-instruct-q4_k_m
	Model string `json:"model,omitempty" example:"qwen2-0.5b-instruct-q4_k_m"`
	// Full prompt text, already formatted with the model's chat template.
	// example: <|im_start|>user\nWrite a haiku about the sea.<|im_end|>\n<|im_start|>assistant\n
	Prompt string `json:"prompt" example:"<|im_start|>user\nWrite a haiku about the sea.<|im_end|>\n<|im_start|>assistant\n"`
	// Maximum new tokens. 0 or omitted uses the server default.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Stream tokens as NDJSON lines.
	// example: true
	Stream bool `json:"stream,omitempty" example:"true"`
	// Extra stop sequences for this request.
	// example: ["\n\n"]
	Stop []string `json:"stop,omitempty"`
	// Optional caller-chosen id echoed on every event; generated when empty.
	// example: 7d0c4c1e-2b53-4a55-9a0e-1f0d2c1b9f6e
	RequestID string `json:"request_id,omitempty" example:"7d0c4c1e-2b53-4a55-9a0e-1f0d2c1b9f6e"`
}

// Stats describes a finished generation.
type Stats struct {
	// example: 42
	Tokens int `json:"tokens" example:"42"`
	// example: 17
	PromptTokens int `json:"prompt_tokens" example:"17"`
	// example: 1830
	ElapsedMS int64 `json:"elapsed_ms" example:"1830"`
	// Time to first token.
	// example: 210
	TTFTMS int64 `json:"ttft_ms" example:"210"`
	// example: 25.9
	TokensPerSecond float64 `json:"tokens_per_second" example:"25.9"`
	// One of eog, length, stop_sequence, canceled, decode_error.
	// example: eog
	FinishReason string `json:"finish_reason" example:"eog"`
	// Stop sequence that ended generation, if any.
	StopSequence string `json:"stop_sequence,omitempty"`
}

// TokenEvent is one streamed NDJSON line.
type TokenEvent struct {
	RequestID string `json:"request_id"`
	Token     string `json:"token"`
}

// DoneEvent is the final streamed NDJSON line.
type DoneEvent struct {
	RequestID string `json:"request_id"`
	Done      bool   `json:"done"`
	Stats     Stats  `json:"stats"`
	Error     string `json:"error,omitempty"`
}

// GenerateResponse is returned by POST /generate when stream is false.
type GenerateResponse struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
	Stats     Stats  `json:"stats"`
}

// LoadRequest is the body of POST /load.
type LoadRequest struct {
	// example: qwen2-0.5b-instruct-q4_k_m
	Model string `json:"model" example:"qwen2-0.5b-instruct-q4_k_m"`
}

// StopRequest is the body of POST /stop. An empty id stops whatever runs.
type StopRequest struct {
	RequestID string `json:"request_id,omitempty"`
}

// StopResponse reports whether a running generation was signalled.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Engine state: idle, prefill, decoding, completed, stopped, failed.
	// example: decoding
	State string `json:"state" example:"decoding"`
	// example: llama.cpp
	Backend string `json:"backend" example:"llama.cpp"`
	// Whether the native runtime is compiled in.
	BackendBuilt bool `json:"backend_built"`
	// Loaded model, if any.
	Model *Model `json:"model,omitempty"`
	// Id of the running generation, if any.
	CurrentRequestID string `json:"current_request_id,omitempty"`
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// example: 120
	GenerationsTotal uint64 `json:"generations_total" example:"120"`
	// Last error observed by the manager.
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Host resources; omitted when the probe is unsupported.
	System *SystemInfo `json:"system,omitempty"`
	// Running or most recent model download.
	Download *DownloadStatus `json:"download,omitempty"`
}

// DownloadRequest is the body of POST /downloads.
type DownloadRequest struct {
	// Id the model is stored under.
	// example: qwen2-0.5b-instruct-q4_k_m
	Model string `json:"model" example:"qwen2-0.5b-instruct-q4_k_m"`
	// example: https://huggingface.co/Qwen/Qwen2-0.5B-Instruct-GGUF/resolve/main/qwen2-0_5b-instruct-q4_k_m.gguf
	URL string `json:"url" example:"https://huggingface.co/Qwen/Qwen2-0.5B-Instruct-GGUF/resolve/main/qwen2-0_5b-instruct-q4_k_m.gguf"`
	// Expected file size in bytes; 0 trusts the server.
	// example: 397808192
	Size int64 `json:"size,omitempty" example:"397808192"`
}

// DownloadStatus describes the running or most recent download.
type DownloadStatus struct {
	Downloading bool `json:"downloading"`
	// example: qwen2-0.5b-instruct-q4_k_m
	Model string `json:"model,omitempty" example:"qwen2-0.5b-instruct-q4_k_m"`
	// example: 104857600
	DownloadedBytes int64 `json:"downloaded_bytes" example:"104857600"`
	// example: 397808192
	TotalBytes int64 `json:"total_bytes" example:"397808192"`
	// Completed share in [0,1]; -1 while the size is unknown.
	// example: 0.26
	Progress float64 `json:"progress" example:"0.26"`
	Canceled bool    `json:"canceled,omitempty"`
	// Failure of the most recent download, if any.
	Error string `json:"error,omitempty"`
}

// CancelDownloadResponse reports whether a running download was canceled.
type CancelDownloadResponse struct {
	Canceled bool `json:"canceled"`
}
