package types

// Model is a model file discovered in the models directory.
type Model struct {
	// Stable identifier: the file name without extension.
	// example: qwen2-0.5b-instruct-q4_k_m
	ID string `json:"id" example:"qwen2-0.5b-instruct-q4_k_m"`
	// File name on disk.
	// example: qwen2-0.5b-instruct-q4_k_m.gguf
	Name string `json:"name" example:"qwen2-0.5b-instruct-q4_k_m.gguf"`
	// Absolute path to the model file.
	// example: /home/user/models/llm/qwen2-0.5b-instruct-q4_k_m.gguf
	Path string `json:"path" example:"/home/user/models/llm/qwen2-0.5b-instruct-q4_k_m.gguf"`
	// Quantization tag parsed from the file name, if any.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// File size in bytes.
	// example: 397807936
	SizeBytes int64 `json:"size_bytes" example:"397807936"`
	// Whether this model is the one currently loaded.
	Loaded bool `json:"loaded"`
}

// SystemInfo is a host resource snapshot.
type SystemInfo struct {
	// example: 8
	NumCPU int `json:"num_cpu" example:"8"`
	// Threads used for evaluation.
	// example: 6
	Threads int `json:"threads" example:"6"`
	// example: 8589934592
	TotalRAMBytes uint64 `json:"total_ram_bytes" example:"8589934592"`
	// example: 4294967296
	AvailRAMBytes uint64 `json:"avail_ram_bytes" example:"4294967296"`
	// Capacity of the filesystem holding the models directory.
	// example: 128000000000
	DiskTotalBytes uint64 `json:"disk_total_bytes" example:"128000000000"`
	// example: 64000000000
	DiskFreeBytes uint64 `json:"disk_free_bytes" example:"64000000000"`
}
