package manager

// Event names published by the manager.
const (
	EventLoadStart      = "load_start"
	EventLoaded         = "loaded"
	EventLoadFailed     = "load_failed"
	EventUnloaded       = "unloaded"
	EventDeleted        = "deleted"
	EventGenerateStart  = "generate_start"
	EventGenerateFinish = "generate_finish"
	EventStopRequested  = "stop_requested"

	EventDownloadStart    = "download_start"
	EventDownloadProgress = "download_progress"
	EventDownloaded       = "downloaded"
	EventDownloadFailed   = "download_failed"
)

// Event represents a manager lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
