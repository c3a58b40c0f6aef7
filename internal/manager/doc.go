// Package manager coordinates the generation engine for the service layers.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: lifecycle state and the loaded-model view.
//   - errors.go: error types and helpers (IsTooBusy, IsModelNotFound, ...).
//   - admission.go: FIFO queueing in front of the single generation slot.
//   - ensure.go: Load/EnsureModel, resolving ids through the model store.
//   - unload.go: Unload and DeleteModel.
//   - generate.go: Generate in batch or NDJSON streaming form, and Stop.
//   - status_report.go: Status reporting.
//   - sanity.go: backend availability checks.
//   - metrics.go: Prometheus collectors for loads and generations.
//
// The engine accepts one operation at a time and rejects overlap with
// session.ErrBusy. Every Manager method that touches the engine first goes
// through admission, so HTTP callers wait in line (up to MaxWait) instead
// of failing. Stop is the exception: it never queues.
package manager
