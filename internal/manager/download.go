package manager

import (
	"context"
	"errors"
	"strings"

	"edgegen/internal/registry"
	"edgegen/pkg/types"
)

type download struct {
	status types.DownloadStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// StartDownload begins fetching a model into the store in the background.
// Only one download runs at a time; it does not take the engine slot, so
// generations keep running while it transfers.
func (m *Manager) StartDownload(req types.DownloadRequest) (types.DownloadStatus, error) {
	id := strings.TrimSpace(req.Model)
	url := strings.TrimSpace(req.URL)
	if id == "" || url == "" {
		return types.DownloadStatus{}, ErrInvalidRequest("model and url are required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return types.DownloadStatus{}, ErrInvalidRequest("url must be http or https")
	}
	if req.Size < 0 {
		return types.DownloadStatus{}, ErrInvalidRequest("size must not be negative")
	}
	if _, err := m.store.Path(id); err != nil {
		return types.DownloadStatus{}, ErrInvalidRequest(err.Error())
	}
	if m.store.Exists(id) {
		return types.DownloadStatus{}, ErrModelExists(id)
	}

	m.dlMu.Lock()
	if m.dl != nil && m.dl.status.Downloading {
		busy := m.dl.status.Model
		m.dlMu.Unlock()
		return types.DownloadStatus{}, ErrDownloadInProgress(busy)
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &download{
		status: types.DownloadStatus{
			Downloading: true,
			Model:       id,
			TotalBytes:  req.Size,
			Progress:    registry.Progress{Total: req.Size}.Fraction(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.dl = d
	st := d.status
	m.dlMu.Unlock()

	go m.runDownload(ctx, d, id, url, req.Size)
	return st, nil
}

func (m *Manager) runDownload(ctx context.Context, d *download, id, url string, size int64) {
	defer close(d.done)
	defer d.cancel()
	m.publish(EventDownloadStart, id, map[string]any{"url": url, "size": size})
	m.log.Info().Str("model", id).Str("url", url).Msg("download start")

	path, err := m.store.Download(ctx, id, url, size, func(p registry.Progress) {
		m.dlMu.Lock()
		d.status.DownloadedBytes = p.Downloaded
		d.status.TotalBytes = p.Total
		d.status.Progress = p.Fraction()
		m.dlMu.Unlock()
		m.publish(EventDownloadProgress, id, map[string]any{
			"downloaded": p.Downloaded,
			"total":      p.Total,
			"progress":   p.Fraction(),
		})
	})

	canceled := errors.Is(err, context.Canceled)
	m.dlMu.Lock()
	d.status.Downloading = false
	d.status.Canceled = canceled
	if err != nil {
		d.status.Error = err.Error()
	}
	m.dlMu.Unlock()

	switch {
	case err == nil:
		modelDownloads.WithLabelValues("completed").Inc()
		m.publish(EventDownloaded, id, map[string]any{"path": path})
		m.log.Info().Str("model", id).Str("path", path).Msg("download finished")
	case canceled:
		modelDownloads.WithLabelValues("canceled").Inc()
		m.publish(EventDownloadFailed, id, map[string]any{"canceled": true})
		m.log.Info().Str("model", id).Msg("download canceled")
	default:
		modelDownloads.WithLabelValues("failed").Inc()
		m.publish(EventDownloadFailed, id, map[string]any{"error": err.Error()})
		m.log.Warn().Err(err).Str("model", id).Msg("download failed")
	}
}

// CancelDownload aborts the running download. It reports false when none runs.
func (m *Manager) CancelDownload() bool {
	m.dlMu.Lock()
	defer m.dlMu.Unlock()
	if m.dl == nil || !m.dl.status.Downloading {
		return false
	}
	m.dl.cancel()
	return true
}

// DownloadStatus returns the running or most recent download. The zero value
// means nothing was downloaded since start.
func (m *Manager) DownloadStatus() types.DownloadStatus {
	st, _ := m.downloadStatus()
	return st
}

func (m *Manager) downloadStatus() (types.DownloadStatus, bool) {
	m.dlMu.Lock()
	defer m.dlMu.Unlock()
	if m.dl == nil {
		return types.DownloadStatus{}, false
	}
	return m.dl.status, true
}

// downloadDone is closed when the current download goroutine exits. With no
// download it returns a closed channel.
func (m *Manager) downloadDone() <-chan struct{} {
	m.dlMu.Lock()
	defer m.dlMu.Unlock()
	if m.dl == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return m.dl.done
}
