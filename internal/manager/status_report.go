package manager

import (
	"time"

	"edgegen/internal/sysinfo"
	"edgegen/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	resp := types.StatusResponse{
		State:            m.sess.State().String(),
		Backend:          m.sess.BackendName(),
		BackendBuilt:     m.backendBuilt,
		CurrentRequestID: m.currentReq,
		LastError:        m.err,
	}
	if m.cur != nil {
		cp := *m.cur
		resp.Model = &cp
	}
	m.mu.RUnlock()

	if ds, ok := m.downloadStatus(); ok {
		resp.Download = &ds
	}
	resp.QueueLen = len(m.queueCh)
	resp.MaxQueueDepth = cap(m.queueCh)
	resp.LoadsTotal = m.loads.Load()
	resp.GenerationsTotal = m.generations.Load()
	now := time.Now()
	resp.UptimeSeconds = int64(now.Sub(m.startTime).Seconds())
	resp.ServerTimeUnix = now.Unix()
	if info, err := sysinfo.Probe(m.store.Dir, m.sess.Config().ThreadCount()); err == nil {
		resp.System = &info
	} else {
		m.log.Debug().Err(err).Msg("system probe")
	}
	return resp
}
