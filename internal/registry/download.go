package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PartExt is appended to the destination path while a download is in flight.
const PartExt = ".part"

// Download defaults used when the Store fields are unset.
const (
	DefaultDownloadAttempts = 3
	DefaultRetryBackoff     = 2 * time.Second
	DefaultProgressInterval = 500 * time.Millisecond
)

var (
	// ErrExists is returned when the id already has a model file.
	ErrExists = errors.New("model already exists")
	// ErrSizeMismatch is returned when the finished file does not have the
	// announced size.
	ErrSizeMismatch = errors.New("download size mismatch")
)

// Progress is one download progress report. Total is 0 when neither the
// caller nor the server announced a size.
type Progress struct {
	ID         string
	Downloaded int64
	Total      int64
}

// Fraction returns the completed share in [0,1], or -1 when Total is unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return -1
	}
	f := float64(p.Downloaded) / float64(p.Total)
	if f > 1 {
		f = 1
	}
	return f
}

// ProgressFunc receives throttled progress reports.
type ProgressFunc func(Progress)

// statusError is a non-success HTTP reply. 4xx replies other than 408 and
// 429 are not retried.
type statusError struct {
	url    string
	status string
	code   int
}

func (e statusError) Error() string { return "download " + e.url + ": " + e.status }

func (e statusError) retryable() bool {
	return e.code >= 500 || e.code == http.StatusRequestTimeout || e.code == http.StatusTooManyRequests
}

// Download fetches url into the store as id. Bytes land in "<id>.gguf.part"
// first; an existing part file is resumed with a Range request. size, when
// positive, is the expected length of the finished file. The file must pass
// Preflight before it is renamed into place. Canceling ctx aborts the
// transfer and removes the part file; other failures keep it for a later
// resume.
func (s *Store) Download(ctx context.Context, id, url string, size int64, progress ProgressFunc) (string, error) {
	dst, err := s.Path(id)
	if err != nil {
		return "", err
	}
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("invalid download url %q", url)
	}
	if s.Exists(id) {
		return "", fmt.Errorf("%w: %s", ErrExists, id)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	part := dst + PartExt
	base := filepath.Base(dst)
	id = strings.TrimSuffix(base, filepath.Ext(base))

	attempts := s.Attempts
	if attempts <= 0 {
		attempts = DefaultDownloadAttempts
	}
	backoff := s.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	var total int64
	for attempt := 1; ; attempt++ {
		total, err = s.fetch(ctx, id, url, part, size, progress)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			_ = os.Remove(part)
			return "", ctx.Err()
		}
		var se statusError
		if attempt >= attempts || (errors.As(err, &se) && !se.retryable()) {
			return "", err
		}
		select {
		case <-ctx.Done():
			_ = os.Remove(part)
			return "", ctx.Err()
		case <-time.After(backoff * time.Duration(attempt)):
		}
	}

	fi, err := os.Stat(part)
	if err != nil {
		return "", err
	}
	if want := expected(size, total); want > 0 && fi.Size() != want {
		_ = os.Remove(part)
		return "", fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, fi.Size(), want)
	}
	if err := Preflight(part); err != nil {
		_ = os.Remove(part)
		return "", err
	}
	if err := os.Rename(part, dst); err != nil {
		return "", err
	}
	if progress != nil {
		progress(Progress{ID: id, Downloaded: fi.Size(), Total: fi.Size()})
	}
	return dst, nil
}

func expected(size, total int64) int64 {
	if size > 0 {
		return size
	}
	return total
}

// fetch performs one transfer attempt, appending to part when the server
// honours the Range header. It returns the total size the server announced.
func (s *Store) fetch(ctx context.Context, id, url, part string, size int64, progress ProgressFunc) (int64, error) {
	var offset int64
	if fi, err := os.Stat(part); err == nil {
		offset = fi.Size()
	}
	if size > 0 && offset > size {
		offset = 0
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	flag := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusOK:
		offset = 0
		flag |= os.O_TRUNC
	case http.StatusPartialContent:
		flag |= os.O_APPEND
	case http.StatusRequestedRangeNotSatisfiable:
		if offset > 0 {
			// the part file already holds everything the server has
			return offset, nil
		}
		fallthrough
	default:
		return 0, statusError{url: url, status: resp.Status, code: resp.StatusCode}
	}
	var total int64
	if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	f, err := os.OpenFile(part, flag, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	every := s.ProgressInterval
	if every <= 0 {
		every = DefaultProgressInterval
	}
	report := Progress{ID: id, Downloaded: offset, Total: expected(size, total)}
	if progress != nil {
		progress(report)
	}
	buf := make([]byte, 32*1024)
	last := time.Now()
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return 0, err
			}
			report.Downloaded += int64(n)
			if progress != nil && time.Since(last) >= every {
				progress(report)
				last = time.Now()
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return 0, rerr
		}
	}
	if total > 0 && report.Downloaded < total {
		return 0, fmt.Errorf("download %s: %w", url, io.ErrUnexpectedEOF)
	}
	return total, f.Sync()
}
