package sysinfo

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestProbe(t *testing.T) {
	info, err := Probe(t.TempDir(), 3)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.NumCPU != runtime.NumCPU() || info.Threads != 3 {
		t.Fatalf("cpu=%d threads=%d", info.NumCPU, info.Threads)
	}
	if runtime.GOOS == "linux" {
		if info.TotalRAMBytes == 0 || info.AvailRAMBytes > info.TotalRAMBytes {
			t.Fatalf("ram total=%d avail=%d", info.TotalRAMBytes, info.AvailRAMBytes)
		}
		if info.DiskTotalBytes == 0 || info.DiskFreeBytes > info.DiskTotalBytes {
			t.Fatalf("disk total=%d free=%d", info.DiskTotalBytes, info.DiskFreeBytes)
		}
	}
}

func TestProbeSkipsDisk(t *testing.T) {
	info, err := Probe("", 1)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.DiskTotalBytes != 0 {
		t.Fatalf("disk probed for empty dir")
	}
}

func TestProbeMissingDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("disk probe is linux-only")
	}
	if _, err := Probe(filepath.Join(t.TempDir(), "missing"), 1); err == nil {
		t.Fatalf("expected statfs error")
	}
}
