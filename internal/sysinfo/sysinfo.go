// Package sysinfo reports host resources relevant to local inference.
package sysinfo

import (
	"runtime"

	"edgegen/pkg/types"
)

// Probe collects CPU, memory and disk figures. dir selects the filesystem
// whose capacity is reported; empty skips the disk probe. threads is the
// worker count the engine will use.
func Probe(dir string, threads int) (types.SystemInfo, error) {
	info := types.SystemInfo{NumCPU: runtime.NumCPU(), Threads: threads}
	total, avail, err := memory()
	if err != nil {
		return info, err
	}
	info.TotalRAMBytes, info.AvailRAMBytes = total, avail
	if dir != "" {
		dt, df, err := disk(dir)
		if err != nil {
			return info, err
		}
		info.DiskTotalBytes, info.DiskFreeBytes = dt, df
	}
	return info, nil
}
