//go:build linux

package sysinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func memory() (total, avail uint64, err error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0, 0, fmt.Errorf("sysinfo: %w", err)
	}
	unit := uint64(si.Unit)
	if unit == 0 {
		unit = 1
	}
	// free plus buffers; page cache is not counted
	return uint64(si.Totalram) * unit, (uint64(si.Freeram) + uint64(si.Bufferram)) * unit, nil
}

func disk(dir string) (total, free uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	bs := uint64(st.Bsize)
	return uint64(st.Blocks) * bs, uint64(st.Bavail) * bs, nil
}
