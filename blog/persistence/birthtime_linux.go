//go:build linux

package persistence

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// birthTime uses statx; filesystems that do not report STATX_BTIME yield nil
func birthTime(path string, _ os.FileInfo) *time.Time {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME, &stx); err != nil {
		return nil
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return nil
	}

	t := time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	return &t
}
