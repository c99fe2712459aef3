//go:build darwin

package persistence

import (
	"os"
	"syscall"
	"time"
)

func birthTime(_ string, info os.FileInfo) *time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}

	t := time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
	return &t
}
