//go:build windows

package persistence

import (
	"os"
	"syscall"
	"time"
)

func birthTime(_ string, info os.FileInfo) *time.Time {
	attrs, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return nil
	}

	t := time.Unix(0, attrs.CreationTime.Nanoseconds())
	return &t
}
