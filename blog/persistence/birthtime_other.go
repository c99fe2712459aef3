//go:build !linux && !darwin && !windows

package persistence

import (
	"os"
	"time"
)

// birthTime is unknown here; ctime on most unixes is the inode change time, not creation
func birthTime(string, os.FileInfo) *time.Time {
	return nil
}
