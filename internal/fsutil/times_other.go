//go:build !linux && !darwin

package fsutil

import (
	"os"
	"time"
)

func accessTime(info os.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
