package fsutil

import (
	"fmt"
	"os"
	"time"
)

// Times carries the access and modification timestamps of a file so a
// rewrite can re-apply them to its replacement.
type Times struct {
	Access   time.Time
	Modified time.Time
}

// FileTimes reads the timestamps of path. On platforms without a readable
// access time the modification time is used for both.
func FileTimes(path string) (Times, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Times{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	t := Times{Access: info.ModTime(), Modified: info.ModTime()}
	if atime, ok := accessTime(info); ok {
		t.Access = atime
	}
	return t, nil
}

// ApplyTimes writes the timestamps back onto path.
func ApplyTimes(path string, t Times) error {
	if err := os.Chtimes(path, t.Access, t.Modified); err != nil {
		return fmt.Errorf("failed to restore times on %s: %w", path, err)
	}
	return nil
}
