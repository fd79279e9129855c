package fsutil

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Trash moves path into the user trash (freedesktop.org layout), falling
// back to plain removal when no trash directory can be used. The file is
// gone either way when the returned error is nil.
func Trash(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := trashMove(abs); err != nil {
		if rmErr := os.Remove(abs); rmErr != nil {
			return fmt.Errorf("failed to trash (%v) and to remove: %w", err, rmErr)
		}
	}
	return nil
}

func trashMove(abs string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	root := filepath.Join(home, ".local", "share", "Trash")
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		root = filepath.Join(xdg, "Trash")
	}
	filesDir := filepath.Join(root, "files")
	infoDir := filepath.Join(root, "info")
	if err := os.MkdirAll(filesDir, 0o700); err != nil {
		return err
	}
	if err := os.MkdirAll(infoDir, 0o700); err != nil {
		return err
	}

	name := filepath.Base(abs)
	target := filepath.Join(filesDir, name)
	for i := 1; ; i++ {
		if _, err := os.Lstat(target); os.IsNotExist(err) {
			break
		}
		target = filepath.Join(filesDir, fmt.Sprintf("%s.%d", name, i))
	}

	// Percent-encode the path but keep the slashes, per the trash spec.
	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: abs}).EscapedPath(), time.Now().Format("2006-01-02T15:04:05"))
	infoPath := filepath.Join(infoDir, filepath.Base(target)+".trashinfo")
	if err := os.WriteFile(infoPath, []byte(info), 0o600); err != nil {
		return err
	}
	if err := os.Rename(abs, target); err != nil {
		_ = os.Remove(infoPath)
		return err
	}
	return nil
}
