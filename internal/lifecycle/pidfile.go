package lifecycle

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// writePIDFile records pid at path, creating parent-less paths' files
// with 0644. The caller is responsible for the parent directory.
func writePIDFile(path string, pid int) error {
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// readPIDFile returns the recorded pid, or ErrNotRunning when the file
// does not exist. A file that exists but does not hold an integer is
// treated as stale.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, ErrNotRunning
	}
	if err != nil {
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, ErrStaleHandle
	}
	return pid, nil
}

// removePIDFile deletes the file, ignoring an already-missing one.
func removePIDFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}
