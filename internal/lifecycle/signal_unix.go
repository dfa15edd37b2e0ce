//go:build !windows

package lifecycle

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// alive checks whether a process with the given pid is still running.
// Signal 0 tests existence without delivering anything: ESRCH means no
// such process, EPERM means it exists but belongs to someone else. A
// zombie still passes the signal probe even though it has exited, so it
// needs its own check.
func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(unix.Signal(0))
	if err == nil {
		return !isZombie(pid)
	}
	return err == unix.EPERM
}

// isZombie reports whether pid has exited but not been reaped yet. The
// state letter in /proc/<pid>/stat is Z for zombies; on systems without
// procfs the signal probe's answer stands.
func isZombie(pid int) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	// The second field is the parenthesized comm, which may itself
	// contain spaces and parens; the state letter follows the last ')'.
	stat := string(data)
	i := strings.LastIndexByte(stat, ')')
	if i < 0 || i+2 >= len(stat) {
		return false
	}
	return stat[i+2] == 'Z'
}

// terminate asks the process to exit voluntarily.
func terminate(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

// kill forcibly ends the process. The negative pid targets the whole
// process group so a server's children go with it.
func kill(pid int) error {
	if err := unix.Kill(-pid, unix.SIGKILL); err == nil || err == unix.ESRCH {
		return nil
	}
	return unix.Kill(pid, unix.SIGKILL)
}

// detachAttrs returns the SysProcAttr that puts the child in its own
// process group, detaching it from the caller's terminal.
func detachAttrs() *unix.SysProcAttr {
	return &unix.SysProcAttr{Setpgid: true}
}
