//go:build windows

package lifecycle

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

// alive checks whether a process with the given pid is still running by
// opening it with the minimum query access right.
func alive(pid int) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)

	var code uint32
	if err := windows.GetExitCodeProcess(handle, &code); err != nil {
		// An unusable handle is a poor sign of a live process.
		return false
	}
	return code == windows.STILL_ACTIVE
}

// terminate has no SIGTERM equivalent on Windows; a hard terminate is
// the graceful path too.
func terminate(pid int) error {
	return kill(pid)
}

// kill forcibly ends the process.
func kill(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	err = process.Kill()
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// detachAttrs detaches the child from the caller's console.
func detachAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS}
}
