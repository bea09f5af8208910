//go:build windows

package cmd

import (
	"os"

	"golang.org/x/sys/windows"
)

// stillActive is the exit code GetExitCodeProcess reports for a process
// that has not exited (STILL_ACTIVE).
const stillActive = 259

// gracefulSignals lists the signals that trigger a clean server shutdown.
// Windows has no SIGTERM; os.Interrupt (Ctrl+C) is the only signal the
// runtime can deliver here.
func gracefulSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// processIsAlive opens a query-only handle on the PID and reads the exit
// code, since signal 0 probing is a Unix idiom with no Windows equivalent.
func processIsAlive(proc *os.Process) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(proc.Pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}
	return exitCode == stillActive
}

// sendGracefulStop ends the server process. There is no cross-process
// Ctrl+C to send, so this falls straight through to TerminateProcess; the
// pidfile cleanup in the serve command's defer never runs in that case and
// the stop command removes the stale file instead.
func sendGracefulStop(proc *os.Process) error {
	return proc.Kill()
}
