//go:build windows

// Package cpu pins worker threads to CPU cores where the OS supports it.
package cpu

import (
	"runtime"
	"syscall"
)

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

// PinWorker locks the calling goroutine to its OS thread and pins that
// thread to one core, chosen by worker index modulo the CPU count.
// The returned func undoes the thread lock and must be deferred.
func PinWorker(workerID int) func() {
	runtime.LockOSThread()

	core := workerID % runtime.NumCPU()
	if handle, _, _ := getCurrentThread.Call(); handle != 0 {
		// Bit N of the mask selects CPU N. Pinning is best effort.
		_, _, _ = setThreadAffinityMask.Call(handle, uintptr(1)<<uint(core))
	}

	return runtime.UnlockOSThread
}
