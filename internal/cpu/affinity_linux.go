//go:build linux

// Package cpu pins worker threads to CPU cores where the OS supports it.
package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// PinWorker locks the calling goroutine to its OS thread and pins that
// thread to one core, chosen by worker index modulo the CPU count.
// The returned func undoes the thread lock and must be deferred.
func PinWorker(workerID int) func() {
	runtime.LockOSThread()

	core := workerID % runtime.NumCPU()
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(core)
	// 0 targets the current thread. Pinning is best effort.
	_ = unix.SchedSetaffinity(0, &mask)

	return runtime.UnlockOSThread
}
