//go:build darwin

// Package cpu pins worker threads to CPU cores where the OS supports it.
package cpu

import "runtime"

// PinWorker locks the calling goroutine to its OS thread. macOS offers no
// public thread affinity control, so the thread lock is all we get.
// The returned func undoes the lock and must be deferred.
func PinWorker(workerID int) func() {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
