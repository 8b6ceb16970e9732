//go:build !windows

package nativelog

// O_APPEND writes are atomic on POSIX systems, no cross-process lock needed.
func withProcessLogLock(fn func() error) error { return fn() }
