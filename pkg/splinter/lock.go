package splinter

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// Per-slot seqlocks make splinter's read/write/integer-op paths lock-free
// and multi-writer safe without any file-level coordination. A sidecar
// advisory lock is still useful for the one operation that touches every
// slot at once: [Region.Purge]. acquirePurgeLock keeps two concurrent
// purges (in this process or another) from interleaving their
// region-wide zeroing passes.

// acquirePurgeLock acquires an exclusive, non-blocking lock on path's
// sidecar lock file. Returns [ErrRetry] on contention.
func acquirePurgeLock(path string) (*os.File, error) {
	lockPath := path + ".lock"

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	err = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		_ = lockFile.Close()

		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			return nil, fmt.Errorf("%w: purge already in progress", ErrRetry)
		}

		return nil, fmt.Errorf("flock: %w", err)
	}

	return lockFile, nil
}

// releasePurgeLock releases the lock and closes the file. It does not
// delete the lock file.
func releasePurgeLock(lockFile *os.File) {
	if lockFile == nil {
		return
	}

	_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
	_ = lockFile.Close()
}
