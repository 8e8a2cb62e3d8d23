// Package splinter provides a passive, lock-free, shared-memory
// key-value manifold for inter-process communication on POSIX hosts.
//
// Multiple unrelated processes attach to the same backing object (a
// regular file, or a file under /dev/shm for anonymous shared memory) and
// perform reads, writes, atomic arithmetic on integer-typed slots,
// fixed-dimension vector publication, label tagging, and change
// notification. There is no daemon: all coordination happens through
// atomic state embedded in the mapped region itself.
//
// # Basic usage
//
//	region, err := splinter.Create("/tmp/my.splinter", 1024, 4096)
//	if err != nil {
//	    // handle ErrExists, ErrInvalidInput
//	}
//	defer region.Close()
//
//	err = region.Set("alpha", []byte("hi"))
//	buf, n, err := region.Get("alpha", make([]byte, 64))
//
// # Concurrency
//
// All operations are safe for concurrent use by multiple goroutines and
// multiple processes mapped to the same region. There is no single-writer
// restriction at the region level: every slot is independently protected
// by its own seqlock, so unrelated keys never contend with each other.
//
// # Error handling
//
// Errors fall into the kinds described in [ErrorKind]: usage errors, not
// found, capacity exhaustion, contention (retry), format mismatch on
// open, and buffer-too-small. The core never panics, aborts, or logs; it
// always returns a plain error that [Kind] can classify.
package splinter
