package splinter

import "errors"

// Sentinel errors returned by splinter operations.
//
// Callers should use [errors.Is] to check error identity, or [Kind] to
// classify an error into one of the six kinds spec.md §7 describes.
var (
	// ErrInvalidInput indicates a usage error: bad arguments, a value
	// length of 0 or greater than max_val_sz, an unknown time mode, etc.
	// Over-long keys are not rejected; they are truncated to fit the key
	// buffer. No state change occurs.
	ErrInvalidInput = errors.New("splinter: invalid input")

	// ErrNotFound indicates the key is not present in the store. No
	// state change occurs.
	ErrNotFound = errors.New("splinter: not found")

	// ErrFull indicates the probe sequence exhausted every slot without
	// finding a match or an empty slot. No state change occurs.
	ErrFull = errors.New("splinter: store full")

	// ErrNoSpace indicates the bump allocator used by [Region.SetNamedType]
	// has exhausted the region's arena headroom. The slot is left
	// unchanged.
	ErrNoSpace = errors.New("splinter: arena exhausted")

	// ErrRetry indicates contention: the seqlock was observed mid-write,
	// a compare-and-swap lost a race, or a read snapshot was torn. No
	// state change occurs; callers decide whether to spin, back off, or
	// propagate.
	ErrRetry = errors.New("splinter: retry")

	// ErrTimeout indicates [Region.Poll] reached its deadline without
	// observing a change.
	ErrTimeout = errors.New("splinter: timeout")

	// ErrBufferTooSmall indicates the caller-supplied buffer is smaller
	// than the stored value. The actual length is still reported to the
	// caller via the operation's size return.
	ErrBufferTooSmall = errors.New("splinter: buffer too small")

	// ErrTypeMismatch indicates [Region.IntegerOp] was called on a slot
	// whose type_flag does not include BIGUINT.
	ErrTypeMismatch = errors.New("splinter: type mismatch")

	// ErrFormat indicates [Open] rejected the backing object: magic or
	// version mismatch, or a truncated region. No region is mapped.
	ErrFormat = errors.New("splinter: format mismatch")

	// ErrExists indicates [Create] was called on a backing object that
	// already exists.
	ErrExists = errors.New("splinter: already exists")

	// ErrClosed indicates an operation was attempted on a [Region] after
	// [Region.Close] was called.
	ErrClosed = errors.New("splinter: closed")
)

// ErrorKind classifies an error into the taxonomy spec.md §7 describes.
type ErrorKind int

const (
	// KindOther covers errors outside the six named kinds (e.g. an
	// unwrapped I/O error from the backing filesystem).
	KindOther ErrorKind = iota
	// KindUsage: bad arguments or misuse.
	KindUsage
	// KindAbsent: key not present.
	KindAbsent
	// KindCapacity: store full or arena exhausted.
	KindCapacity
	// KindContention: seqlock observed odd, CAS failed, read torn.
	KindContention
	// KindFormat: magic/version mismatch on open.
	KindFormat
	// KindBuffer: caller-provided buffer too small.
	KindBuffer
)

// Kind classifies err into one of the [ErrorKind] values. It unwraps err
// with [errors.Is] against the package's sentinel errors, so wrapped
// errors classify the same as their sentinel.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrTypeMismatch), errors.Is(err, ErrClosed):
		return KindUsage
	case errors.Is(err, ErrNotFound):
		return KindAbsent
	case errors.Is(err, ErrFull), errors.Is(err, ErrNoSpace):
		return KindCapacity
	case errors.Is(err, ErrRetry), errors.Is(err, ErrTimeout):
		return KindContention
	case errors.Is(err, ErrFormat), errors.Is(err, ErrExists):
		return KindFormat
	case errors.Is(err, ErrBufferTooSmall):
		return KindBuffer
	default:
		return KindOther
	}
}
