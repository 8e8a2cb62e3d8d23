package splinter

// Hardcoded implementation limits.
//
// These exist to keep arithmetic safely away from overflow boundaries and
// to bound resource usage for configurations nothing exercises or fuzzes.
// Violations are usage errors ([ErrInvalidInput]).
const (
	// keyCapacity is the fixed key buffer size per slot, including the
	// null terminator (spec.md §6: "null-terminated byte string, maximum
	// length 63 bytes plus terminator").
	keyCapacity = 64

	// maxKeyLen is the longest key accepted before truncation, matching
	// keyCapacity-1.
	maxKeyLen = keyCapacity - 1

	// embedDim is the fixed embedding vector dimension.
	embedDim = 768

	// signalGroupCount is the number of independent pulse counters and
	// the number of bloom-watch label slots.
	signalGroupCount = 64

	// maxSlots bounds the slot count accepted by [Create], far above any
	// configuration this module is tested against.
	maxSlots = uint32(1 << 28)

	// maxValueSize bounds the per-slot value capacity accepted by
	// [Create].
	maxValueSize = uint32(1 << 30)

	// maxRegionSize bounds the total mapped region size, a safety
	// guardrail rather than a RAM limit (mmap does not load the whole
	// file into memory).
	maxRegionSize = uint64(1) << 40

	// tandemSeparator is the compile-time constant tandem keys use to
	// join a base key with its ordinal suffix (spec.md §4.18).
	tandemSeparator = "."

	// pollSleepQuantum is the coarse sleep quantum [Region.Poll] uses
	// between epoch samples (spec.md §4.8: "on the order of 10 ms").
	pollSleepQuantum = 10 // milliseconds

	// readMaxRetries bounds the number of seqlock read-retry attempts
	// before an operation surfaces [ErrRetry] to the caller.
	readMaxRetries = 20
)
