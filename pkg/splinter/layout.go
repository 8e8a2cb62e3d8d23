package splinter

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Binary layout (spec.md §3, §6).
//
// offset 0                     : header (headerSize bytes)
// offset headerSize            : slots[0..N-1] (each slotSize bytes)
// offset headerSize+N*slotSize : value arena (N * maxValSz bytes)
//
// All multi-byte fields are little-endian. Every field this package
// updates atomically sits at a 4-byte-aligned offset dedicated to that
// field alone, so atomic loads/stores/CAS via unsafe.Pointer casts over
// the mapped []byte never share a word with an unrelated field.

const (
	splinterMagic   uint32 = 0x534C4E54 // "SLNT"
	splinterVersion uint32 = 2
	splinterAlign   uint32 = 64
)

// isLittleEndian is true if the CPU uses little-endian byte order.
// Computed once at package init time; the wire format is fixed
// little-endian regardless of host order, but atomic word casts below
// additionally assume the host matches it.
var isLittleEndian = func() bool {
	var x uint32 = 0x04030201

	return *(*byte)(unsafe.Pointer(&x)) == 0x01
}()

// is64Bit is true if the architecture has 64-bit pointers, required for
// atomic 64-bit operations shared across processes via mmap.
var is64Bit = unsafe.Sizeof(uintptr(0)) >= 8

// Header field offsets.
const (
	offMagic     = 0
	offVersion   = 4
	offSlots     = 8
	offMaxValSz  = 12
	offValSz     = 16 // uint64
	offAlignment = 24
	// offHeaderReserved0 28..31 pads to the next 8-byte boundary.
	offEpoch            = 32 // uint64 atomic
	offValBrk           = 40 // uint64 atomic
	offParseFailures    = 48 // uint64 atomic
	offLastFailureEpoch = 56 // uint64 atomic
	offCoreFlags        = 64 // uint32 atomic, low byte significant
	offUserFlags        = 68 // uint32 atomic, low byte significant
	// 72..127 reserved, pads to the next 64-byte line.
	offBloomWatches = 128 // [64]uint32 atomic (low byte significant), 128..384
	offSignalGroups = 384 // [64]x(uint64 counter + 56 pad), 384..4480

	bloomWatchStride  = 4  // one word per label slot
	signalGroupStride = 64 // one cache line per counter

	headerSize = offSignalGroups + signalGroupCount*signalGroupStride // 4480
)

// Slot field offsets, relative to the start of a slot record.
const (
	slotOffHash   = 0  // uint64 atomic
	slotOffEpoch  = 8  // uint64 atomic
	slotOffValOff = 16 // uint32, canonical at slot init; rewritten only under the write lock (BIGUINT relocation, set/unset reset)
	slotOffValLen = 20 // uint32 atomic
	slotOffTypeFlag = 24 // uint32 atomic, low byte significant
	slotOffUserFlag = 28 // uint32 atomic, low byte significant
	slotOffCtime       = 32 // uint64 atomic
	slotOffAtime       = 40 // uint64 atomic
	slotOffWatcherMask = 48 // uint64 atomic
	slotOffBloom       = 56 // uint64 atomic
	slotOffKey         = 64 // [64]byte, 64..128
	slotOffEmbedding   = 128

	slotSize = slotOffEmbedding + embedDim*4 // 3200
)

// coreFlag bits (spec.md §6 "System flag bits").
const (
	coreFlagAutoScrub   uint32 = 1 << 0
	coreFlagHybridScrub uint32 = 1 << 1
)

// typeFlag bits (spec.md §6 "Type flag enumeration"), stored in the low
// byte of the slot's 4-byte type_flag word.
const (
	TypeVoid    uint32 = 1 << 0
	TypeBigInt  uint32 = 1 << 1
	TypeBigUint uint32 = 1 << 2
	TypeJSON    uint32 = 1 << 3
	TypeBinary  uint32 = 1 << 4
	TypeImgData uint32 = 1 << 5
	TypeAudio   uint32 = 1 << 6
	TypeVarText uint32 = 1 << 7

	defaultTypeFlag = TypeVoid
)

// bloomWatchSentinel marks a bloom-watch entry as having no registered
// signal group.
const bloomWatchSentinel uint32 = 0xFF

// computeRegionSize returns the total mapped region size for the given
// slot count and per-slot value capacity, or an error if the inputs are
// invalid or would overflow.
func computeRegionSize(slots, maxValSz uint32) (uint64, error) {
	if slots == 0 {
		return 0, fmt.Errorf("%w: slots must be > 0", ErrInvalidInput)
	}

	if maxValSz == 0 {
		return 0, fmt.Errorf("%w: max_val_sz must be > 0", ErrInvalidInput)
	}

	if slots > maxSlots {
		return 0, fmt.Errorf("%w: slots %d exceeds limit %d", ErrInvalidInput, slots, maxSlots)
	}

	if maxValSz > maxValueSize {
		return 0, fmt.Errorf("%w: max_val_sz %d exceeds limit %d", ErrInvalidInput, maxValSz, maxValueSize)
	}

	slotsTableSize := uint64(slots) * uint64(slotSize)
	arenaSize := uint64(slots) * uint64(maxValSz)
	total := uint64(headerSize) + slotsTableSize + arenaSize + bumpRegionSize(slots)

	if total > maxRegionSize {
		return 0, fmt.Errorf("%w: region size %d exceeds limit %d", ErrInvalidInput, total, maxRegionSize)
	}

	return total, nil
}

// bumpRegionSize returns the size of the fixed tail region set_named_type
// bumps into when converting a slot to BIGUINT. Sized so that every slot
// can be converted exactly once without resizing the region.
func bumpRegionSize(slots uint32) uint64 {
	return uint64(slots) * 8
}

// slotOffsetAt returns the byte offset of slot i within the mapped
// region.
func slotOffsetAt(i uint32) uint64 {
	return uint64(headerSize) + uint64(i)*uint64(slotSize)
}

// bloomWatchOffsetAt returns the byte offset of bloom-watch label b.
func bloomWatchOffsetAt(b uint) uint64 {
	return offBloomWatches + uint64(b)*bloomWatchStride
}

// signalGroupOffsetAt returns the byte offset of the counter for signal
// group g.
func signalGroupOffsetAt(g uint) uint64 {
	return offSignalGroups + uint64(g)*signalGroupStride
}

// --- atomic helpers over a mapped []byte ---
//
// Thin casts from a byte-slice offset to the matching atomic primitive,
// relying on the dedicated-word layout above for alignment and
// non-interference between fields.

func atomicLoadU64At(buf []byte, off uint64) uint64 {
	// SAFETY: every offset passed here names an 8-byte-aligned field
	// dedicated to a single uint64 (see the header/slot offset tables
	// above), and buf is the mmap'd region starting at the file/region
	// base, which is itself page- (and so 8-byte-) aligned.
	return atomic.LoadUint64((*uint64)(unsafe.Pointer(&buf[off])))
}

func atomicStoreU64At(buf []byte, off uint64, v uint64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(&buf[off])), v)
}

func atomicAddU64At(buf []byte, off uint64, delta uint64) uint64 {
	return atomic.AddUint64((*uint64)(unsafe.Pointer(&buf[off])), delta)
}

func atomicCASU64At(buf []byte, off uint64, old, new uint64) bool {
	return atomic.CompareAndSwapUint64((*uint64)(unsafe.Pointer(&buf[off])), old, new)
}

func atomicLoadU32At(buf []byte, off uint64) uint32 {
	// SAFETY: every offset passed here names a 4-byte-aligned field
	// dedicated to a single uint32 (see the header/slot offset tables
	// above).
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&buf[off])))
}

func atomicStoreU32At(buf []byte, off uint64, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&buf[off])), v)
}

func atomicCASU32At(buf []byte, off uint64, old, new uint32) bool {
	return atomic.CompareAndSwapUint32((*uint32)(unsafe.Pointer(&buf[off])), old, new)
}

// atomicOrU32At atomically ORs mask into the uint32 word at off and
// returns the previous value.
func atomicOrU32At(buf []byte, off uint64, mask uint32) uint32 {
	for {
		old := atomicLoadU32At(buf, off)
		if atomicCASU32At(buf, off, old, old|mask) {
			return old
		}
	}
}

// atomicAndU32At atomically ANDs mask into the uint32 word at off and
// returns the previous value.
func atomicAndU32At(buf []byte, off uint64, mask uint32) uint32 {
	for {
		old := atomicLoadU32At(buf, off)
		if atomicCASU32At(buf, off, old, old&mask) {
			return old
		}
	}
}

func putLE64(buf []byte, off uint64, v uint64) {
	binary.LittleEndian.PutUint64(buf[off:off+8], v)
}

func getLE64(buf []byte, off uint64) uint64 {
	return binary.LittleEndian.Uint64(buf[off : off+8])
}

func putLE32(buf []byte, off uint64, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

func getLE32(buf []byte, off uint64) uint32 {
	return binary.LittleEndian.Uint32(buf[off : off+4])
}
