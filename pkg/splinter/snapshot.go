package splinter

import "fmt"

// HeaderSnapshot is a non-atomic, point-in-time copy of the header's
// atomic fields (spec.md §4.14). Fields are sampled independently; there
// is no cross-field consistency guarantee.
type HeaderSnapshot struct {
	Slots            uint32
	MaxValSz         uint32
	ValSz            uint64
	Epoch            uint64
	ValBrk           uint64
	ParseFailures    uint64
	LastFailureEpoch uint64
	CoreFlags        uint32
	UserFlags        uint32
}

// GetHeaderSnapshot copies the header's atomic fields into a
// HeaderSnapshot, one atomic load per field.
func (r *Region) GetHeaderSnapshot() (HeaderSnapshot, error) {
	if r.data == nil {
		return HeaderSnapshot{}, fmt.Errorf("%w", ErrClosed)
	}

	return HeaderSnapshot{
		Slots:            getLE32(r.data, offSlots),
		MaxValSz:         getLE32(r.data, offMaxValSz),
		ValSz:            getLE64(r.data, offValSz),
		Epoch:            atomicLoadU64At(r.data, offEpoch),
		ValBrk:           atomicLoadU64At(r.data, offValBrk),
		ParseFailures:    atomicLoadU64At(r.data, offParseFailures),
		LastFailureEpoch: atomicLoadU64At(r.data, offLastFailureEpoch),
		CoreFlags:        atomicLoadU32At(r.data, offCoreFlags),
		UserFlags:        atomicLoadU32At(r.data, offUserFlags),
	}, nil
}

// SlotSnapshot is a non-atomic, consistent point-in-time copy of a
// slot's metadata and embedding vector, produced by the seqlock reader
// loop (spec.md §4.14).
type SlotSnapshot struct {
	Hash        uint64
	ValLen      uint32
	TypeFlag    uint32
	UserFlag    uint32
	WatcherMask uint64
	Ctime       uint64
	Atime       uint64
	Bloom       uint64
	Embedding   [embedDim]float32
}

// GetSlotSnapshot returns a consistent snapshot of key's slot metadata
// and embedding.
func (r *Region) GetSlotSnapshot(key string) (SlotSnapshot, error) {
	if r.data == nil {
		return SlotSnapshot{}, fmt.Errorf("%w", ErrClosed)
	}

	encoded := encodeKey(key)
	hash := hashKey(encoded)

	idx, found, _ := r.findSlot(hash, encoded, false)
	if !found {
		return SlotSnapshot{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	var out SlotSnapshot

	matched := true

	err := r.readSnapshot(idx, func() {
		off := slotOffsetAt(idx)

		h := getLE64(r.data, off+slotOffHash)
		if h != hash || !r.slotKeyEquals(idx, encoded) {
			matched = false

			return
		}

		out.Hash = h
		out.ValLen = atomicLoadU32At(r.data, off+slotOffValLen)
		out.TypeFlag = atomicLoadU32At(r.data, off+slotOffTypeFlag)
		out.UserFlag = atomicLoadU32At(r.data, off+slotOffUserFlag)
		out.WatcherMask = atomicLoadU64At(r.data, off+slotOffWatcherMask)
		out.Ctime = atomicLoadU64At(r.data, off+slotOffCtime)
		out.Atime = atomicLoadU64At(r.data, off+slotOffAtime)
		out.Bloom = atomicLoadU64At(r.data, off+slotOffBloom)

		for i := 0; i < embedDim; i++ {
			out.Embedding[i] = readFloat32At(r.data, off+slotOffEmbedding+uint64(i)*4)
		}
	})
	if err != nil {
		return SlotSnapshot{}, err
	}

	if !matched {
		return SlotSnapshot{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return out, nil
}

// RawView is a non-owning, borrowed reference into a slot's value bytes
// (spec.md §4.14, §9 "Raw pointers into shared memory"). It offers no
// scrub or bounds protection: callers must re-check Epoch after reading
// Bytes to detect a torn read, and the view is valid only while the
// owning [Region] remains mapped.
type RawView struct {
	Bytes []byte
	Len   uint32
	Epoch uint64
}

// GetRawPointer returns a zero-copy borrowed view of key's value bytes
// plus the epoch observed at sample time. Verify Epoch is even both
// before and after consuming Bytes; a mismatch means the read was torn.
func (r *Region) GetRawPointer(key string) (RawView, error) {
	if r.data == nil {
		return RawView{}, fmt.Errorf("%w", ErrClosed)
	}

	encoded := encodeKey(key)
	hash := hashKey(encoded)

	idx, found, _ := r.findSlot(hash, encoded, false)
	if !found {
		return RawView{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	epochOff := slotOffsetAt(idx) + slotOffEpoch
	e := atomicLoadU64At(r.data, epochOff)

	n := atomicLoadU32At(r.data, slotOffsetAt(idx)+slotOffValLen)
	valOff := r.valueOffsetAt(idx)

	return RawView{
		Bytes: r.data[valOff : valOff+uint64(n)],
		Len:   n,
		Epoch: e,
	}, nil
}
