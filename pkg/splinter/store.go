package splinter

import (
	"bytes"
	"fmt"
	"time"
)

// encodeKey copies key into a fixed keyCapacity buffer, truncating to
// maxKeyLen bytes and null-terminating, per spec.md §6.
func encodeKey(key string) [keyCapacity]byte {
	var buf [keyCapacity]byte

	n := len(key)
	if n > maxKeyLen {
		n = maxKeyLen
	}

	copy(buf[:n], key[:n])

	return buf
}

// hashKey computes the probe identity for an encoded key, consuming
// bytes up to (not including) the null terminator.
func hashKey(encoded [keyCapacity]byte) uint64 {
	n := bytes.IndexByte(encoded[:], 0)
	if n < 0 {
		n = len(encoded)
	}

	return fnv1a64(encoded[:n])
}

// findSlot probes for a slot matching hash+key, or the first empty slot
// if claimEmpty is true and no match exists. Returns the slot index,
// whether a live match was found, and whether any slot (match or empty)
// was returned at all.
func (r *Region) findSlot(hash uint64, key [keyCapacity]byte, claimEmpty bool) (uint32, bool, bool) {
	start := uint32(hash % uint64(r.slots))

	var emptyIdx uint32
	haveEmpty := false

	for i := uint32(0); i < r.slots; i++ {
		idx := (start + i) % r.slots
		off := slotOffsetAt(idx)

		h := getLE64(r.data, off+slotOffHash)
		if h == 0 {
			if claimEmpty && !haveEmpty {
				emptyIdx = idx
				haveEmpty = true
			}

			continue
		}

		if h == hash && r.slotKeyEquals(idx, key) {
			return idx, true, true
		}
	}

	if haveEmpty {
		return emptyIdx, false, true
	}

	return 0, false, false
}

func (r *Region) slotKeyEquals(idx uint32, key [keyCapacity]byte) bool {
	off := slotOffsetAt(idx) + slotOffKey
	return bytes.Equal(r.data[off:off+keyCapacity], key[:])
}

// --- seqlock protocol (spec.md §4.3) ---

// beginWrite attempts a single compare-and-swap write-entry on the slot
// at idx. Returns the epoch observed before the attempted CAS and
// whether it succeeded.
func (r *Region) beginWrite(idx uint32) (uint64, bool) {
	off := slotOffsetAt(idx) + slotOffEpoch

	e := atomicLoadU64At(r.data, off)
	if e%2 != 0 {
		return e, false
	}

	return e, atomicCASU64At(r.data, off, e, e+1)
}

// endWrite commits a write by advancing the slot epoch to e+2 (even).
func (r *Region) endWrite(idx uint32, e uint64) {
	atomicStoreU64At(r.data, slotOffsetAt(idx)+slotOffEpoch, e+2)
	atomicAddU64At(r.data, offEpoch, 1)
}

// abortWrite restores even parity without advancing the global epoch or
// pulsing watchers.
func (r *Region) abortWrite(idx uint32, e uint64) {
	atomicStoreU64At(r.data, slotOffsetAt(idx)+slotOffEpoch, e+2)
}

// readSnapshot runs fn while the slot at idx is quiescent, retrying on
// torn reads up to readMaxRetries times. fn must not mutate shared
// state; it only reads.
func (r *Region) readSnapshot(idx uint32, fn func()) error {
	off := slotOffsetAt(idx) + slotOffEpoch

	for attempt := 0; attempt < readMaxRetries; attempt++ {
		e1 := atomicLoadU64At(r.data, off)
		if e1%2 != 0 {
			continue
		}

		fn()

		e2 := atomicLoadU64At(r.data, off)
		if e1 == e2 {
			return nil
		}
	}

	return fmt.Errorf("%w: seqlock never quiesced", ErrRetry)
}

// Set stores val under key, claiming a free slot or reusing the slot
// already bound to key.
func (r *Region) Set(key string, val []byte) error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	if len(val) == 0 || uint32(len(val)) > r.maxValSz {
		return fmt.Errorf("%w: value length %d not in (0, %d]", ErrInvalidInput, len(val), r.maxValSz)
	}

	encoded := encodeKey(key)
	hash := hashKey(encoded)

	for probe := uint32(0); probe < r.slots; probe++ {
		idx, _, ok := r.findSlot(hash, encoded, true)
		if !ok {
			return fmt.Errorf("%w", ErrFull)
		}

		e, acquired := r.beginWrite(idx)
		if !acquired {
			continue
		}

		// Re-validate under the lock: another writer may have claimed
		// this slot for a different key between findSlot and the CAS.
		h := getLE64(r.data, slotOffsetAt(idx)+slotOffHash)
		if h != 0 && (h != hash || !r.slotKeyEquals(idx, encoded)) {
			r.abortWrite(idx, e)

			continue
		}

		// set always writes to the slot's canonical partition, undoing
		// any earlier BIGUINT relocation from set_named_type.
		r.resetValueOffset(idx)
		arenaOff := r.arenaOffsetAt(idx)

		r.scrubBeforeWrite(idx, arenaOff, len(val))

		copy(r.data[arenaOff:arenaOff+uint64(len(val))], val)

		atomicStoreU32At(r.data, slotOffsetAt(idx)+slotOffValLen, uint32(len(val)))

		keyOff := slotOffsetAt(idx) + slotOffKey
		copy(r.data[keyOff:keyOff+keyCapacity], encoded[:])

		atomicStoreU32At(r.data, slotOffsetAt(idx)+slotOffTypeFlag, defaultTypeFlag)

		// Release-fence equivalent: the hash store below is the
		// publication point. Go's memory model gives atomic stores
		// release semantics relative to subsequent atomic loads of the
		// same location by other goroutines/processes.
		atomicStoreU64At(r.data, slotOffsetAt(idx)+slotOffHash, hash)

		r.endWrite(idx, e)
		r.pulse(idx)

		return nil
	}

	return fmt.Errorf("%w: every write-entry attempt lost to contention", ErrRetry)
}

// scrubBeforeWrite zeroes value bytes ahead of a write according to the
// active scrub policy (spec.md §4.4).
func (r *Region) scrubBeforeWrite(idx uint32, arenaOff uint64, newLen int) {
	flags := atomicLoadU32At(r.data, offCoreFlags)
	if flags&coreFlagAutoScrub == 0 {
		return
	}

	if flags&coreFlagHybridScrub != 0 {
		scrubLen := (newLen + 63) &^ 63
		if uint32(scrubLen) > r.maxValSz {
			scrubLen = int(r.maxValSz)
		}

		zero(r.data[arenaOff : arenaOff+uint64(scrubLen)])

		return
	}

	zero(r.data[arenaOff : arenaOff+uint64(r.maxValSz)])
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Get reads the value stored under key into buf, returning the slice of
// buf actually written and the value's true length. If buf is too small
// to hold the value, returns [ErrBufferTooSmall] with the true length.
func (r *Region) Get(key string, buf []byte) ([]byte, int, error) {
	if r.data == nil {
		return nil, 0, fmt.Errorf("%w", ErrClosed)
	}

	encoded := encodeKey(key)
	hash := hashKey(encoded)

	idx, found, _ := r.findSlot(hash, encoded, false)
	if !found {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	var (
		valLen int
		out    []byte
		small  bool
	)

	err := r.readSnapshot(idx, func() {
		h := getLE64(r.data, slotOffsetAt(idx)+slotOffHash)
		if h != hash || !r.slotKeyEquals(idx, encoded) {
			valLen = -1

			return
		}

		n := int(atomicLoadU32At(r.data, slotOffsetAt(idx)+slotOffValLen))
		valLen = n

		if buf == nil {
			return
		}

		if len(buf) < n {
			small = true

			return
		}

		valOff := r.valueOffsetAt(idx)
		out = buf[:n]
		copy(out, r.data[valOff:valOff+uint64(n)])
	})
	if err != nil {
		return nil, 0, err
	}

	if valLen < 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if small {
		return nil, valLen, fmt.Errorf("%w: need %d bytes", ErrBufferTooSmall, valLen)
	}

	return out, valLen, nil
}

// Unset removes key from the store, returning the length the value had
// before removal.
func (r *Region) Unset(key string) (int, error) {
	if r.data == nil {
		return 0, fmt.Errorf("%w", ErrClosed)
	}

	encoded := encodeKey(key)
	hash := hashKey(encoded)

	idx, found, _ := r.findSlot(hash, encoded, false)
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	e, acquired := r.beginWrite(idx)
	if !acquired {
		return 0, fmt.Errorf("%w", ErrRetry)
	}

	h := getLE64(r.data, slotOffsetAt(idx)+slotOffHash)
	if h != hash || !r.slotKeyEquals(idx, encoded) {
		r.abortWrite(idx, e)

		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	valLen := int(atomicLoadU32At(r.data, slotOffsetAt(idx)+slotOffValLen))

	atomicStoreU64At(r.data, slotOffsetAt(idx)+slotOffHash, 0)

	flags := atomicLoadU32At(r.data, offCoreFlags)
	keyOff := slotOffsetAt(idx) + slotOffKey

	if flags&coreFlagAutoScrub != 0 {
		// A bump-relocated BIGUINT payload only ever occupies 8
		// bytes of its own dedicated bump slot; zeroing max_val_sz
		// bytes there would run past the end of the region.
		scrubLen := uint64(r.maxValSz)
		if r.inBumpRegion(idx) {
			scrubLen = 8
		}

		valOff := r.valueOffsetAt(idx)
		zero(r.data[valOff : valOff+scrubLen])
		zero(r.data[keyOff : keyOff+keyCapacity])
	} else {
		r.data[keyOff] = 0
	}

	r.resetValueOffset(idx)
	atomicStoreU32At(r.data, slotOffsetAt(idx)+slotOffTypeFlag, defaultTypeFlag)
	atomicStoreU32At(r.data, slotOffsetAt(idx)+slotOffValLen, 0)
	atomicStoreU64At(r.data, slotOffsetAt(idx)+slotOffCtime, 0)
	atomicStoreU64At(r.data, slotOffsetAt(idx)+slotOffAtime, 0)
	atomicStoreU32At(r.data, slotOffsetAt(idx)+slotOffUserFlag, 0)
	atomicStoreU64At(r.data, slotOffsetAt(idx)+slotOffWatcherMask, 0)
	atomicStoreU64At(r.data, slotOffsetAt(idx)+slotOffBloom, 0)

	r.endWrite(idx, e)

	return valLen, nil
}

// ListEntry is one live key observed by [Region.List]. Key is a copy;
// the entry carries no live reference into the mapped region.
type ListEntry struct {
	Key    string
	ValLen int
}

// List performs an unlocked, best-effort scan of every slot, returning
// every key currently appearing live (hash != 0 and val_len > 0).
// Concurrent writers may cause the result to be slightly stale.
func (r *Region) List() ([]ListEntry, error) {
	if r.data == nil {
		return nil, fmt.Errorf("%w", ErrClosed)
	}

	var out []ListEntry

	for idx := uint32(0); idx < r.slots; idx++ {
		off := slotOffsetAt(idx)

		h := getLE64(r.data, off+slotOffHash)
		if h == 0 {
			continue
		}

		n := int(atomicLoadU32At(r.data, off+slotOffValLen))
		if n == 0 {
			continue
		}

		keyOff := off + slotOffKey
		end := bytes.IndexByte(r.data[keyOff:keyOff+keyCapacity], 0)
		if end < 0 {
			end = keyCapacity
		}

		out = append(out, ListEntry{
			Key:    string(r.data[keyOff : keyOff+uint64(end)]),
			ValLen: n,
		})
	}

	return out, nil
}

// Poll blocks, using coarse cooperative sleeps, until the epoch of the
// slot bound to key changes to a different even value, the slot is
// observed odd (contention), or timeout elapses.
func (r *Region) Poll(key string, timeout time.Duration) error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	encoded := encodeKey(key)
	hash := hashKey(encoded)

	idx, found, _ := r.findSlot(hash, encoded, false)
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	off := slotOffsetAt(idx) + slotOffEpoch

	start := atomicLoadU64At(r.data, off)
	if start%2 != 0 {
		return fmt.Errorf("%w", ErrRetry)
	}

	deadline := time.Now().Add(timeout)
	quantum := pollSleepQuantum * time.Millisecond

	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w", ErrTimeout)
		}

		time.Sleep(quantum)

		cur := atomicLoadU64At(r.data, off)
		if cur%2 != 0 {
			return fmt.Errorf("%w", ErrRetry)
		}

		if cur != start {
			return nil
		}
	}
}
