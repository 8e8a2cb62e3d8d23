package splinter

import (
	"encoding/binary"
	"fmt"
)

// SetNamedType declares key's payload semantics. Only BIGUINT is
// enforced by the core (spec.md §4.12): if the slot's current value is
// shorter than 8 bytes, it is relocated into the region's bump tail and
// converted, either by parsing a leading ASCII decimal numeral or by
// zero-extending the raw bytes. Other type flags are advisory and are
// simply recorded.
func (r *Region) SetNamedType(key string, mask uint32) error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	encoded := encodeKey(key)
	hash := hashKey(encoded)

	idx, found, _ := r.findSlot(hash, encoded, false)
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	e, acquired := r.beginWrite(idx)
	if !acquired {
		return fmt.Errorf("%w", ErrRetry)
	}

	h := getLE64(r.data, slotOffsetAt(idx)+slotOffHash)
	if h != hash || !r.slotKeyEquals(idx, encoded) {
		r.abortWrite(idx, e)

		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if mask&TypeBigUint != 0 {
		curLen := int(atomicLoadU32At(r.data, slotOffsetAt(idx)+slotOffValLen))

		if curLen < 8 {
			if err := r.convertToBiguint(idx); err != nil {
				r.abortWrite(idx, e)

				return err
			}
		}
	}

	atomicStoreU32At(r.data, slotOffsetAt(idx)+slotOffTypeFlag, mask)

	r.endWrite(idx, e)
	r.pulse(idx)

	return nil
}

// convertToBiguint relocates idx's payload into the bump region and
// converts it to an 8-byte native unsigned integer, per the digit-parse-
// or-raw-copy policy of spec.md §4.12. Caller holds the write lock.
func (r *Region) convertToBiguint(idx uint32) error {
	brk := atomicAddU64At(r.data, offValBrk, 8) - 8

	newOff := r.bumpBase() + brk
	if newOff+8 > r.valSz {
		// The reservation is not undone: the bump counter only grows,
		// per the arena's no-compaction policy, so the 8 bytes are
		// abandoned rather than returned.
		return fmt.Errorf("%w: bump region exhausted", ErrNoSpace)
	}

	curOff := r.valueOffsetAt(idx)
	curLen := int(atomicLoadU32At(r.data, slotOffsetAt(idx)+slotOffValLen))

	var converted uint64

	if curLen > 0 && r.data[curOff] >= '0' && r.data[curOff] <= '9' {
		n := curLen
		if n > 15 {
			n = 15
		}

		var v uint64

		for i := 0; i < n; i++ {
			c := r.data[curOff+uint64(i)]
			if c < '0' || c > '9' {
				break
			}

			v = v*10 + uint64(c-'0')
		}

		converted = v
	} else {
		var raw [8]byte

		n := curLen
		if n > 8 {
			n = 8
		}

		copy(raw[:n], r.data[curOff:curOff+uint64(n)])
		converted = binary.LittleEndian.Uint64(raw[:])
	}

	var encoded [8]byte
	binary.LittleEndian.PutUint64(encoded[:], converted)
	copy(r.data[newOff:newOff+8], encoded[:])

	putLE32(r.data, slotOffsetAt(idx)+slotOffValOff, uint32(newOff-r.arenaOffsetAt(0)))
	atomicStoreU32At(r.data, slotOffsetAt(idx)+slotOffValLen, 8)

	return nil
}

// RecordParseFailure bumps the header's parse_failures counter and sets
// last_failure_epoch to the current global epoch. The core never calls
// this itself (spec.md §7, §9's open question on parse-failure
// diagnostics): parse_failures and last_failure_epoch exist purely for an
// external harness that wants to record structured failures, such as a
// client that called [Region.SetNamedType] and wants to flag that the
// payload it converted was not a clean decimal numeral.
func (r *Region) RecordParseFailure() error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	atomicAddU64At(r.data, offParseFailures, 1)
	atomicStoreU64At(r.data, offLastFailureEpoch, atomicLoadU64At(r.data, offEpoch))

	return nil
}
