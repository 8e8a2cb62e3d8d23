package splinter

import "fmt"

// ConfigSet ORs bits into the header's user_flags byte.
func (r *Region) ConfigSet(bits uint32) error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	atomicOrU32At(r.data, offUserFlags, bits)

	return nil
}

// ConfigClear ANDs the complement of bits into the header's user_flags
// byte.
func (r *Region) ConfigClear(bits uint32) error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	atomicAndU32At(r.data, offUserFlags, ^bits)

	return nil
}

// ConfigTest reports whether every bit in bits is set in user_flags.
func (r *Region) ConfigTest(bits uint32) (bool, error) {
	if r.data == nil {
		return false, fmt.Errorf("%w", ErrClosed)
	}

	return atomicLoadU32At(r.data, offUserFlags)&bits == bits, nil
}

// ConfigSnapshot returns the current user_flags byte.
func (r *Region) ConfigSnapshot() (uint32, error) {
	if r.data == nil {
		return 0, fmt.Errorf("%w", ErrClosed)
	}

	return atomicLoadU32At(r.data, offUserFlags), nil
}

// SlotUsrSet ORs bits into key's per-slot user_flag byte.
func (r *Region) SlotUsrSet(key string, bits uint32) error {
	return r.mutateSlotField(key, func(idx uint32) {
		atomicOrU32At(r.data, slotOffsetAt(idx)+slotOffUserFlag, bits)
	})
}

// SlotUsrClear ANDs the complement of bits into key's per-slot user_flag
// byte.
func (r *Region) SlotUsrClear(key string, bits uint32) error {
	return r.mutateSlotField(key, func(idx uint32) {
		atomicAndU32At(r.data, slotOffsetAt(idx)+slotOffUserFlag, ^bits)
	})
}

// SlotUsrTest reports whether every bit in bits is set in key's
// user_flag byte.
func (r *Region) SlotUsrTest(key string, bits uint32) (bool, error) {
	if r.data == nil {
		return false, fmt.Errorf("%w", ErrClosed)
	}

	encoded := encodeKey(key)
	hash := hashKey(encoded)

	idx, found, _ := r.findSlot(hash, encoded, false)
	if !found {
		return false, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return atomicLoadU32At(r.data, slotOffsetAt(idx)+slotOffUserFlag)&bits == bits, nil
}

// SlotUsrSnapshot returns key's current user_flag byte.
func (r *Region) SlotUsrSnapshot(key string) (uint32, error) {
	if r.data == nil {
		return 0, fmt.Errorf("%w", ErrClosed)
	}

	encoded := encodeKey(key)
	hash := hashKey(encoded)

	idx, found, _ := r.findSlot(hash, encoded, false)
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return atomicLoadU32At(r.data, slotOffsetAt(idx)+slotOffUserFlag), nil
}
