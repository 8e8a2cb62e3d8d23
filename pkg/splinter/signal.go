package splinter

import "fmt"

// pulse runs the change-notification routine for the slot at idx after a
// committed write (spec.md §4.9). It is called with the slot already
// quiescent (even epoch) and does not itself need the write lock: every
// field it reads is independently atomic and overcounting is an accepted
// contract (signal-arena overcounting, spec.md §9).
func (r *Region) pulse(idx uint32) {
	mask := atomicLoadU64At(r.data, slotOffsetAt(idx)+slotOffWatcherMask)
	for bit := uint(0); bit < 64; bit++ {
		if mask&(1<<bit) != 0 {
			atomicAddU64At(r.data, signalGroupOffsetAt(bit), 1)
		}
	}

	bloom := atomicLoadU64At(r.data, slotOffsetAt(idx)+slotOffBloom)
	for bit := uint(0); bit < 64; bit++ {
		if bloom&(1<<bit) == 0 {
			continue
		}

		group := atomicLoadU32At(r.data, bloomWatchOffsetAt(bit))
		if group == bloomWatchSentinel {
			continue
		}

		atomicAddU64At(r.data, signalGroupOffsetAt(uint(group)), 1)
	}
}

// WatchRegister sets bit groupID in key's watcher_mask so that future
// writes to key pulse signal group groupID.
func (r *Region) WatchRegister(key string, groupID uint) error {
	if groupID >= signalGroupCount {
		return fmt.Errorf("%w: group id %d out of range", ErrInvalidInput, groupID)
	}

	return r.mutateSlotField(key, func(idx uint32) {
		off := slotOffsetAt(idx) + slotOffWatcherMask
		for {
			old := atomicLoadU64At(r.data, off)
			if atomicCASU64At(r.data, off, old, old|(1<<groupID)) {
				return
			}
		}
	})
}

// WatchUnregister clears bit groupID in key's watcher_mask.
func (r *Region) WatchUnregister(key string, groupID uint) error {
	if groupID >= signalGroupCount {
		return fmt.Errorf("%w: group id %d out of range", ErrInvalidInput, groupID)
	}

	return r.mutateSlotField(key, func(idx uint32) {
		off := slotOffsetAt(idx) + slotOffWatcherMask
		for {
			old := atomicLoadU64At(r.data, off)
			if atomicCASU64At(r.data, off, old, old&^(1<<groupID)) {
				return
			}
		}
	})
}

// WatchLabelRegister stores groupID into bloom_watches[i] for each bit i
// set in mask (spec.md §4.9). Overlapping registrations overwrite.
func (r *Region) WatchLabelRegister(mask uint64, groupID uint8) error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	for bit := uint(0); bit < 64; bit++ {
		if mask&(1<<bit) != 0 {
			atomicStoreU32At(r.data, bloomWatchOffsetAt(bit), uint32(groupID))
		}
	}

	return nil
}

// GetSignalCount returns signal group groupID's current pulse counter.
func (r *Region) GetSignalCount(groupID uint) (uint64, error) {
	if r.data == nil {
		return 0, fmt.Errorf("%w", ErrClosed)
	}

	if groupID >= signalGroupCount {
		return 0, fmt.Errorf("%w: group id %d out of range", ErrInvalidInput, groupID)
	}

	return atomicLoadU64At(r.data, signalGroupOffsetAt(groupID)), nil
}

// SetLabel ORs mask into key's bloom label set and bumps the global
// epoch. Labels are additive only; clearing requires recreating the
// slot (spec.md §4.10).
func (r *Region) SetLabel(key string, mask uint64) error {
	err := r.mutateSlotField(key, func(idx uint32) {
		off := slotOffsetAt(idx) + slotOffBloom
		for {
			old := atomicLoadU64At(r.data, off)
			if atomicCASU64At(r.data, off, old, old|mask) {
				return
			}
		}
	})
	if err != nil {
		return err
	}

	atomicAddU64At(r.data, offEpoch, 1)

	return nil
}

// mutateSlotField locates key's slot and runs fn on it without acquiring
// the seqlock. Used for fields that are independently atomic
// (watcher_mask, bloom, ctime/atime, user_flag), so fn may run while
// another writer holds the slot's write lock.
func (r *Region) mutateSlotField(key string, fn func(idx uint32)) error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	encoded := encodeKey(key)
	hash := hashKey(encoded)

	idx, found, _ := r.findSlot(hash, encoded, false)
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	fn(idx)

	return nil
}
