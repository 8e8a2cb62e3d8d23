package splinter

import "fmt"

// SetAutoScrub sets or clears the auto-scrub master bit (spec.md §4.17).
// Clearing it also clears the hybrid bit atomically.
func (r *Region) SetAutoScrub(enabled bool) error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	if enabled {
		atomicOrU32At(r.data, offCoreFlags, coreFlagAutoScrub)
	} else {
		atomicAndU32At(r.data, offCoreFlags, ^(coreFlagAutoScrub | coreFlagHybridScrub))
	}

	return nil
}

// SetHybridScrub sets both the master and hybrid bits in one atomic OR.
func (r *Region) SetHybridScrub() error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	atomicOrU32At(r.data, offCoreFlags, coreFlagAutoScrub|coreFlagHybridScrub)

	return nil
}

// AutoScrub reports whether the auto-scrub master bit is set.
func (r *Region) AutoScrub() (bool, error) {
	if r.data == nil {
		return false, fmt.Errorf("%w", ErrClosed)
	}

	return atomicLoadU32At(r.data, offCoreFlags)&coreFlagAutoScrub != 0, nil
}

// HybridScrub reports whether the hybrid-scrub bit is set.
func (r *Region) HybridScrub() (bool, error) {
	if r.data == nil {
		return false, fmt.Errorf("%w", ErrClosed)
	}

	return atomicLoadU32At(r.data, offCoreFlags)&coreFlagHybridScrub != 0, nil
}

// Purge is a backfill-time maintenance routine (spec.md §4.16): for
// every slot it attempts to acquire the seqlock (skipping any already
// odd), zeroes the full value region of free slots, and zeroes the
// trailing unwritten bytes of occupied slots. It never touches live
// payload bytes. A sidecar advisory lock serializes concurrent purges
// of the same region.
func (r *Region) Purge() error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	lockFile, err := acquirePurgeLock(r.path)
	if err != nil {
		return err
	}
	defer releasePurgeLock(lockFile)

	for idx := uint32(0); idx < r.slots; idx++ {
		epochOff := slotOffsetAt(idx) + slotOffEpoch

		e := atomicLoadU64At(r.data, epochOff)
		if e%2 != 0 {
			continue
		}

		if !atomicCASU64At(r.data, epochOff, e, e+1) {
			continue
		}

		hash := getLE64(r.data, slotOffsetAt(idx)+slotOffHash)
		arenaOff := r.arenaOffsetAt(idx)

		if hash == 0 {
			zero(r.data[arenaOff : arenaOff+uint64(r.maxValSz)])
		} else if !r.inBumpRegion(idx) {
			valLen := atomicLoadU32At(r.data, slotOffsetAt(idx)+slotOffValLen)
			if valLen < r.maxValSz {
				zero(r.data[arenaOff+uint64(valLen) : arenaOff+uint64(r.maxValSz)])
			}
		}

		atomicStoreU64At(r.data, epochOff, e+2)
	}

	return nil
}
