package splinter

import "fmt"

// TimeMode selects which timestamp field [Region.SetSlotTime] updates.
type TimeMode int

const (
	TimeCtime TimeMode = 0
	TimeAtime TimeMode = 1
)

// SetSlotTime stores epoch-offset into key's ctime or atime field,
// depending on mode. This does not acquire the write lock; the target
// field is independently atomic (spec.md §4.13).
func (r *Region) SetSlotTime(key string, mode TimeMode, epoch, offset uint64) error {
	var fieldOff uint64

	switch mode {
	case TimeCtime:
		fieldOff = slotOffCtime
	case TimeAtime:
		fieldOff = slotOffAtime
	default:
		return fmt.Errorf("%w: unknown time mode %d", ErrInvalidInput, mode)
	}

	return r.mutateSlotField(key, func(idx uint32) {
		atomicStoreU64At(r.data, slotOffsetAt(idx)+fieldOff, epoch-offset)
	})
}
