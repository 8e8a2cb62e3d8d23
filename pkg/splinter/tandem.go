package splinter

import (
	"fmt"
	"strconv"
)

// SetTandem writes base to key base with value vals[0], then writes
// vals[i] to key "base.i" for 1 <= i < len(vals) (spec.md §4.18). This
// is a client-side convenience over repeated [Region.Set] calls; it
// touches no invariant the core does not already enforce per-call.
func (r *Region) SetTandem(base string, vals [][]byte) error {
	for i, v := range vals {
		key := tandemKey(base, i)

		if err := r.Set(key, v); err != nil {
			return fmt.Errorf("tandem %s: %w", key, err)
		}
	}

	return nil
}

// UnsetTandem removes base and base.1 .. base.(orders-1).
func (r *Region) UnsetTandem(base string, orders int) error {
	for i := 0; i < orders; i++ {
		key := tandemKey(base, i)

		if _, err := r.Unset(key); err != nil {
			return fmt.Errorf("tandem %s: %w", key, err)
		}
	}

	return nil
}

func tandemKey(base string, order int) string {
	if order == 0 {
		return base
	}

	return base + tandemSeparator + strconv.Itoa(order)
}
