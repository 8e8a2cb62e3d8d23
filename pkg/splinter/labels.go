package splinter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// LabelRegistry is a client-side convenience mapping human-readable
// label names to the bloom-bit indices used by [Region.SetLabel] and
// [Region.WatchLabelRegister]. The core itself has no notion of label
// names; this is bookkeeping a process keeps alongside a region so that
// multiple cooperating clients agree on which bit means what.
type LabelRegistry struct {
	path   string
	labels map[string]uint
}

// OpenLabelRegistry loads a label registry from path, starting empty if
// the file does not yet exist.
func OpenLabelRegistry(path string) (*LabelRegistry, error) {
	reg := &LabelRegistry{path: path, labels: map[string]uint{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}

		return nil, fmt.Errorf("read label registry: %w", err)
	}

	if err := json.Unmarshal(data, &reg.labels); err != nil {
		return nil, fmt.Errorf("%w: malformed label registry: %v", ErrFormat, err)
	}

	return reg, nil
}

// Bit returns the bloom-bit index registered for name, or ErrNotFound.
func (l *LabelRegistry) Bit(name string) (uint, error) {
	bit, ok := l.labels[name]
	if !ok {
		return 0, fmt.Errorf("%w: label %q", ErrNotFound, name)
	}

	return bit, nil
}

// Register assigns name to bit, overwriting any prior assignment, and
// persists the registry to disk via an atomic rename so concurrent
// readers never observe a partially written file.
func (l *LabelRegistry) Register(name string, bit uint) error {
	if bit >= signalGroupCount {
		return fmt.Errorf("%w: bit %d out of range", ErrInvalidInput, bit)
	}

	l.labels[name] = bit

	data, err := json.MarshalIndent(l.labels, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal label registry: %w", err)
	}

	if err := atomic.WriteFile(l.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write label registry: %w", err)
	}

	return nil
}
