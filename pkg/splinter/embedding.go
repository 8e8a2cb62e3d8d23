package splinter

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SetEmbedding copies a fixed-dimension float32 vector into key's
// embedding area. The embedding is a per-slot region distinct from the
// value arena; it does not consume val_off/val_len.
func (r *Region) SetEmbedding(key string, vec [embedDim]float32) error {
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

	off := slotOffsetAt(idx) + slotOffEmbedding
	for i, f := range vec {
		binary.LittleEndian.PutUint32(r.data[off+uint64(i)*4:off+uint64(i)*4+4], math.Float32bits(f))
	}

	r.endWrite(idx, e)
	r.pulse(idx)

	return nil
}

// readFloat32At reads a little-endian float32 at the given absolute
// byte offset.
func readFloat32At(buf []byte, off uint64) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
}

// GetEmbedding reads key's embedding vector using the seqlock reader
// protocol.
func (r *Region) GetEmbedding(key string) ([embedDim]float32, error) {
	var out [embedDim]float32

	if r.data == nil {
		return out, fmt.Errorf("%w", ErrClosed)
	}

	encoded := encodeKey(key)
	hash := hashKey(encoded)

	idx, found, _ := r.findSlot(hash, encoded, false)
	if !found {
		return out, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	matched := true

	err := r.readSnapshot(idx, func() {
		h := getLE64(r.data, slotOffsetAt(idx)+slotOffHash)
		if h != hash || !r.slotKeyEquals(idx, encoded) {
			matched = false

			return
		}

		off := slotOffsetAt(idx) + slotOffEmbedding
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(r.data[off+uint64(i)*4 : off+uint64(i)*4+4]))
		}
	})
	if err != nil {
		return [embedDim]float32{}, err
	}

	if !matched {
		return [embedDim]float32{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return out, nil
}
