package splinter

import "testing"

func Test_ComputeRegionSize_Rejects_Zero_Slots_Or_MaxValSz(t *testing.T) {
	if _, err := computeRegionSize(0, 64); err == nil {
		t.Fatal("computeRegionSize must reject slots == 0")
	}

	if _, err := computeRegionSize(16, 0); err == nil {
		t.Fatal("computeRegionSize must reject max_val_sz == 0")
	}
}

func Test_ComputeRegionSize_Grows_With_Slots_And_MaxValSz(t *testing.T) {
	small, err := computeRegionSize(16, 64)
	if err != nil {
		t.Fatalf("computeRegionSize(16, 64): %v", err)
	}

	large, err := computeRegionSize(32, 128)
	if err != nil {
		t.Fatalf("computeRegionSize(32, 128): %v", err)
	}

	if large <= small {
		t.Fatalf("expected region size to grow with slots and max_val_sz: got %d then %d", small, large)
	}
}

func Test_ComputeRegionSize_Includes_Bump_Region(t *testing.T) {
	const slots, maxValSz = 16, 64

	size, err := computeRegionSize(slots, maxValSz)
	if err != nil {
		t.Fatalf("computeRegionSize: %v", err)
	}

	withoutBump := uint64(headerSize) + uint64(slots)*uint64(slotSize) + uint64(slots)*uint64(maxValSz)

	if size != withoutBump+bumpRegionSize(slots) {
		t.Fatalf("computeRegionSize %d does not equal header+slots+arena+bump (%d)", size, withoutBump+bumpRegionSize(slots))
	}
}

func Test_SlotOffsetAt_Is_Strictly_Increasing_And_Header_Aligned(t *testing.T) {
	if slotOffsetAt(0) != uint64(headerSize) {
		t.Fatalf("slot 0 must start immediately after the header: got %d, want %d", slotOffsetAt(0), headerSize)
	}

	for i := uint32(0); i < 10; i++ {
		if slotOffsetAt(i+1)-slotOffsetAt(i) != uint64(slotSize) {
			t.Fatalf("slot stride must equal slotSize: got %d", slotOffsetAt(i+1)-slotOffsetAt(i))
		}
	}
}

func Test_Atomic_U64_Helpers_Load_Store_CAS_Add(t *testing.T) {
	buf := make([]byte, 16)

	atomicStoreU64At(buf, 0, 42)
	if got := atomicLoadU64At(buf, 0); got != 42 {
		t.Fatalf("load after store: got %d, want 42", got)
	}

	if !atomicCASU64At(buf, 0, 42, 43) {
		t.Fatal("CAS with matching old value must succeed")
	}

	if atomicCASU64At(buf, 0, 42, 44) {
		t.Fatal("CAS with stale old value must fail")
	}

	if got := atomicAddU64At(buf, 0, 10); got != 53 {
		t.Fatalf("add: got %d, want 53", got)
	}
}

func Test_Atomic_U32_Or_And_Helpers_Are_Bit_Precise(t *testing.T) {
	buf := make([]byte, 8)

	atomicOrU32At(buf, 0, 0b0101)
	atomicOrU32At(buf, 0, 0b1010)

	if got := atomicLoadU32At(buf, 0); got != 0b1111 {
		t.Fatalf("after two ORs: got %#b, want %#b", got, 0b1111)
	}

	atomicAndU32At(buf, 0, ^uint32(0b0011))

	if got := atomicLoadU32At(buf, 0); got != 0b1100 {
		t.Fatalf("after AND clearing low bits: got %#b, want %#b", got, 0b1100)
	}
}

func Test_BloomWatchOffsetAt_And_SignalGroupOffsetAt_Do_Not_Overlap(t *testing.T) {
	for b := uint(0); b < signalGroupCount; b++ {
		off := bloomWatchOffsetAt(b)
		if off < offBloomWatches || off+bloomWatchStride > offSignalGroups {
			t.Fatalf("bloom watch %d offset %d escapes its reserved region", b, off)
		}
	}

	for g := uint(0); g < signalGroupCount; g++ {
		off := signalGroupOffsetAt(g)
		if off < offSignalGroups || off+signalGroupStride > headerSize {
			t.Fatalf("signal group %d offset %d escapes its reserved region", g, off)
		}
	}
}
