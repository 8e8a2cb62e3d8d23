package splinter

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// pageSize is the system page size, used for aligning msync ranges.
var pageSize = unix.Getpagesize()

// Region is a mapped splinter manifold. It is safe for concurrent use by
// multiple goroutines; see the package doc for the cross-process
// concurrency model.
type Region struct {
	fd   int
	data []byte
	path string

	slots    uint32
	maxValSz uint32
	valSz    uint64
}

// bumpBase returns the byte offset where the BIGUINT-conversion bump
// region begins: immediately after the value arena.
func (r *Region) bumpBase() uint64 {
	return uint64(headerSize) + uint64(r.slots)*uint64(slotSize) + uint64(r.slots)*uint64(r.maxValSz)
}

// Create maps a new splinter region backed by the file at path, failing
// with [ErrExists] if the file already exists. slots is the fixed slot
// table capacity and maxValSz is the per-slot value capacity in bytes.
func Create(path string, slots, maxValSz uint32) (*Region, error) {
	if err := checkPlatform(); err != nil {
		return nil, err
	}

	size, err := computeRegionSize(slots, maxValSz)
	if err != nil {
		return nil, err
	}

	fd, err := syscall.Open(path, syscall.O_RDWR|syscall.O_CREAT|syscall.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, syscall.EEXIST) {
			return nil, fmt.Errorf("%w: %s", ErrExists, path)
		}

		return nil, fmt.Errorf("open: %w", err)
	}

	if err := syscall.Ftruncate(fd, int64(size)); err != nil {
		_ = syscall.Close(fd)
		_ = syscall.Unlink(path)

		return nil, fmt.Errorf("ftruncate: %w", err)
	}

	region, err := mmapRegion(fd, size)
	if err != nil {
		_ = syscall.Close(fd)
		_ = syscall.Unlink(path)

		return nil, err
	}

	region.initHeader(slots, maxValSz, size)
	region.initSlots(slots, maxValSz)

	region.slots = slots
	region.maxValSz = maxValSz
	region.valSz = size
	region.path = path

	return region, nil
}

// Open maps an existing splinter region backed by the file at path,
// validating its magic and version. Returns [ErrFormat] if the file is
// not a splinter region, too small, or of an incompatible version.
func Open(path string) (*Region, error) {
	if err := checkPlatform(); err != nil {
		return nil, err
	}

	fd, err := syscall.Open(path, syscall.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, syscall.ENOENT) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("open: %w", err)
	}

	var stat syscall.Stat_t
	if err := syscall.Fstat(fd, &stat); err != nil {
		_ = syscall.Close(fd)

		return nil, fmt.Errorf("fstat: %w", err)
	}

	if stat.Size < headerSize {
		_ = syscall.Close(fd)

		return nil, fmt.Errorf("%w: file too small to hold a header", ErrFormat)
	}

	region, err := mmapRegion(fd, uint64(stat.Size))
	if err != nil {
		_ = syscall.Close(fd)

		return nil, err
	}

	if err := region.validateHeader(uint64(stat.Size)); err != nil {
		_ = syscall.Munmap(region.data)
		_ = syscall.Close(fd)

		return nil, err
	}

	region.slots = getLE32(region.data, offSlots)
	region.maxValSz = getLE32(region.data, offMaxValSz)
	region.valSz = getLE64(region.data, offValSz)
	region.path = path

	return region, nil
}

// OpenOrCreate opens path if it exists, creating it with the given slots
// and maxValSz otherwise.
func OpenOrCreate(path string, slots, maxValSz uint32) (*Region, error) {
	region, err := Open(path)
	if err == nil {
		return region, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	region, err = Create(path, slots, maxValSz)
	if err != nil && errors.Is(err, ErrExists) {
		// Lost a race with a concurrent creator; fall back to opening
		// what they created.
		return Open(path)
	}

	return region, err
}

// CreateOrOpen creates path with the given slots and maxValSz, falling
// back to opening it if it already exists.
func CreateOrOpen(path string, slots, maxValSz uint32) (*Region, error) {
	region, err := Create(path, slots, maxValSz)
	if err == nil {
		return region, nil
	}

	if !errors.Is(err, ErrExists) {
		return nil, err
	}

	return Open(path)
}

// Close unmaps the region and closes its file descriptor. Close does not
// remove the backing file; other processes may still have it mapped.
func (r *Region) Close() error {
	if r.data == nil {
		return fmt.Errorf("%w", ErrClosed)
	}

	err := syscall.Munmap(r.data)
	r.data = nil

	if closeErr := syscall.Close(r.fd); closeErr != nil && err == nil {
		err = closeErr
	}

	return err
}

// checkPlatform rejects architectures this package's atomic word casts
// cannot safely support.
func checkPlatform() error {
	// 64-bit required: the seqlock protocol and several header counters
	// use atomic 64-bit load/store on mmap'd memory, which needs 64-bit
	// atomicity guarantees not universally available on 32-bit platforms.
	if !is64Bit {
		return fmt.Errorf("%w: splinter requires a 64-bit architecture", ErrInvalidInput)
	}

	// Little-endian required: the on-disk format is fixed little-endian,
	// but atomic fields are read back through native-order unsafe.Pointer
	// casts rather than encoding/binary, so a big-endian host would
	// misinterpret them.
	if !isLittleEndian {
		return fmt.Errorf("%w: splinter requires a little-endian CPU", ErrInvalidInput)
	}

	return nil
}

func mmapRegion(fd int, size uint64) (*Region, error) {
	data, err := syscall.Mmap(fd, 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}

	return &Region{fd: fd, data: data}, nil
}

func (r *Region) initHeader(slots, maxValSz uint32, size uint64) {
	putLE32(r.data, offMagic, splinterMagic)
	putLE32(r.data, offVersion, splinterVersion)
	putLE32(r.data, offSlots, slots)
	putLE32(r.data, offMaxValSz, maxValSz)
	putLE64(r.data, offValSz, size)
	putLE32(r.data, offAlignment, splinterAlign)

	for i := uint(0); i < signalGroupCount; i++ {
		putLE32(r.data, bloomWatchOffsetAt(i), bloomWatchSentinel)
		atomicStoreU64At(r.data, signalGroupOffsetAt(i), 0)
	}
}

func (r *Region) initSlots(slots, maxValSz uint32) {
	for i := uint32(0); i < slots; i++ {
		off := slotOffsetAt(i)
		putLE64(r.data, off+slotOffHash, 0)
		atomicStoreU64At(r.data, off+slotOffEpoch, 0)
		putLE32(r.data, off+slotOffValOff, i*maxValSz)
		atomicStoreU32At(r.data, off+slotOffValLen, 0)
		atomicStoreU32At(r.data, off+slotOffTypeFlag, defaultTypeFlag)
		atomicStoreU32At(r.data, off+slotOffUserFlag, 0)
		atomicStoreU64At(r.data, off+slotOffCtime, 0)
		atomicStoreU64At(r.data, off+slotOffAtime, 0)
		atomicStoreU64At(r.data, off+slotOffWatcherMask, 0)
		atomicStoreU64At(r.data, off+slotOffBloom, 0)
	}
}

func (r *Region) validateHeader(fileSize uint64) error {
	if getLE32(r.data, offMagic) != splinterMagic {
		return fmt.Errorf("%w: bad magic", ErrFormat)
	}

	if getLE32(r.data, offVersion) != splinterVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrFormat, getLE32(r.data, offVersion))
	}

	slots := getLE32(r.data, offSlots)
	maxValSz := getLE32(r.data, offMaxValSz)

	want, err := computeRegionSize(slots, maxValSz)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}

	if want != fileSize {
		return fmt.Errorf("%w: region size %d does not match header (expected %d)", ErrFormat, fileSize, want)
	}

	return nil
}

// arenaOffsetAt returns the byte offset of slot i's canonical value
// partition within the mapped region: where its payload lives unless
// [Region.SetNamedType] has relocated it into the bump tail.
func (r *Region) arenaOffsetAt(i uint32) uint64 {
	return uint64(headerSize) + uint64(r.slots)*uint64(slotSize) + uint64(i)*uint64(r.maxValSz)
}

// valueOffsetAt returns the slot's current absolute payload offset,
// honoring a prior BIGUINT relocation.
func (r *Region) valueOffsetAt(idx uint32) uint64 {
	relOff := getLE32(r.data, slotOffsetAt(idx)+slotOffValOff)
	return r.arenaOffsetAt(0) + uint64(relOff)
}

// inBumpRegion reports whether idx's payload currently lives in the
// BIGUINT-conversion bump tail rather than its canonical partition.
func (r *Region) inBumpRegion(idx uint32) bool {
	relOff := getLE32(r.data, slotOffsetAt(idx)+slotOffValOff)
	return uint64(relOff) >= uint64(r.slots)*uint64(r.maxValSz)
}

// resetValueOffset restores idx's val_off to its canonical partition,
// undoing any BIGUINT relocation. Caller holds the write lock.
func (r *Region) resetValueOffset(idx uint32) {
	canonical := uint32(idx) * r.maxValSz
	putLE32(r.data, slotOffsetAt(idx)+slotOffValOff, canonical)
}

// sync flushes dirty pages of the region to the backing file.
func (r *Region) sync() error {
	alignedLen := (len(r.data) + pageSize - 1) / pageSize * pageSize
	if alignedLen > len(r.data) {
		alignedLen = len(r.data)
	}

	return unix.Msync(r.data[:alignedLen], unix.MS_ASYNC)
}
