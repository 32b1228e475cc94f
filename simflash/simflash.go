// Package simflash stands in for the embedder-supplied flash driver: a
// RAM-backed NOR flash simulator that enforces the bit-clear-only program
// contract, a file-backed variant for CLI tools, and crash injection for
// exercising power-loss tolerance.
package simflash

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dsoprea/go-logging"
	"github.com/natefinch/atomic"
)

// Memory is an in-memory Flash implementation. Every byte starts at 0xFF;
// Program enforces that a program call may only clear bits, returning an
// error and leaving the device unchanged if the caller tries to set a
// cleared bit back to 1.
type Memory struct {
	bytes      []byte
	sectorSize uint32

	primitiveCount int
	crashAfter     int // 0 means "never"
}

// NewMemory allocates a Memory device of the given size, erased to 0xFF.
func NewMemory(size int, sectorSize uint32) *Memory {
	m := &Memory{
		bytes:      make([]byte, size),
		sectorSize: sectorSize,
	}
	for i := range m.bytes {
		m.bytes[i] = 0xFF
	}
	return m
}

// WithCrashAfter returns m configured to panic with a "simulated power
// loss" message string after its n-th Program/EraseSector call, simulating power loss after
// any individual flash program or erase. n == 0 disables injection.
func (m *Memory) WithCrashAfter(n int) *Memory {
	m.crashAfter = n
	m.primitiveCount = 0
	return m
}

// PrimitiveCount returns how many Program/EraseSector calls have completed
// since the device was created or last reconfigured with WithCrashAfter.
func (m *Memory) PrimitiveCount() int {
	return m.primitiveCount
}

func (m *Memory) tickAndMaybeCrash(label string) {
	m.primitiveCount++
	if m.crashAfter != 0 && m.primitiveCount == m.crashAfter {
		panic(fmt.Sprintf("simflash: simulated power loss after %s (call #%d)", label, m.primitiveCount))
	}
}

// SectorSize returns the erase granularity.
func (m *Memory) SectorSize() uint32 {
	return m.sectorSize
}

// ReadAt reads len(dst) bytes starting at addr.
func (m *Memory) ReadAt(addr uint32, dst []byte) error {
	if uint64(addr)+uint64(len(dst)) > uint64(len(m.bytes)) {
		return log.Errorf("simflash: read [0x%x, 0x%x) out of bounds (device size %d)", addr, uint64(addr)+uint64(len(dst)), len(m.bytes))
	}
	copy(dst, m.bytes[addr:uint64(addr)+uint64(len(dst))])
	return nil
}

// Program writes src at addr, returning an error without writing anything
// if any bit would transition 0→1.
func (m *Memory) Program(addr uint32, src []byte) error {
	end := uint64(addr) + uint64(len(src))
	if end > uint64(len(m.bytes)) {
		return log.Errorf("simflash: program [0x%x, 0x%x) out of bounds (device size %d)", addr, end, len(m.bytes))
	}

	for i, b := range src {
		existing := m.bytes[uint64(addr)+uint64(i)]
		if existing&b != b {
			return log.Errorf("simflash: illegal program at 0x%x: existing byte 0x%02x cannot become 0x%02x without an erase", uint64(addr)+uint64(i), existing, b)
		}
	}

	copy(m.bytes[addr:end], src)

	m.tickAndMaybeCrash("program")

	return nil
}

// EraseSector erases the sector containing addr to all-0xFF.
func (m *Memory) EraseSector(addr uint32) error {
	sectorStart := (addr / m.sectorSize) * m.sectorSize
	sectorEnd := sectorStart + m.sectorSize

	if uint64(sectorEnd) > uint64(len(m.bytes)) {
		return log.Errorf("simflash: erase sector at 0x%x out of bounds (device size %d)", addr, len(m.bytes))
	}

	for i := sectorStart; i < sectorEnd; i++ {
		m.bytes[i] = 0xFF
	}

	m.tickAndMaybeCrash("erase")

	return nil
}

// Snapshot persists the whole simulated device to path via
// github.com/natefinch/atomic, so a crash-injection run can restore the
// exact pre-crash byte image rather than re-running the setup sequence.
func (m *Memory) Snapshot(path string) error {
	return atomic.WriteFile(path, bytes.NewReader(m.bytes))
}

// RestoreMemory loads a device image previously written by Snapshot.
func RestoreMemory(path string, sectorSize uint32) (*Memory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, log.Wrap(err)
	}

	return &Memory{bytes: raw, sectorSize: sectorSize}, nil
}

// File is a file-backed Flash implementation for cmd/ tools: the same
// bit-clear semantics as Memory, but durable between process invocations,
// with each flush retried against transient OS-level write errors via
// github.com/cenkalti/backoff/v5 — it's the underlying *os.File that can
// be flaky here (short writes, EINTR-class errors), never the emulated
// flash's own bit-clear contract.
type File struct {
	f          *os.File
	sectorSize uint32
	size       int64
}

// OpenFile opens (creating if necessary) a file-backed flash image of the
// given size, erased to 0xFF on first creation.
func OpenFile(path string, size int64, sectorSize uint32) (*File, error) {
	existing, statErr := os.Stat(path)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, log.Wrap(err)
	}

	ff := &File{f: f, sectorSize: sectorSize, size: size}

	if statErr != nil || existing.Size() != size {
		if err := f.Truncate(size); err != nil {
			return nil, log.Wrap(err)
		}

		blank := make([]byte, size)
		for i := range blank {
			blank[i] = 0xFF
		}
		if err := ff.flush(0, blank); err != nil {
			return nil, err
		}
	}

	return ff, nil
}

// Close closes the backing file.
func (f *File) Close() error {
	return f.f.Close()
}

// SectorSize returns the erase granularity.
func (f *File) SectorSize() uint32 {
	return f.sectorSize
}

// ReadAt reads len(dst) bytes starting at addr.
func (f *File) ReadAt(addr uint32, dst []byte) error {
	_, err := f.f.ReadAt(dst, int64(addr))
	if err != nil {
		return log.Wrap(err)
	}
	return nil
}

// Program writes src at addr, enforcing the bit-clear-only contract the
// same way Memory does, then flushes through a bounded retry.
func (f *File) Program(addr uint32, src []byte) error {
	existing := make([]byte, len(src))
	if err := f.ReadAt(addr, existing); err != nil {
		return err
	}

	for i, b := range src {
		if existing[i]&b != b {
			return log.Errorf("simflash: illegal program at 0x%x: existing byte 0x%02x cannot become 0x%02x without an erase", uint64(addr)+uint64(i), existing[i], b)
		}
	}

	return f.flush(addr, src)
}

// EraseSector erases the sector containing addr to all-0xFF.
func (f *File) EraseSector(addr uint32) error {
	sectorStart := (addr / f.sectorSize) * f.sectorSize

	blank := make([]byte, f.sectorSize)
	for i := range blank {
		blank[i] = 0xFF
	}

	return f.flush(sectorStart, blank)
}

// flush writes buf at offset, retrying transient short-write/OS errors
// with a bounded exponential backoff.
func (f *File) flush(offset uint32, buf []byte) error {
	op := func() (struct{}, error) {
		n, err := f.f.WriteAt(buf, int64(offset))
		if err != nil {
			return struct{}{}, err
		}
		if n != len(buf) {
			return struct{}{}, log.Errorf("simflash: short write (%d of %d bytes) at 0x%x", n, len(buf), offset)
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(context.Background(), op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
		backoff.WithMaxElapsedTime(2*time.Second),
	)
	if err != nil {
		return log.Wrap(err)
	}

	return f.f.Sync()
}
