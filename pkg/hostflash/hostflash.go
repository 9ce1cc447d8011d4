// Package hostflash is an in-RAM double for image.FlashIO, modelling the
// erased-as-0xFF and sector/page write semantics of real flash without
// touching hardware. It backs every pkg/image and pkg/boot test, and the
// cmd/bootctl host harness in both its serial-port and -sim-image modes.
//
// Grounded on Design Note §9: "Inline-macro toggles for dry-run vs. real
// flash... replace with an interface that admits a no-op implementation for
// host-side tests" — this is that implementation, not a no-op, so tests can
// assert on the resulting flash contents.
package hostflash

import (
	"fmt"
)

// Flash is a byte-addressable RAM buffer standing in for the XIP-mapped
// flash chip. Offsets are flash-internal (relative to the device's XIP
// base), matching image.FlashIO's contract.
type Flash struct {
	mem        []byte
	sectorSize uint32
	pageSize   uint32

	erases   []Span
	programs []Span
}

// Span records one erase or program operation's offset and length, so tests
// can assert on the exact sequence of flash operations the core performed.
type Span struct {
	Offset uint32
	Length uint32
}

// New allocates a Flash of the given size, pre-filled as erased (all-ones).
func New(size, sectorSize, pageSize uint32) *Flash {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &Flash{mem: mem, sectorSize: sectorSize, pageSize: pageSize}
}

// EraseSectors implements image.FlashIO.
func (f *Flash) EraseSectors(offset, length uint32) error {
	if offset%f.sectorSize != 0 || length%f.sectorSize != 0 {
		return fmt.Errorf("hostflash: erase offset/length must be sector-aligned, got offset=%d length=%d", offset, length)
	}
	if err := f.bounds(offset, length); err != nil {
		return err
	}
	for i := offset; i < offset+length; i++ {
		f.mem[i] = 0xFF
	}
	f.erases = append(f.erases, Span{offset, length})
	return nil
}

// Program implements image.FlashIO.
func (f *Flash) Program(offset uint32, data []byte) error {
	if offset%f.pageSize != 0 {
		return fmt.Errorf("hostflash: program offset must be page-aligned, got %d", offset)
	}
	if uint32(len(data))%f.pageSize != 0 {
		return fmt.Errorf("hostflash: program length must be a multiple of the page size, got %d", len(data))
	}
	if err := f.bounds(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(f.mem[offset:], data)
	f.programs = append(f.programs, Span{offset, uint32(len(data))})
	return nil
}

// Read implements image.FlashIO.
func (f *Flash) Read(offset, length uint32) ([]byte, error) {
	if err := f.bounds(offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, f.mem[offset:offset+length])
	return out, nil
}

func (f *Flash) bounds(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(f.mem)) {
		return fmt.Errorf("hostflash: access [%d, %d) out of range (size %d)", offset, offset+length, len(f.mem))
	}
	return nil
}

// Contents returns a copy of the full flash image, for test assertions.
func (f *Flash) Contents() []byte {
	out := make([]byte, len(f.mem))
	copy(out, f.mem)
	return out
}

// Erases returns every erase Span performed, in order.
func (f *Flash) Erases() []Span { return f.erases }

// Programs returns every program Span performed, in order.
func (f *Flash) Programs() []Span { return f.programs }
