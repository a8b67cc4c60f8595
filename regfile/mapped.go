// Package regfile stores SCU register contents outside a live target: a
// memory-mapped image file with one word per register, and Intel HEX
// snapshots at the registers' bus addresses.
package regfile

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"aurixclk/scu"
)

// ImageSize is the size in bytes of a register image file
const ImageSize = int(scu.NumRegs) * 4

// Mapped is a register file backed by a memory-mapped image. Word i of the
// image holds register scu.Reg(i), little endian.
type Mapped struct {
	f  *os.File
	mm mmap.MMap
}

// Open maps the image at path, creating or growing the file as needed
func Open(path string) (*Mapped, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() < int64(ImageSize) {
		if err := f.Truncate(int64(ImageSize)); err != nil {
			f.Close()
			return nil, fmt.Errorf("couldn't size %s: %w", path, err)
		}
	}

	mm, err := mmap.MapRegion(f, ImageSize, mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("couldn't map %s: %w", path, err)
	}
	return &Mapped{f: f, mm: mm}, nil
}

// Load implements scu.Registers
func (m *Mapped) Load(r scu.Reg) uint32 {
	if r >= scu.NumRegs {
		return 0
	}
	return binary.LittleEndian.Uint32(m.mm[int(r)*4:])
}

// Store implements scu.Registers
func (m *Mapped) Store(r scu.Reg, v uint32) {
	if r >= scu.NumRegs {
		return
	}
	binary.LittleEndian.PutUint32(m.mm[int(r)*4:], v)
}

// Flush writes the mapping back to the file
func (m *Mapped) Flush() error {
	return m.mm.Flush()
}

// Close unmaps the image and closes the file
func (m *Mapped) Close() error {
	err := m.mm.Unmap()
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
