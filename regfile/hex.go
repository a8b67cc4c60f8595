package regfile

import (
	"encoding/binary"
	"io"

	"github.com/marcinbor85/gohex"

	"aurixclk/scu"
)

// hexLineLength is the data bytes per Intel HEX record
const hexLineLength = 16

// Snapshot holds register values by register
type Snapshot map[scu.Reg]uint32

// Capture reads every register from regs. Reading status registers of a
// live target may have side effects.
func Capture(regs scu.Registers) Snapshot {
	s := make(Snapshot, scu.NumRegs)
	for r := scu.Reg(0); r < scu.NumRegs; r++ {
		s[r] = regs.Load(r)
	}
	return s
}

// Apply stores every value of the snapshot into regs in register order.
// Protected registers of a live target need endinit cleared first.
func (s Snapshot) Apply(regs scu.Registers) {
	for r := scu.Reg(0); r < scu.NumRegs; r++ {
		if v, ok := s[r]; ok {
			regs.Store(r, v)
		}
	}
}

// WriteHex writes the snapshot as Intel HEX, each register at its bus address
func WriteHex(w io.Writer, s Snapshot) error {
	mem := gohex.NewMemory()
	for r := scu.Reg(0); r < scu.NumRegs; r++ {
		v, ok := s[r]
		if !ok {
			continue
		}
		var word [4]byte
		binary.LittleEndian.PutUint32(word[:], v)
		if err := mem.AddBinary(r.Address(), word[:]); err != nil {
			return err
		}
	}
	return mem.DumpIntelHex(w, hexLineLength)
}

// ReadHex parses Intel HEX and returns the registers it fully covers.
// Data at other addresses is ignored.
func ReadHex(rd io.Reader) (Snapshot, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(rd); err != nil {
		return nil, err
	}

	s := make(Snapshot)
	for _, seg := range mem.GetDataSegments() {
		end := uint64(seg.Address) + uint64(len(seg.Data))
		for r := scu.Reg(0); r < scu.NumRegs; r++ {
			addr := uint64(r.Address())
			if addr < uint64(seg.Address) || addr+4 > end {
				continue
			}
			off := addr - uint64(seg.Address)
			s[r] = binary.LittleEndian.Uint32(seg.Data[off : off+4])
		}
	}
	return s, nil
}
