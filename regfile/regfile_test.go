package regfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"aurixclk/scu"
	"aurixclk/sim"
)

func TestMappedPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regs.bin")

	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	m.Store(scu.CCUCON0, 0x12345678)
	m.Store(scu.STM0_TIM0, 42)
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) != ImageSize {
		t.Fatalf("Expected %d bytes, got %d", ImageSize, len(data))
	}
	off := int(scu.CCUCON0) * 4
	if diff := cmp.Diff([]byte{0x78, 0x56, 0x34, 0x12}, data[off:off+4]); diff != "" {
		t.Errorf("CCUCON0 word mismatch (-want +got):\n%s", diff)
	}

	m, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer m.Close()
	if v := m.Load(scu.STM0_TIM0); v != 42 {
		t.Errorf("Expected 42, got %d", v)
	}
}

func TestMappedFrequencyReadback(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "regs.bin"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close()

	// Image of a system running from the PLL at 300MHz
	m.Store(scu.CCUCON0, scu.CCUCON0_CLKSEL.Set(scu.CCUCON0_SRIDIV.Set(0, 1), scu.CLKSEL_Pll))
	m.Store(scu.CCUCON1, scu.CCUCON1_INSEL.Set(0, scu.INSEL_Osc0))
	con0 := scu.PLLCON0_PDIV.Set(0, 1)
	m.Store(scu.PLLCON0, scu.PLLCON0_NDIV.Set(con0, 59))
	m.Store(scu.PLLCON1, scu.PLLCON1_K2DIV.Set(0, 1))

	c := scu.New(m, nil)
	if f := c.SriFrequency(); f < 299999000 || f > 300001000 {
		t.Errorf("Expected fSRI 300MHz, got %v", f)
	}
}

func TestHexRoundTripAtBusAddresses(t *testing.T) {
	b := sim.NewBoard(sim.DefaultConfig())
	c := scu.New(b, b)
	if err := c.Init(scu.DefaultClockConfig()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	snap := Capture(b)
	var buf bytes.Buffer
	if err := WriteHex(&buf, snap); err != nil {
		t.Fatalf("WriteHex failed: %v", err)
	}

	// Extended linear address record for the SCU at 0xF003xxxx
	if !strings.Contains(strings.ToUpper(buf.String()), ":02000004F003") {
		t.Errorf("Expected an extended address record for 0xF003, got:\n%s", buf.String())
	}

	got, err := ReadHex(&buf)
	if err != nil {
		t.Fatalf("ReadHex failed: %v", err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("Snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestReadHexIgnoresPartialWords(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHex(&buf, Snapshot{scu.CCUCON0: 0xAABBCCDD}); err != nil {
		t.Fatalf("WriteHex failed: %v", err)
	}

	s, err := ReadHex(&buf)
	if err != nil {
		t.Fatalf("ReadHex failed: %v", err)
	}
	if diff := cmp.Diff(Snapshot{scu.CCUCON0: 0xAABBCCDD}, s); diff != "" {
		t.Errorf("Snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotApply(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "regs.bin"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close()

	Snapshot{scu.FDR: 7, scu.TRAPDIS: 8}.Apply(m)
	if m.Load(scu.FDR) != 7 || m.Load(scu.TRAPDIS) != 8 {
		t.Errorf("Expected FDR=7 TRAPDIS=8, got %d %d", m.Load(scu.FDR), m.Load(scu.TRAPDIS))
	}
}

func TestReadHexRejectsGarbage(t *testing.T) {
	if _, err := ReadHex(strings.NewReader(":zz\n")); err == nil {
		t.Error("Expected a parse error")
	}
}
