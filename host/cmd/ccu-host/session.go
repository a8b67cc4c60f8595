package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"aurixclk/host/monitor"
	"aurixclk/regfile"
	"aurixclk/scu"
)

var (
	errQuit     = errors.New("quit")
	errReadOnly = errors.New("not available on a register image")
)

// ANSI colors, rendered on Windows consoles by go-colorable
const (
	colorReset = "\x1b[0m"
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorGray  = "\x1b[90m"
)

// linkFailure carries a transport error out of a CCU busy-wait
type linkFailure struct {
	err error
}

// session runs commands against one target
type session struct {
	out io.Writer

	ccu    *scu.Ccu
	regs   scu.Registers
	wdt    scu.Watchdog    // nil for register images
	client *monitor.Client // nil unless the target is remote

	clock *scu.ClockConfig
	eray  *scu.ErayPllConfig
}

func newSession(out io.Writer, regs scu.Registers, wdt scu.Watchdog, client *monitor.Client) *session {
	s := &session{
		out:    out,
		ccu:    scu.New(regs, wdt),
		regs:   regs,
		wdt:    wdt,
		client: client,
		clock:  scu.DefaultClockConfig(),
		eray:   scu.DefaultErayPllConfig(),
	}

	if client != nil {
		s.ccu.SetTimer(client)
		// The CCU spins on status bits with no way out; a dead link
		// would keep it there forever
		s.ccu.SetPollHook(func() {
			if err := client.Err(); err != nil {
				panic(linkFailure{err})
			}
		})
	}
	return s
}

// setVerbose routes CCU debug messages to the output
func (s *session) setVerbose(on bool) {
	if !on {
		s.ccu.SetDebugWriter(nil)
		return
	}
	s.ccu.SetDebugWriter(func(msg string) {
		fmt.Fprintf(s.out, "%s%s%s\n", colorGray, msg, colorReset)
	})
}

// execute runs one command line. It returns errQuit for quit.
func (s *session) execute(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		s.printHelp()
		return nil
	case "solve":
		return s.solve(args)
	case "init":
		return s.guard(s.init)
	case "backup":
		return s.guard(s.backup)
	case "eray":
		return s.guard(s.initEray)
	case "freq":
		return s.guard(s.printFrequencies)
	case "reg":
		return s.guard(func() error { return s.reg(args) })
	case "save":
		if len(args) != 1 {
			return fmt.Errorf("usage: save <file.hex>")
		}
		return s.guard(func() error { return s.save(args[0]) })
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// guard runs fn and turns a link failure during a CCU sequence into an error
func (s *session) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			lf, ok := r.(linkFailure)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("link failed: %w", lf.err)
		}
	}()

	err = fn()
	if s.client != nil {
		if lerr := s.client.Err(); lerr != nil {
			return fmt.Errorf("link failed: %w", lerr)
		}
	}
	return err
}

func (s *session) printHelp() {
	fmt.Fprintln(s.out, "\nAvailable commands:")
	fmt.Fprintln(s.out, "  solve <fPLL> [fOSC]  - Solve PLL dividers (without fOSC the plan is applied)")
	fmt.Fprintln(s.out, "  init                 - Bring the system PLL up")
	fmt.Fprintln(s.out, "  backup               - Switch to the backup clock")
	fmt.Fprintln(s.out, "  eray                 - Bring the E-Ray PLL up")
	fmt.Fprintln(s.out, "  freq                 - Print clock frequencies")
	fmt.Fprintln(s.out, "  reg <name> [value]   - Read or write a register")
	fmt.Fprintln(s.out, "  save <file.hex>      - Save all registers as Intel HEX")
	fmt.Fprintln(s.out, "  quit/exit/q          - Exit the program")
	fmt.Fprintln(s.out)
}

// parseHz accepts plain and exponent notation ("300000000", "300e6")
func parseHz(s string) (uint32, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f > 0xFFFFFFFF {
		return 0, fmt.Errorf("invalid frequency %q", s)
	}
	return uint32(f), nil
}

func (s *session) solve(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: solve <fPLL> [fOSC]")
	}
	fPll, err := parseHz(args[0])
	if err != nil {
		return err
	}
	fOsc := s.clock.XtalFrequency
	if len(args) == 2 {
		if fOsc, err = parseHz(args[1]); err != nil {
			return err
		}
	}

	d, err := scu.SolvePllDividers(fOsc, fPll)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "P=%d N=%d K2=%d  fPLL=%.3f MHz  error=%d\n",
		d.P, d.N, d.K2, d.Frequency(fOsc)/1e6, d.Error)

	if len(args) == 1 {
		if err := scu.CalculateSysPllDividers(s.clock, fPll); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Applied to the clock configuration (no ramp)")
	}
	return nil
}

func (s *session) init() error {
	if s.wdt == nil {
		return errReadOnly
	}
	s.ccu.SetXtalFrequency(s.clock.XtalFrequency)
	if err := s.ccu.Init(s.clock); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%sState %s, fPLL=%.3f MHz%s\n",
		colorGreen, s.ccu.State(), s.ccu.PllFrequency()/1e6, colorReset)
	return nil
}

func (s *session) backup() error {
	if s.wdt == nil {
		return errReadOnly
	}
	s.ccu.SwitchToBackupClock(s.clock)
	fmt.Fprintf(s.out, "State %s, fSOURCE=%.3f MHz\n", s.ccu.State(), s.ccu.SourceFrequency()/1e6)
	return nil
}

func (s *session) initEray() error {
	if s.wdt == nil {
		return errReadOnly
	}
	if err := s.ccu.InitErayPll(s.eray); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%sfPLLERAY=%.3f MHz%s\n", colorGreen, s.ccu.PllErayFrequency()/1e6, colorReset)
	return nil
}

func (s *session) printFrequencies() error {
	f := s.ccu.Frequencies()
	rows := []struct {
		name string
		hz   float32
	}{
		{"source", f.Source},
		{"pll", f.Pll},
		{"pll-vco", f.PllVco},
		{"pll2", f.Pll2},
		{"pll-eray", f.PllEray},
		{"max", f.Max},
		{"sri", f.Sri},
		{"spb", f.Spb},
		{"bbb", f.Bbb},
		{"baud1", f.Baud1},
		{"baud2", f.Baud2},
		{"fsi", f.Fsi},
		{"fsi2", f.Fsi2},
		{"cpu0", f.Cpu[0]},
		{"cpu1", f.Cpu[1]},
		{"cpu2", f.Cpu[2]},
		{"gtm", f.Gtm},
		{"stm", f.Stm},
		{"module", f.Module},
	}
	for _, r := range rows {
		fmt.Fprintf(s.out, "  %-9s %12.3f MHz\n", r.name, r.hz/1e6)
	}
	return nil
}

func (s *session) reg(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: reg <name> [value]")
	}
	r, ok := scu.RegByName(strings.ToUpper(args[0]))
	if !ok {
		return fmt.Errorf("unknown register %q", args[0])
	}

	if len(args) == 2 {
		v, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid value %q", args[1])
		}
		s.store(r, uint32(v))
	}

	fmt.Fprintf(s.out, "%-12s 0x%08X = 0x%08X\n", r, r.Address(), s.regs.Load(r))
	return nil
}

// store writes r, clearing endinit around protected registers
func (s *session) store(r scu.Reg, v uint32) {
	d, protected := r.Protection()
	if !protected || s.wdt == nil {
		s.regs.Store(r, v)
		return
	}
	pw := s.wdt.Password(d)
	s.wdt.ClearEndinit(d, pw)
	s.regs.Store(r, v)
	s.wdt.SetEndinit(d, pw)
}

func (s *session) save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := regfile.WriteHex(f, regfile.Capture(s.regs)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %d registers to %s\n", scu.NumRegs, path)
	return nil
}
