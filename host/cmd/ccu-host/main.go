package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/mattn/go-colorable"

	"aurixclk/config"
	"aurixclk/host/monitor"
	"aurixclk/host/serial"
	"aurixclk/regfile"
	"aurixclk/sim"
)

var (
	device     = flag.String("device", "/dev/ttyUSB0", "Serial device of the target monitor")
	baud       = flag.Int("baud", 115200, "Baud rate")
	useSim     = flag.Bool("sim", false, "Run against the simulated SCU instead of a device")
	image      = flag.String("image", "", "Run read-only against a memory-mapped register image")
	clockFile  = flag.String("config", "", "JSON clock configuration")
	erayFile   = flag.String("eray-config", "", "JSON E-Ray PLL configuration")
	snapshotIn = flag.String("snapshot", "", "Intel HEX register snapshot to preload (sim and image only)")
	verbose    = flag.Bool("verbose", false, "Trace CCU state changes")
)

// target is an opened register file and what is needed to release it
type target struct {
	sess  *session
	close func() error
}

func main() {
	flag.Parse()
	out := colorable.NewColorableStdout()

	fmt.Fprintln(out, "CCU Host - TC29x clock bring-up")
	fmt.Fprintln(out, "===============================")
	fmt.Fprintln(out)

	t, err := openTarget(out)
	if err != nil {
		fatalf(out, "%v", err)
	}
	defer t.close()

	if err := loadConfigs(t.sess); err != nil {
		fatalf(out, "%v", err)
	}
	t.sess.setVerbose(*verbose)

	// Commands given after the flags run in order, then the program exits
	if flag.NArg() > 0 {
		for _, line := range flag.Args() {
			fmt.Fprintf(out, "> %s\n", line)
			if err := t.sess.execute(line); err != nil {
				if errors.Is(err, errQuit) {
					return
				}
				t.close()
				fatalf(out, "%v", err)
			}
		}
		return
	}

	fmt.Fprintln(out, "Enter commands (type 'help' for available commands, 'quit' to exit):")
	if err := repl(t.sess, os.Stdin); err != nil {
		t.close()
		fatalf(out, "reading input: %v", err)
	}
}

// repl reads commands until quit or end of input
func repl(s *session, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		err := s.execute(line)
		if errors.Is(err, errQuit) {
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "%sError: %v%s\n", colorRed, err, colorReset)
		}
	}
	return scanner.Err()
}

func openTarget(out io.Writer) (*target, error) {
	switch {
	case *image != "":
		return openImage(out, *image)
	case *useSim:
		return openSim(out)
	default:
		return openDevice(out)
	}
}

func openImage(out io.Writer, path string) (*target, error) {
	m, err := regfile.Open(path)
	if err != nil {
		return nil, err
	}
	if *snapshotIn != "" {
		snap, err := readSnapshot(*snapshotIn)
		if err != nil {
			m.Close()
			return nil, err
		}
		snap.Apply(m)
	}

	fmt.Fprintf(out, "Register image %s (read-only sequences)\n", path)
	return &target{
		sess: newSession(out, m, nil, nil),
		close: func() error {
			if err := m.Flush(); err != nil {
				m.Close()
				return err
			}
			return m.Close()
		},
	}, nil
}

func openSim(out io.Writer) (*target, error) {
	board := sim.NewBoard(sim.DefaultConfig())
	if *snapshotIn != "" {
		snap, err := readSnapshot(*snapshotIn)
		if err != nil {
			return nil, err
		}
		for r, v := range snap {
			board.Poke(r, v)
		}
	}

	host, tgt := net.Pipe()
	srv := monitor.NewServer("tc29x-sim", board, board, board)
	go srv.Serve(tgt)

	fmt.Fprintln(out, "Connected to the simulated SCU")
	return connect(out, serial.Pipe{ReadWriteCloser: host}, func() error {
		return tgt.Close()
	})
}

func openDevice(out io.Writer) (*target, error) {
	if *snapshotIn != "" {
		return nil, fmt.Errorf("-snapshot needs -sim or -image")
	}

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	fmt.Fprintf(out, "Connecting to %s...\n", *device)
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	return connect(out, port, nil)
}

// connect starts a monitor client on port and checks the target dictionary
func connect(out io.Writer, port serial.Port, release func() error) (*target, error) {
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, err
	}

	client := monitor.NewClient(port)
	dict, err := client.Identify()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to retrieve dictionary: %w", err)
	}
	fmt.Fprintf(out, "Target %s, monitor %s, %d registers\n\n", dict.Target, dict.Version, len(dict.Registers))

	return &target{
		sess: newSession(out, client, client, client),
		close: func() error {
			err := client.Close()
			if release != nil {
				release()
			}
			return err
		},
	}, nil
}

func loadConfigs(s *session) error {
	if *clockFile != "" {
		data, err := os.ReadFile(*clockFile)
		if err != nil {
			return err
		}
		if s.clock, err = config.LoadClockConfig(data); err != nil {
			return fmt.Errorf("%s: %w", *clockFile, err)
		}
	}
	if *erayFile != "" {
		data, err := os.ReadFile(*erayFile)
		if err != nil {
			return err
		}
		if s.eray, err = config.LoadErayPllConfig(data); err != nil {
			return fmt.Errorf("%s: %w", *erayFile, err)
		}
	}
	return nil
}

func readSnapshot(path string) (regfile.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := regfile.ReadHex(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

func fatalf(out io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(out, colorRed+"Error: "+format+colorReset+"\n", args...)
	os.Exit(1)
}
