package monitor

import (
	"errors"
	"io"

	"aurixclk/scu"
	"aurixclk/wire"
)

var errUnknownCommand = errors.New("monitor: unknown command")

// Server answers monitor commands from a register file, a watchdog and a
// timer, typically a sim.Board or the registers of a local target.
type Server struct {
	regs  scu.Registers
	wdt   scu.Watchdog
	timer scu.Timer

	dict []byte
	ep   *wire.Endpoint
}

// NewServer creates a server. target names the device in the dictionary.
func NewServer(target string, regs scu.Registers, wdt scu.Watchdog, timer scu.Timer) *Server {
	return &Server{
		regs:  regs,
		wdt:   wdt,
		timer: timer,
		dict:  newDictionary(target).encode(),
	}
}

// Serve handles commands arriving on rw until it reports EOF
func (s *Server) Serve(rw io.ReadWriter) error {
	s.ep = wire.NewEndpoint(rw, s.handle)
	return s.ep.Serve(rw)
}

func (s *Server) handle(cmdID uint16, args *[]byte) error {
	switch cmdID {
	case CmdIdentify:
		return s.identify(args)
	case CmdReadReg:
		return s.readReg(args)
	case CmdWriteReg:
		return s.writeReg(args)
	case CmdGetPassword:
		return s.getPassword(args)
	case CmdEndinit:
		return s.endinit(args)
	case CmdReadTimer:
		resp := wire.AppendUint(nil, s.timer.Now())
		resp = wire.AppendUint(resp, uint32(s.timer.Frequency()))
		return s.ep.Respond(RespTimer, resp)
	default:
		// The arguments of an unknown command cannot be skipped
		s.reject(cmdID, ErrCodeUnknownCommand)
		return errUnknownCommand
	}
}

func (s *Server) identify(args *[]byte) error {
	offset, err := wire.DecodeUint(args)
	if err != nil {
		return err
	}
	count, err := wire.DecodeUint(args)
	if err != nil {
		return err
	}
	if count > identifyChunk {
		count = identifyChunk
	}

	var chunk []byte
	if offset < uint32(len(s.dict)) {
		end := offset + count
		if end > uint32(len(s.dict)) {
			end = uint32(len(s.dict))
		}
		chunk = s.dict[offset:end]
	}

	resp := wire.AppendUint(nil, offset)
	resp = wire.AppendString(resp, string(chunk))
	return s.ep.Respond(RespIdentify, resp)
}

func (s *Server) decodeReg(cmdID uint16, args *[]byte) (scu.Reg, bool, error) {
	v, err := wire.DecodeUint(args)
	if err != nil {
		return 0, false, err
	}
	if v >= uint32(scu.NumRegs) {
		s.reject(cmdID, ErrCodeBadRegister)
		return 0, false, nil
	}
	return scu.Reg(v), true, nil
}

func (s *Server) decodeDomain(cmdID uint16, args *[]byte) (scu.Domain, bool, error) {
	v, err := wire.DecodeUint(args)
	if err != nil {
		return 0, false, err
	}
	if v > uint32(scu.DomainSafety) {
		s.reject(cmdID, ErrCodeBadDomain)
		return 0, false, nil
	}
	return scu.Domain(v), true, nil
}

func (s *Server) readReg(args *[]byte) error {
	r, ok, err := s.decodeReg(CmdReadReg, args)
	if err != nil || !ok {
		return err
	}

	resp := wire.AppendUint(nil, uint32(r))
	resp = wire.AppendUint(resp, s.regs.Load(r))
	return s.ep.Respond(RespRegValue, resp)
}

func (s *Server) writeReg(args *[]byte) error {
	r, ok, err := s.decodeReg(CmdWriteReg, args)
	if err != nil {
		return err
	}
	v, err := wire.DecodeUint(args)
	if err != nil {
		return err
	}
	if ok {
		s.regs.Store(r, v)
	}
	return nil
}

func (s *Server) getPassword(args *[]byte) error {
	d, ok, err := s.decodeDomain(CmdGetPassword, args)
	if err != nil || !ok {
		return err
	}

	resp := wire.AppendUint(nil, uint32(d))
	resp = wire.AppendUint(resp, uint32(s.wdt.Password(d)))
	return s.ep.Respond(RespPassword, resp)
}

func (s *Server) endinit(args *[]byte) error {
	d, ok, err := s.decodeDomain(CmdEndinit, args)
	if err != nil {
		return err
	}
	pw, err := wire.DecodeUint(args)
	if err != nil {
		return err
	}
	set, err := wire.DecodeUint(args)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if set != 0 {
		s.wdt.SetEndinit(d, uint16(pw))
	} else {
		s.wdt.ClearEndinit(d, uint16(pw))
	}
	return nil
}

func (s *Server) reject(cmdID uint16, code uint32) {
	resp := wire.AppendUint(nil, uint32(cmdID))
	resp = wire.AppendUint(resp, code)
	_ = s.ep.Respond(RespError, resp)
}
