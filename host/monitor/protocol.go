// Package monitor exposes an SCU register file, its endinit watchdog and the
// STM timer over a wire link, so the clock sequences can run on the host
// against a remote target.
package monitor

import (
	"encoding/json"

	"aurixclk/scu"
)

// Version of the monitor command set
const Version = "1.0.0"

// Command and response IDs
const (
	RespIdentify = 0 // offset, data
	CmdIdentify  = 1 // offset, count

	CmdReadReg     = 2 // reg
	CmdWriteReg    = 3 // reg, value
	CmdGetPassword = 4 // domain
	CmdEndinit     = 5 // domain, password, set
	CmdReadTimer   = 6

	RespRegValue = 7  // reg, value
	RespPassword = 8  // domain, password
	RespTimer    = 9  // ticks, frequency in Hz
	RespError    = 10 // command, code
)

// Error codes carried by RespError
const (
	ErrCodeUnknownCommand = 1
	ErrCodeBadRegister    = 2
	ErrCodeBadDomain      = 3
)

// identifyChunk is the dictionary slice returned per identify request
const identifyChunk = 40

// Dictionary describes what a monitor target offers
type Dictionary struct {
	Version   string            `json:"version"`
	Target    string            `json:"target"`
	Commands  map[string]int    `json:"commands"`
	Responses map[string]int    `json:"responses"`
	Registers map[string]uint32 `json:"registers"` // Name to bus address
}

func newDictionary(target string) *Dictionary {
	d := &Dictionary{
		Version: Version,
		Target:  target,
		Commands: map[string]int{
			"identify offset=%u count=%c":           CmdIdentify,
			"read_reg reg=%c":                       CmdReadReg,
			"write_reg reg=%c value=%u":             CmdWriteReg,
			"get_password domain=%c":                CmdGetPassword,
			"endinit domain=%c password=%hu set=%c": CmdEndinit,
			"read_timer":                            CmdReadTimer,
		},
		Responses: map[string]int{
			"identify_response offset=%u data=%.*s": RespIdentify,
			"reg_value reg=%c value=%u":             RespRegValue,
			"password domain=%c password=%hu":       RespPassword,
			"timer ticks=%u frequency=%u":           RespTimer,
			"error command=%c code=%c":              RespError,
		},
		Registers: make(map[string]uint32, scu.NumRegs),
	}
	for r := scu.Reg(0); r < scu.NumRegs; r++ {
		d.Registers[r.String()] = r.Address()
	}
	return d
}

func (d *Dictionary) encode() []byte {
	data, _ := json.Marshal(d)
	return data
}
