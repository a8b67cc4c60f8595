package scu

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// SetDebugWriter redirects sequencer trace output (nil disables it)
func (c *Ccu) SetDebugWriter(w DebugWriter) {
	c.debugPrintln = w
}

// debug writes a trace line if a writer is configured
func (c *Ccu) debug(msg string) {
	if c.debugPrintln != nil {
		c.debugPrintln("[CCU] " + msg)
	}
}
