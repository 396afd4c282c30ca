// Package mcp23s17test provides an in-memory MCP23S17 for tests.
package mcp23s17test

import (
	"errors"
	"sync"

	"code.sztanpet.net/zvpsz/picad-vision/internal/mcp23s17"
)

// Write is one register write seen by the Fake.
type Write struct {
	Reg   mcp23s17.Register
	Value byte
}

// Fake implements mcp23s17.Conn over a register file.
// OnRead, when set, is called before a read is served and may change Regs.
type Fake struct {
	mu     sync.Mutex
	Regs   [0x16]byte
	Writes []Write
	Err    error
	OnRead func(reg mcp23s17.Register, regs *[0x16]byte)
}

func (f *Fake) Tx(w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return f.Err
	}
	if len(w) != 3 || int(w[1]) >= len(f.Regs) {
		return errors.New("mcp23s17test: malformed transaction")
	}

	reg := mcp23s17.Register(w[1])
	if w[0]&0x01 == 0 {
		f.Regs[reg] = w[2]
		f.Writes = append(f.Writes, Write{Reg: reg, Value: w[2]})
		return nil
	}

	if f.OnRead != nil {
		f.OnRead(reg, &f.Regs)
	}
	if len(r) == 3 {
		r[2] = f.Regs[reg]
	}

	return nil
}

// Reg returns the current value of reg.
func (f *Fake) Reg(reg mcp23s17.Register) byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.Regs[reg]
}

// Set changes reg without recording a write.
func (f *Fake) Set(reg mcp23s17.Register, v byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Regs[reg] = v
}

// WritesTo returns the values written to reg, in order.
func (f *Fake) WritesTo(reg mcp23s17.Register) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []byte
	for _, w := range f.Writes {
		if w.Reg == reg {
			out = append(out, w.Value)
		}
	}

	return out
}

// Reset forgets the recorded writes.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Writes = nil
}
