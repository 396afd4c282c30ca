// Package mcp23s17 talks to the Microchip MCP23S17 16-bit SPI port expander
// that carries the PiFaceCAD's switches (port A) and LCD (port B).
// Registers are addressed with IOCON.BANK = 0.
package mcp23s17

import (
	"fmt"
	"sync"
)

type Register byte

const (
	IODIRA   Register = 0x00
	IODIRB   Register = 0x01
	IPOLA    Register = 0x02
	IPOLB    Register = 0x03
	GPINTENA Register = 0x04
	GPINTENB Register = 0x05
	DEFVALA  Register = 0x06
	DEFVALB  Register = 0x07
	INTCONA  Register = 0x08
	INTCONB  Register = 0x09
	IOCON    Register = 0x0A
	GPPUA    Register = 0x0C
	GPPUB    Register = 0x0D
	INTFA    Register = 0x0E
	INTFB    Register = 0x0F
	INTCAPA  Register = 0x10
	INTCAPB  Register = 0x11
	GPIOA    Register = 0x12
	GPIOB    Register = 0x13
	OLATA    Register = 0x14
	OLATB    Register = 0x15
)

// IOCONHAEN enables the A2..A0 hardware address pins.
const IOCONHAEN byte = 1 << 3

const (
	opWrite byte = 0x40
	opRead  byte = 0x41
)

// Conn is the part of periph's spi.Conn the chip needs.
type Conn interface {
	Tx(w, r []byte) error
}

// Dev is an MCP23S17 at a hardware address (A2..A0) on a SPI connection.
type Dev struct {
	mu   sync.Mutex
	c    Conn
	addr byte
}

// New returns a Dev. hwAddr is only honoured by the chip once IOCONHAEN is set.
func New(c Conn, hwAddr byte) *Dev {
	return &Dev{
		c:    c,
		addr: (hwAddr & 0x07) << 1,
	}
}

func (d *Dev) ReadRegister(reg Register) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.read(reg)
}

func (d *Dev) WriteRegister(reg Register, v byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.write(reg, v)
}

func (d *Dev) read(reg Register) (byte, error) {
	w := []byte{opRead | d.addr, byte(reg), 0}
	r := make([]byte, len(w))
	if err := d.c.Tx(w, r); err != nil {
		return 0, fmt.Errorf("mcp23s17: read %#x: %w", byte(reg), err)
	}

	return r[2], nil
}

func (d *Dev) write(reg Register, v byte) error {
	if err := d.c.Tx([]byte{opWrite | d.addr, byte(reg), v}, nil); err != nil {
		return fmt.Errorf("mcp23s17: write %#x: %w", byte(reg), err)
	}

	return nil
}
