// Package cad opens a PiFaceCAD: an MCP23S17 on the SPI bus with the
// switches on port A and an HD44780 LCD on port B.
package cad

import (
	"fmt"
	"time"

	"code.sztanpet.net/zvpsz/picad-vision/internal/config"
	"code.sztanpet.net/zvpsz/picad-vision/internal/display"
	"code.sztanpet.net/zvpsz/picad-vision/internal/mcp23s17"
	"code.sztanpet.net/zvpsz/picad-vision/internal/switches"
	"github.com/juju/loggo"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

var logger = loggo.GetLogger("picad.cad")

// the board ties A2..A0 low
const hwAddr = 0

type CAD struct {
	Chip *mcp23s17.Dev
	LCD  *display.LCD

	port         spi.PortCloser
	interruptPin string
}

// Open initializes the host drivers, configures the port expander and the LCD.
func Open(cfg *config.Config) (*CAD, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.SPIPort, err)
	}

	conn, err := port.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("connect %s: %w", cfg.SPIPort, err)
	}

	c, err := setup(mcp23s17.New(conn, hwAddr), cfg.LCDColumns, cfg.LCDRows)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	c.port = port
	c.interruptPin = cfg.InterruptPin

	logger.Infof("PiFaceCAD ready on %s", cfg.SPIPort)
	return c, nil
}

func setup(chip *mcp23s17.Dev, cols, rows int) (*CAD, error) {
	if err := configure(chip); err != nil {
		return nil, fmt.Errorf("configure mcp23s17: %w", err)
	}

	lcd, err := display.New(chip, cols, rows)
	if err != nil {
		return nil, err
	}
	if err := lcd.Init(); err != nil {
		return nil, fmt.Errorf("lcd init: %w", err)
	}

	return &CAD{Chip: chip, LCD: lcd}, nil
}

// configure sets up the expander like the PiFaceCAD expects: addressing
// enabled, interrupt active low, port A inputs pulled up and inverted with
// interrupt on change, port B all outputs.
func configure(chip *mcp23s17.Dev) error {
	steps := []struct {
		reg mcp23s17.Register
		v   byte
	}{
		{mcp23s17.IOCON, mcp23s17.IOCONHAEN},
		{mcp23s17.IODIRA, 0xFF},
		{mcp23s17.GPPUA, 0xFF},
		{mcp23s17.IPOLA, 0xFF},
		{mcp23s17.INTCONA, 0x00},
		{mcp23s17.GPINTENA, 0xFF},
		{mcp23s17.IODIRB, 0x00},
	}
	for _, s := range steps {
		if err := chip.WriteRegister(s.reg, s.v); err != nil {
			return err
		}
	}

	return nil
}

// Listener returns a switch listener driven by the board's interrupt line.
func (c *CAD) Listener(debounce time.Duration) (*switches.Listener, error) {
	pin := gpioreg.ByName(c.interruptPin)
	if pin == nil {
		return nil, fmt.Errorf("gpio %s not found", c.interruptPin)
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure %s: %w", c.interruptPin, err)
	}

	return switches.NewListener(c.Chip, pin, debounce), nil
}

func (c *CAD) Close() error {
	if c.port == nil {
		return nil
	}

	return c.port.Close()
}
