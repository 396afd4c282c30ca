// Package display drives the PiFaceCAD's HD44780 character LCD in 4-bit mode
// through port B of the MCP23S17.
package display

import (
	"fmt"
	"sync"
	"time"

	"code.sztanpet.net/zvpsz/picad-vision/internal/mcp23s17"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("picad.display")

// port B wiring
const (
	pinEnable    byte = 1 << 4
	pinRW        byte = 1 << 5
	pinRS        byte = 1 << 6
	pinBacklight byte = 1 << 7
	dataMask     byte = 0x0F
)

// HD44780 instructions
const (
	cmdClear          byte = 0x01
	cmdEntryMode      byte = 0x04
	cmdDisplayControl byte = 0x08
	cmdFunctionSet    byte = 0x20
	cmdSetDDRAM       byte = 0x80

	entryIncrement byte = 0x02
	displayOn      byte = 0x04
	twoLines       byte = 0x08
)

const (
	clearDurr = 2 * time.Millisecond
	syncDurr  = 5 * time.Millisecond
)

// Chip is the register access the LCD needs from the port expander.
type Chip interface {
	ReadRegister(reg mcp23s17.Register) (byte, error)
	WriteRegister(reg mcp23s17.Register, v byte) error
}

type LCD struct {
	mu   sync.Mutex
	chip Chip
	port byte

	cols, rows int
	col, row   int
}

// New wraps the LCD on chip. The current port B latch is kept so the
// backlight state survives between processes.
func New(chip Chip, cols, rows int) (*LCD, error) {
	if cols < 1 || rows < 1 || rows > 4 {
		return nil, fmt.Errorf("unsupported lcd geometry %dx%d", cols, rows)
	}

	port, err := chip.ReadRegister(mcp23s17.OLATB)
	if err != nil {
		return nil, err
	}

	return &LCD{
		chip: chip,
		port: port &^ (pinEnable | pinRW),
		cols: cols,
		rows: rows,
	}, nil
}

// Init puts the controller into 4-bit mode and switches the display on.
// It does not clear DDRAM.
func (l *LCD) Init() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// the controller might be in 8-bit mode, or halfway through a 4-bit transfer
	for i := 0; i < 3; i++ {
		if err := l.nibble(0x3, false); err != nil {
			return err
		}
		time.Sleep(syncDurr)
	}
	if err := l.nibble(0x2, false); err != nil {
		return err
	}

	fn := cmdFunctionSet
	if l.rows > 1 {
		fn |= twoLines
	}
	for _, b := range []byte{fn, cmdDisplayControl | displayOn, cmdEntryMode | entryIncrement} {
		if err := l.send(b, false); err != nil {
			return err
		}
	}

	logger.Debugf("lcd initialized: %dx%d", l.cols, l.rows)
	return nil
}

func (l *LCD) Columns() int { return l.cols }
func (l *LCD) Rows() int    { return l.rows }

func (l *LCD) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.send(cmdClear, false); err != nil {
		return err
	}
	time.Sleep(clearDurr)
	l.col, l.row = 0, 0
	return nil
}

func (l *LCD) SetCursor(col, row int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if col < 0 || col >= l.cols || row < 0 || row >= l.rows {
		return fmt.Errorf("cursor %d,%d outside %dx%d display", col, row, l.cols, l.rows)
	}

	return l.setCursor(col, row)
}

// Write puts text at the cursor. See place for the layout rules.
func (l *LCD) Write(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	col, row, err := place(l, text, l.col, l.row, l.cols, l.rows)
	l.col, l.row = col, row
	return err
}

func (l *LCD) BacklightOn() error {
	return l.backlight(true)
}

func (l *LCD) BacklightOff() error {
	return l.backlight(false)
}

func (l *LCD) backlight(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if on {
		l.port |= pinBacklight
	} else {
		l.port &^= pinBacklight
	}

	return l.chip.WriteRegister(mcp23s17.GPIOB, l.port)
}

func (l *LCD) setCursor(col, row int) error {
	// rows 2 and 3 continue rows 0 and 1 in DDRAM
	offsets := [4]int{0x00, 0x40, l.cols, 0x40 + l.cols}
	if err := l.send(cmdSetDDRAM|byte(offsets[row]+col), false); err != nil {
		return err
	}

	l.col, l.row = col, row
	return nil
}

func (l *LCD) putChar(b byte) error {
	return l.send(b, true)
}

func (l *LCD) send(b byte, data bool) error {
	if err := l.nibble(b>>4, data); err != nil {
		return err
	}

	return l.nibble(b&dataMask, data)
}

// nibble latches the low 4 bits of n on the falling edge of E.
func (l *LCD) nibble(n byte, data bool) error {
	v := l.port&pinBacklight | n&dataMask
	if data {
		v |= pinRS
	}

	if err := l.chip.WriteRegister(mcp23s17.GPIOB, v|pinEnable); err != nil {
		return err
	}
	if err := l.chip.WriteRegister(mcp23s17.GPIOB, v); err != nil {
		return err
	}

	l.port = v
	return nil
}
