package display

import (
	"fmt"
	"strings"
	"sync"
)

// Memory is a screen kept in memory with the same layout rules as the LCD.
// Every call is recorded in Calls.
type Memory struct {
	mu        sync.Mutex
	grid      [][]byte
	cols      int
	col, row  int
	backlight bool

	Calls []string
}

func NewMemory(cols, rows int) *Memory {
	m := &Memory{cols: cols, grid: make([][]byte, rows)}
	m.clear()
	return m
}

func (m *Memory) Columns() int { return m.cols }
func (m *Memory) Rows() int    { return len(m.grid) }

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, "clear")
	m.clear()
	return nil
}

func (m *Memory) SetCursor(col, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, fmt.Sprintf("cursor %d,%d", col, row))
	if col < 0 || col >= m.cols || row < 0 || row >= len(m.grid) {
		return fmt.Errorf("cursor %d,%d outside %dx%d display", col, row, m.cols, len(m.grid))
	}

	return m.setCursor(col, row)
}

func (m *Memory) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, "write "+text)
	col, row, err := place(m, text, m.col, m.row, m.cols, len(m.grid))
	m.col, m.row = col, row
	return err
}

func (m *Memory) BacklightOn() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, "backlight on")
	m.backlight = true
	return nil
}

func (m *Memory) BacklightOff() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, "backlight off")
	m.backlight = false
	return nil
}

// Line returns row without trailing blanks.
func (m *Memory) Line(row int) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return strings.TrimRight(string(m.grid[row]), " ")
}

func (m *Memory) Backlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.backlight
}

// Reset forgets the recorded calls.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = nil
}

func (m *Memory) clear() {
	for i := range m.grid {
		m.grid[i] = []byte(strings.Repeat(" ", m.cols))
	}
	m.col, m.row = 0, 0
}

func (m *Memory) setCursor(col, row int) error {
	m.col, m.row = col, row
	return nil
}

func (m *Memory) putChar(b byte) error {
	m.grid[m.row][m.col] = b
	m.col++
	return nil
}
