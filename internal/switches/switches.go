// Package switches dispatches PiFaceCAD button events. The buttons sit on
// port A of the MCP23S17; the chip pulls the interrupt line low when one changes.
package switches

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"code.sztanpet.net/zvpsz/picad-vision/internal/mcp23s17"
	"github.com/juju/loggo"
	"golang.org/x/time/rate"
)

var logger = loggo.GetLogger("picad.switches")

// PinCount is the number of inputs on port A.
const PinCount = 8

// pollDurr bounds how long Deactivate waits for the listener goroutine.
var pollDurr = 100 * time.Millisecond

type Direction int

const (
	// Pressed fires on the falling edge of the physical input.
	Pressed Direction = iota
	Released
)

func (d Direction) String() string {
	switch d {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

type Event struct {
	Pin       int
	Direction Direction
	Timestamp time.Time
}

type Handler func(Event)

// Chip is the register access the listener needs.
type Chip interface {
	ReadRegister(reg mcp23s17.Register) (byte, error)
}

// Interrupt is satisfied by periph's gpio.PinIn once configured for edge detection.
type Interrupt interface {
	WaitForEdge(timeout time.Duration) bool
}

type registration struct {
	pin       int
	direction Direction
	handler   Handler
}

type Listener struct {
	chip Chip
	irq  Interrupt

	mu       sync.Mutex
	regs     []registration
	limiters [PinCount]*rate.Limiter
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewListener creates a listener; presses of the same pin closer together
// than debounce are dropped.
func NewListener(chip Chip, irq Interrupt, debounce time.Duration) *Listener {
	l := &Listener{
		chip: chip,
		irq:  irq,
	}
	for i := range l.limiters {
		l.limiters[i] = rate.NewLimiter(rate.Every(debounce), 1)
	}

	return l
}

func (l *Listener) Register(pin int, d Direction, h Handler) error {
	if pin < 0 || pin >= PinCount {
		return fmt.Errorf("pin %d out of range", pin)
	}
	if h == nil {
		return errors.New("nil handler")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.regs = append(l.regs, registration{pin: pin, direction: d, handler: h})
	return nil
}

// Activate starts dispatching events until ctx is done or Deactivate is called.
func (l *Listener) Activate(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return errors.New("listener already active")
	}

	// reading the capture register clears a pending interrupt
	if _, err := l.chip.ReadRegister(mcp23s17.INTCAPA); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, l.done)

	logger.Debugf("listener active, %d handlers", len(l.regs))
	return nil
}

// Deactivate stops the listener and waits for a running handler to return.
func (l *Listener) Deactivate() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (l *Listener) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !l.irq.WaitForEdge(pollDurr) {
			continue
		}

		events, err := l.read(time.Now())
		if err != nil {
			logger.Errorf("reading switches failed: %v", err)
			continue
		}

		for _, e := range events {
			l.dispatch(e)
		}
	}
}

// read decodes which inputs caused the interrupt and their level at that time.
// Port A is configured with inverted polarity, so a set bit means pressed.
func (l *Listener) read(now time.Time) ([]Event, error) {
	flags, err := l.chip.ReadRegister(mcp23s17.INTFA)
	if err != nil {
		return nil, err
	}
	capture, err := l.chip.ReadRegister(mcp23s17.INTCAPA)
	if err != nil {
		return nil, err
	}

	var events []Event
	for pin := 0; pin < PinCount; pin++ {
		bit := byte(1) << uint(pin)
		if flags&bit == 0 {
			continue
		}

		d := Released
		if capture&bit != 0 {
			d = Pressed
		}
		events = append(events, Event{Pin: pin, Direction: d, Timestamp: now})
	}

	return events, nil
}

func (l *Listener) dispatch(e Event) {
	if e.Direction == Pressed && !l.limiters[e.Pin].AllowN(e.Timestamp, 1) {
		logger.Tracef("pin %d bounced, ignoring", e.Pin)
		return
	}

	l.mu.Lock()
	regs := append([]registration(nil), l.regs...)
	l.mu.Unlock()

	for _, r := range regs {
		if r.pin == e.Pin && r.direction == e.Direction {
			logger.Debugf("pin %d %v", e.Pin, e.Direction)
			r.handler(e)
		}
	}
}
