package input

import (
	"context"
	"io"

	"github.com/mattn/go-tty"
)

const (
	KeyEnter           = '\r'
	KeyNewline         = '\n'
	KeyInterrupt       = '\x03'
	KeyEndTransmission = '\x04'
)

type runeReader interface {
	ReadRune() (rune, error)
}

type Input struct {
	tty     *tty.TTY
	r       runeReader
	restore func() error
}

// New opens the controlling terminal in raw mode, so single key presses
// arrive without echo or line buffering.
func New() (*Input, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}

	restore, err := t.Raw()
	if err != nil {
		_ = t.Close()
		return nil, err
	}

	return &Input{
		tty:     t,
		r:       t,
		restore: restore,
	}, nil
}

// WaitForEnter blocks until Enter, Ctrl+C or Ctrl+D is pressed, or the terminal goes away.
// The read itself can't be interrupted, ctx is checked between key presses.
func (i *Input) WaitForEnter(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r, err := i.r.ReadRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch r {
		case KeyEnter, KeyNewline, KeyInterrupt, KeyEndTransmission:
			return nil
		}
	}
}

// WaitForKey blocks until a key is pressed and returns it. A closed
// terminal is io.EOF.
func (i *Input) WaitForKey(ctx context.Context) (rune, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return i.r.ReadRune()
}

// Close restores the terminal mode.
func (i *Input) Close() error {
	if i.restore != nil {
		_ = i.restore()
	}
	if i.tty != nil {
		return i.tty.Close()
	}

	return nil
}
