package main

import "code.sztanpet.net/zvpsz/picad-vision/internal/switches"

type State int

const (
	showingPrompt State = iota
	showingResult
)

func (s State) String() string {
	switch s {
	case showingPrompt:
		return "showingPrompt"
	case showingResult:
		return "showingResult"
	default:
		panic("unknown state " + string(rune(s+'0')))
	}
}

/*
default: showingPrompt state

showingPrompt:
  - on press -> snap, label, show labels -> showingResult
showingResult:
  - on press -> show the prompt again -> showingPrompt

any error while handling a press stops the app.
*/
func (a *app) handlePress(e switches.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctx.Err() != nil {
		return
	}
	logger.Debugf("pin %d %v in state %v", e.Pin, e.Direction, a.state)

	var err error
	switch a.state {
	case showingPrompt:
		err = a.annotatePicture()
		a.state = showingResult

	case showingResult:
		err = a.resetScreen()
		a.state = showingPrompt
	}

	if err != nil && a.ctx.Err() != nil {
		// stopping, capture or upload was cut short
		logger.Infof("press abandoned: %v", err)
		return
	}
	if err != nil {
		a.fail(err)
	}
}

// start shows the prompt and starts listening for presses.
func (a *app) start() error {
	a.mu.Lock()
	a.state = showingPrompt
	err := a.resetScreen()
	a.mu.Unlock()
	if err != nil {
		return err
	}

	for pin := 0; pin < a.cfg.PinCount; pin++ {
		if err := a.listener.Register(pin, switches.Pressed, a.handlePress); err != nil {
			return err
		}
	}

	return a.listener.Activate(a.ctx)
}
