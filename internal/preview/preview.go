// Package preview shows the last snap on an attached monitor.
package preview

import (
	"os/exec"
	"sync"

	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("picad.preview")

// Viewer runs one image viewer at a time.
type Viewer struct {
	Command string
	Args    []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewDisplay uses ImageMagick's display, sized for a small HDMI screen.
func NewDisplay() *Viewer {
	return &Viewer{
		Command: "display",
		Args:    []string{"-resize", "1024x768"},
	}
}

// Show replaces the running viewer with one showing path.
func (v *Viewer) Show(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.stop()

	args := append(append([]string(nil), v.Args...), path)
	cmd := exec.Command(v.Command, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	v.cmd = cmd

	// reap it when it exits on its own
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Tracef("viewer exited: %v", err)
		}
	}()

	return nil
}

// Close stops the running viewer, if any.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.stop()
}

func (v *Viewer) stop() {
	if v.cmd == nil {
		return
	}

	if err := v.cmd.Process.Kill(); err != nil {
		logger.Tracef("killing viewer: %v", err)
	}
	v.cmd = nil
}
