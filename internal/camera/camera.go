// Package camera captures stills from the Raspberry Pi camera module
// through the vendor's still capture tool.
package camera

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("picad.camera")

// ErrClosed is returned by Capture after Close.
var ErrClosed = errors.New("camera closed")

// candidates are tried in order when no command is configured,
// newest camera stack first.
var candidates = []string{"rpicam-still", "libcamera-still", "raspistill"}

// CaptureTimeout bounds a single capture, sensor warmup included.
var CaptureTimeout = 20 * time.Second

type Still struct {
	mu      sync.Mutex
	command string
	width   int
	height  int
	warmup  time.Duration
	closed  bool
}

// Open resolves the capture command. An empty command picks the first of
// the known tools found in PATH. warmup is how long the sensor runs before
// the capture so exposure and white balance can settle.
func Open(command string, width, height int, warmup time.Duration) (*Still, error) {
	path, err := resolve(command)
	if err != nil {
		return nil, err
	}
	logger.Debugf("using %s for captures", path)

	return &Still{
		command: path,
		width:   width,
		height:  height,
		warmup:  warmup,
	}, nil
}

func resolve(command string) (string, error) {
	if command != "" {
		return exec.LookPath(command)
	}

	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}

	return "", errors.New("no camera capture tool found, tried rpicam-still, libcamera-still and raspistill")
}

// Capture writes a JPEG to path.
func (s *Still) Capture(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, CaptureTimeout)
	defer cancel()

	args := []string{
		"-n",
		"-t", strconv.FormatInt(s.timeout(), 10),
		"--width", strconv.Itoa(s.width),
		"--height", strconv.Itoa(s.height),
		"-o", path,
	}
	cmd := exec.CommandContext(ctx, s.command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		logger.Errorf("error running: %s %v; error was: %v, output was: %s", s.command, args, err, out)
		return err
	}
	logger.Tracef("%s %v; output was: %s", s.command, args, out)

	return nil
}

// timeout is the -t value in milliseconds, the tools treat 0 as forever.
func (s *Still) timeout() int64 {
	if ms := s.warmup.Milliseconds(); ms > 0 {
		return ms
	}

	return 1
}

func (s *Still) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
