// Package audio records and plays WAV files with the ALSA command line tools.
package audio

import (
	"context"
	"os/exec"
	"strconv"
	"time"

	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("picad.audio")

// recordings are what Speech-to-Text likes best: 16 kHz mono 16 bit PCM
var recordFormat = []string{"-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav"}

type Device struct {
	record string
	play   string
}

// Open resolves the recorder (arecord) and player (aplay) commands.
func Open(recordCommand, playCommand string) (*Device, error) {
	rec, err := exec.LookPath(recordCommand)
	if err != nil {
		return nil, err
	}
	play, err := exec.LookPath(playCommand)
	if err != nil {
		return nil, err
	}

	return &Device{record: rec, play: play}, nil
}

// Record captures length of audio into path. arecord counts whole seconds,
// so length is rounded up.
func (d *Device) Record(ctx context.Context, path string, length time.Duration) error {
	args := append([]string{"-q"}, recordFormat...)
	args = append(args, "-d", strconv.Itoa(seconds(length)), path)

	return d.run(ctx, d.record, args)
}

// Play blocks until path has been played.
func (d *Device) Play(ctx context.Context, path string) error {
	return d.run(ctx, d.play, []string{"-q", path})
}

func (d *Device) run(ctx context.Context, command string, args []string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		logger.Errorf("error running: %s %v; error was: %v, output was: %s", command, args, err, out)
		return err
	}
	logger.Tracef("%s %v; output was: %s", command, args, out)

	return nil
}

func seconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}

	return s
}
