package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"code.sztanpet.net/zvpsz/picad-vision/internal/audio"
	"code.sztanpet.net/zvpsz/picad-vision/internal/config"
	"code.sztanpet.net/zvpsz/picad-vision/internal/file"
	"code.sztanpet.net/zvpsz/picad-vision/internal/input"
	"code.sztanpet.net/zvpsz/picad-vision/internal/logwriter"
	"code.sztanpet.net/zvpsz/picad-vision/internal/speech"
	"github.com/juju/loggo"
	"github.com/spf13/cobra"
)

type sound interface {
	Record(ctx context.Context, path string, length time.Duration) error
	Play(ctx context.Context, path string) error
}

type voice interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type keyboard interface {
	WaitForKey(ctx context.Context) (rune, error)
}

type app struct {
	ctx  context.Context
	exit context.CancelFunc
	cfg  *config.Config
	out  io.Writer

	sound sound
	voice voice
	keys  keyboard
}

var logger = loggo.GetLogger("speech")

const (
	inputName  = "input.wav"
	outputName = "output.wav"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "speech",
		Short: "Repeat what was said through Cloud Speech-to-Text and Text-to-Speech",
		Long: `Records a few seconds of audio, has Cloud Speech-to-Text transcribe it,
prints the transcript, then has Cloud Text-to-Speech say it back.
Any key starts the next round, Ctrl+C or Ctrl+D stops.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), config.Get())
		},
	}
}

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, exit := context.WithCancel(parent)
	defer exit()

	if err := logwriter.Setup(nil, cfg.StatePath, cfg.LoggerSpec()); err != nil {
		panic("logwriter setup failed, impossible: " + err.Error())
	}

	a := &app{ctx: ctx, exit: exit, cfg: cfg, out: os.Stdout}
	a.handleSignals()

	if err := a.setup(); err != nil {
		logger.Criticalf("startup failed: %v", err)
		return err
	}

	keys, err := input.New()
	if err != nil {
		logger.Criticalf("terminal: %v", err)
		return err
	}
	defer keys.Close()
	a.keys = keys

	if err := a.loop(); err != nil {
		logger.Criticalf("%v", err)
		return err
	}

	return nil
}

func (a *app) handleSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		select {
		case s := <-c:
			logger.Warningf("Got signal: %s, exiting cleanly", s)
			a.exit()
		case <-a.ctx.Done():
		}
		signal.Stop(c)
	}()
}

func (a *app) setup() error {
	if err := file.EnsureDir(a.cfg.SoundDir); err != nil {
		return err
	}

	dev, err := audio.Open(a.cfg.RecordCommand, a.cfg.PlayCommand)
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	a.sound = dev

	c, err := speech.New(a.ctx, a.cfg.KeyFile, a.cfg.LanguageCode, a.cfg.VoiceGender)
	if err != nil {
		return err
	}
	a.voice = c

	return nil
}

// the terminal is in raw mode, lines need an explicit carriage return
func (a *app) say(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format+"\r\n", args...)
}

// loop runs rounds until a key stops it, the terminal goes away or the app is stopped.
func (a *app) loop() error {
	for {
		if err := a.round(); err != nil {
			if a.ctx.Err() != nil {
				logger.Infof("round abandoned: %v", err)
				return nil
			}
			return err
		}

		a.say("Press any key to continue...")
		r, err := a.keys.WaitForKey(a.ctx)
		if errors.Is(err, io.EOF) || a.ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		if r == input.KeyInterrupt || r == input.KeyEndTransmission {
			return nil
		}
	}
}

// round records, transcribes, and says the transcript back.
func (a *app) round() error {
	in := filepath.Join(a.cfg.SoundDir, inputName)
	out := filepath.Join(a.cfg.SoundDir, outputName)

	a.say("Say something")
	if err := a.sound.Record(a.ctx, in, a.cfg.RecordLength); err != nil {
		return fmt.Errorf("record: %w", err)
	}

	wav, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	text, err := a.voice.Transcribe(a.ctx, wav)
	if err != nil {
		return err
	}
	logger.Infof("heard: %q", text)

	if strings.TrimSpace(text) == "" {
		a.say("I heard nothing")
		return nil
	}
	a.say("I heard: %s", strings.ReplaceAll(text, "\n", "\r\n"))

	spoken, err := a.voice.Synthesize(a.ctx, text)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, spoken, 0644); err != nil {
		return err
	}

	if err := a.sound.Play(a.ctx, out); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	return nil
}
