package main

import (
	"context"
	"os"
	"sync"
	"time"

	"code.sztanpet.net/zvpsz/picad-vision/internal/cad"
	"code.sztanpet.net/zvpsz/picad-vision/internal/config"
	"code.sztanpet.net/zvpsz/picad-vision/internal/snapshot"
	"code.sztanpet.net/zvpsz/picad-vision/internal/storage"
	"code.sztanpet.net/zvpsz/picad-vision/internal/switches"
	"code.sztanpet.net/zvpsz/picad-vision/internal/telegram"
	"github.com/juju/loggo"
	"github.com/spf13/cobra"
)

type screen interface {
	Clear() error
	SetCursor(col, row int) error
	Write(text string) error
	BacklightOn() error
	BacklightOff() error
}

type capturer interface {
	Capture(ctx context.Context, path string) error
	Close() error
}

type labeler interface {
	Labels(ctx context.Context, content []byte) ([]string, error)
}

type listener interface {
	Register(pin int, d switches.Direction, h switches.Handler) error
	Activate(ctx context.Context) error
	Deactivate()
}

type viewer interface {
	Show(path string) error
	Close()
}

type journal interface {
	Insert(a storage.Annotation) error
}

type photoSender interface {
	SendPhoto(path, caption string) error
}

type app struct {
	ctx  context.Context
	exit context.CancelFunc
	cfg  *config.Config
	now  func() time.Time

	board    *cad.CAD
	screen   screen
	listener listener
	camera   capturer
	labeler  labeler
	snaps    snapshot.Dir
	viewer   viewer
	journal  journal
	bot      *telegram.Bot
	photos   photoSender

	// mu serialises presses
	mu    sync.Mutex
	state State

	errMu sync.Mutex
	err   error
}

var logger = loggo.GetLogger("annotate")

const stopPrompt = "Press Pi button to take a picture, or Enter to stop. "

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "annotate",
		Short: "Label photos taken with the Pi camera using Google Cloud Vision",
		Long: `Waits for a PiFaceCAD button press, takes a photo, asks Google Cloud Vision
for labels and shows the first ones on the LCD. Press a button again to get
back to the prompt. Enter stops the program.`,
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

	a := &app{
		ctx:   ctx,
		exit:  exit,
		cfg:   cfg,
		now:   time.Now,
		snaps: snapshot.Dir{Path: cfg.SnapDir},
	}
	// logging sends messages to telegram, so it depends on it
	a.setupTelegram()
	a.setupLogging()
	a.handleSignals()

	if err := a.setupHardware(); err != nil {
		logger.Criticalf("startup failed: %v", err)
		return err
	}
	defer a.stop()

	if err := a.setupStorage(); err != nil {
		logger.Criticalf("failed to initialize storage: %v", err)
		return err
	}
	a.setupPreview()

	if err := a.start(); err != nil {
		logger.Criticalf("failed to start: %v", err)
		return err
	}
	a.setupRemote()

	a.waitForExit()

	return a.fatalErr()
}

// fail records the first fatal error and stops the app.
func (a *app) fail(err error) {
	logger.Criticalf("%v", err)

	a.errMu.Lock()
	if a.err == nil {
		a.err = err
	}
	a.errMu.Unlock()

	a.exit()
}

func (a *app) fatalErr() error {
	a.errMu.Lock()
	defer a.errMu.Unlock()

	return a.err
}
