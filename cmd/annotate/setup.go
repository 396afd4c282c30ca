package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.sztanpet.net/zvpsz/picad-vision/internal/cad"
	"code.sztanpet.net/zvpsz/picad-vision/internal/camera"
	"code.sztanpet.net/zvpsz/picad-vision/internal/input"
	"code.sztanpet.net/zvpsz/picad-vision/internal/logwriter"
	"code.sztanpet.net/zvpsz/picad-vision/internal/preview"
	"code.sztanpet.net/zvpsz/picad-vision/internal/storage"
	"code.sztanpet.net/zvpsz/picad-vision/internal/switches"
	"code.sztanpet.net/zvpsz/picad-vision/internal/telegram"
	"code.sztanpet.net/zvpsz/picad-vision/internal/vision"
	"golang.org/x/sync/errgroup"
)

func (a *app) handleSignals() {
	if a.ctx.Err() != nil {
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		select {
		case s := <-c:
			// exit unconditionally on any signal
			logger.Warningf("Got signal: %s, exiting cleanly", s)
			a.exit()
		case <-a.ctx.Done():
		}
		signal.Stop(c)
	}()
}

func (a *app) setupLogging() {
	if a.ctx.Err() != nil {
		return
	}

	var n logwriter.Notifier
	if a.bot != nil {
		n = a.bot
	}
	err := logwriter.Setup(n, a.cfg.StatePath, a.cfg.LoggerSpec())
	if err != nil {
		panic("logwriter setup failed, impossible: " + err.Error())
	}
}

func (a *app) setupTelegram() {
	if a.ctx.Err() != nil || a.cfg.TelegramToken == "" {
		return
	}

	bot, err := telegram.New(a.ctx, a.cfg.TelegramToken, a.cfg.TelegramChannelID)
	if err != nil {
		// logging is not set up yet
		fmt.Fprintf(os.Stderr, "telegram disabled: %v\n", err)
		return
	}

	a.bot = bot
	a.photos = bot
	_ = a.bot.Send("annotate start @ "+time.Now().Format(time.RFC3339), true)
}

// setupHardware opens the camera, the vision client and the PiFaceCAD concurrently.
func (a *app) setupHardware() error {
	var (
		board *cad.CAD
		cam   *camera.Still
		vc    *vision.Client
	)

	var g errgroup.Group
	g.Go(func() error {
		c, err := camera.Open(a.cfg.CameraCommand, a.cfg.CameraWidth, a.cfg.CameraHeight, a.cfg.CameraWarmup)
		if err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
		cam = c
		return nil
	})
	g.Go(func() error {
		c, err := vision.New(a.ctx, a.cfg.KeyFile, a.cfg.MaxLabels)
		if err != nil {
			return fmt.Errorf("vision client: %w", err)
		}
		vc = c
		return nil
	})
	g.Go(func() error {
		b, err := cad.Open(a.cfg)
		if err != nil {
			return fmt.Errorf("open PiFaceCAD: %w", err)
		}
		board = b
		return nil
	})

	if err := g.Wait(); err != nil {
		if cam != nil {
			_ = cam.Close()
		}
		if board != nil {
			_ = board.Close()
		}
		return err
	}

	l, err := board.Listener(a.cfg.Debounce)
	if err != nil {
		_ = cam.Close()
		_ = board.Close()
		return err
	}

	a.board = board
	a.screen = board.LCD
	a.listener = l
	a.camera = cam
	a.labeler = vc

	return nil
}

func (a *app) setupStorage() error {
	if a.ctx.Err() != nil || a.cfg.DatabaseDSN == "" {
		return nil
	}

	s, err := storage.New(a.ctx, a.cfg.StatePath, a.cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	a.journal = s

	return nil
}

func (a *app) setupPreview() {
	if a.ctx.Err() != nil || !a.cfg.Preview {
		return
	}

	a.viewer = preview.NewDisplay()
}

// setupRemote lets the telegram channel take pictures with /snap.
func (a *app) setupRemote() {
	if a.ctx.Err() != nil || a.bot == nil {
		return
	}

	go func() {
		err := a.bot.HandleUpdates(a.handleTelegramMessage, true)
		if err != nil {
			logger.Errorf("HandleUpdates error: %v", err)
		}
	}()
}

func (a *app) handleTelegramMessage(msg string) {
	if !a.bot.IsCommand(msg, "snap") {
		return
	}

	a.handlePress(switches.Event{
		Pin:       -1,
		Direction: switches.Pressed,
		Timestamp: a.now(),
	})
}

// waitForExit blocks until Enter is pressed on the terminal or the app is stopped.
// Without a terminal only signals and fatal errors stop the app.
func (a *app) waitForExit() {
	in, err := input.New()
	if err != nil {
		logger.Infof("no terminal (%v), waiting for a signal", err)
		<-a.ctx.Done()
		return
	}
	defer in.Close()

	fmt.Print(stopPrompt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := in.WaitForEnter(a.ctx); err != nil && a.ctx.Err() == nil {
			logger.Warningf("reading terminal failed: %v", err)
		}
	}()

	select {
	case <-done:
		fmt.Print("\r\n")
		logger.Infof("stopped from the terminal")
		a.exit()
	case <-a.ctx.Done():
	}
}

func (a *app) stop() {
	if a.listener != nil {
		a.listener.Deactivate()
	}
	if a.viewer != nil {
		a.viewer.Close()
	}
	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			logger.Warningf("camera close: %v", err)
		}
	}
	if a.board != nil {
		if err := a.board.Close(); err != nil {
			logger.Warningf("PiFaceCAD close: %v", err)
		}
	}
}
