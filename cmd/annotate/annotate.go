package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sztanpet.net/zvpsz/picad-vision/internal/snapshot"
	"code.sztanpet.net/zvpsz/picad-vision/internal/storage"
)

const (
	promptTop    = "Press any button"
	promptBottom = "to take a photo"
)

func (a *app) resetScreen() error {
	if err := a.show(false, promptTop); err != nil {
		return err
	}
	if a.cfg.LCDRows < 2 {
		return nil
	}
	if err := a.screen.SetCursor(0, 1); err != nil {
		return err
	}

	return a.screen.Write(promptBottom)
}

func (a *app) annotatePicture() error {
	if a.viewer != nil {
		a.viewer.Close()
	}

	if err := a.show(true, "Snap!"); err != nil {
		return err
	}

	taken := a.now()
	path, err := a.snaps.NewPath(taken)
	if err != nil {
		return fmt.Errorf("snap dir: %w", err)
	}
	if err := a.camera.Capture(a.ctx, path); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	logger.Infof("captured %v", path)

	if err := a.show(false, "Wait..."); err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	content, err = snapshot.Shrink(content, a.cfg.UploadMaxDim)
	if err != nil {
		return fmt.Errorf("shrink %v: %w", filepath.Base(path), err)
	}

	labels, err := a.labeler.Labels(a.ctx, content)
	if err != nil {
		return err
	}
	logger.Infof("labels for %v: %v", filepath.Base(path), strings.Join(labels, ", "))

	if err := a.showLabels(labels); err != nil {
		return err
	}

	a.record(storage.Annotation{Image: path, Labels: labels, CreatedAt: taken})

	if a.viewer != nil {
		if err := a.viewer.Show(path); err != nil {
			logger.Warningf("preview failed: %v", err)
		}
	}

	return nil
}

func (a *app) show(backlight bool, text string) error {
	if err := a.screen.Clear(); err != nil {
		return err
	}

	var err error
	if backlight {
		err = a.screen.BacklightOn()
	} else {
		err = a.screen.BacklightOff()
	}
	if err != nil {
		return err
	}

	return a.screen.Write(text)
}

func (a *app) showLabels(labels []string) error {
	if err := a.screen.Clear(); err != nil {
		return err
	}
	if err := a.screen.BacklightOn(); err != nil {
		return err
	}

	for row, label := range labels {
		if row >= a.cfg.LCDRows {
			break
		}
		if err := a.screen.SetCursor(0, row); err != nil {
			return err
		}
		if err := a.screen.Write(label); err != nil {
			return err
		}
	}

	return nil
}

// record journals the annotation and posts the snap, neither is allowed to fail a press.
func (a *app) record(an storage.Annotation) {
	if a.journal != nil {
		if err := a.journal.Insert(an); err != nil {
			logger.Errorf("journal insert failed: %v", err)
		}
	}

	if a.photos != nil {
		caption := strings.Join(an.Labels, ", ")
		go func() {
			if err := a.photos.SendPhoto(an.Image, caption); err != nil {
				logger.Warningf("sending %v failed: %v", filepath.Base(an.Image), err)
			}
		}()
	}
}
