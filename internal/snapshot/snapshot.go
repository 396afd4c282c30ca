// Package snapshot names captured images and prepares them for upload.
package snapshot

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"time"

	"code.sztanpet.net/zvpsz/picad-vision/internal/file"
	"golang.org/x/image/draw"
)

const jpegQuality = 90

type Dir struct {
	Path string
}

// NewPath makes sure the directory exists and returns the file name for a
// capture taken at t: unix seconds and microseconds.
func (d Dir) NewPath(t time.Time) (string, error) {
	if err := file.EnsureDir(d.Path); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d.%06d.jpg", t.Unix(), t.Nanosecond()/int(time.Microsecond))
	return filepath.Join(d.Path, name), nil
}

// Shrink scales a JPEG down so its longest side is at most maxDim pixels.
// Images that already fit, and maxDim <= 0, are returned as is.
func Shrink(data []byte, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		return data, nil
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg header: %w", err)
	}
	if cfg.Width <= maxDim && cfg.Height <= maxDim {
		return data, nil
	}

	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}

	w, h := fit(cfg.Width, cfg.Height, maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}

func fit(w, h, maxDim int) (int, int) {
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}

	return max(1, w*maxDim/h), maxDim
}
