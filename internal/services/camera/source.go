// Package camera provides the image sources a tracking session captures from.
package camera

import (
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"diettracker/internal/logger"
)

const (
	keySpace  = 32
	keyEscape = 27
)

// FileSource reads a photo from disk. A missing file is a cancelled capture,
// not an error.
type FileSource struct {
	Path string
}

// Capture implements session.ImageSource.
func (f FileSource) Capture() ([]byte, bool, error) {
	if f.Path == "" {
		return nil, false, nil
	}

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read image %s: %w", f.Path, err)
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

// BytesSource hands over an image that was already received, e.g. an upload.
type BytesSource []byte

// Capture implements session.ImageSource.
func (b BytesSource) Capture() ([]byte, bool, error) {
	if len(b) == 0 {
		return nil, false, nil
	}
	return []byte(b), true, nil
}

// WebcamSource shows a live preview window. SPACE captures the current frame,
// ESC cancels.
type WebcamSource struct {
	Device int
	Title  string
	Logger *logger.Logger
}

// Capture implements session.ImageSource.
func (w WebcamSource) Capture() ([]byte, bool, error) {
	webcam, err := gocv.OpenVideoCapture(w.Device)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open camera %d: %w", w.Device, err)
	}
	defer webcam.Close()

	title := w.Title
	if title == "" {
		title = "Press SPACE to capture, ESC to cancel"
	}
	window := gocv.NewWindow(title)
	defer window.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if ok := webcam.Read(&frame); !ok {
			return nil, false, fmt.Errorf("cannot read frame from camera %d", w.Device)
		}
		if frame.Empty() {
			continue
		}

		window.IMShow(frame)
		switch window.WaitKey(1) {
		case keySpace:
			buf, err := gocv.IMEncode(".jpg", frame)
			if err != nil {
				return nil, false, fmt.Errorf("failed to encode frame: %w", err)
			}
			data := make([]byte, buf.Len())
			copy(data, buf.GetBytes())
			buf.Close()

			if w.Logger != nil {
				w.Logger.Info("Captured frame from camera %d (%d bytes)", w.Device, len(data))
			}
			return data, true, nil
		case keyEscape:
			if w.Logger != nil {
				w.Logger.Info("Capture cancelled")
			}
			return nil, false, nil
		}
	}
}
