package device

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// goCVCamera wraps an OpenCV capture handle.
type goCVCamera struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	width  int
	height int
	closed bool
}

// openGoCVCamera is the production CameraOpener. It requests the ideal
// resolution and reports what the device actually negotiated; the
// manager enforces the floor.
func openGoCVCamera(cfg CameraConfig) (CameraStream, error) {
	cap, err := gocv.OpenVideoCapture(0)
	if err != nil {
		return nil, asPermissionError(KindCamera, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, &PermissionError{
			Kind:  KindCamera,
			Class: ClassDeviceNotFound,
			Err:   fmt.Errorf("video capture device 0 did not open"),
		}
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.IdealWidth))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.IdealHeight))

	return &goCVCamera{
		cap:    cap,
		width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
		height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// Resolution returns the negotiated capture resolution.
func (c *goCVCamera) Resolution() (int, int) {
	return c.width, c.height
}

// Close releases the capture device.
func (c *goCVCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.cap.Close()
}

var _ CameraStream = (*goCVCamera)(nil)
