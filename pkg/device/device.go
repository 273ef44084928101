// Package device acquires and releases the microphone and camera for an
// interview session, enforcing a minimum video capability. It is the
// exclusive owner of both device handles; consumers borrow streams and
// never release them directly.
package device

import (
	"context"
	"fmt"
)

// Kind identifies a capture device.
type Kind string

const (
	KindMicrophone Kind = "microphone"
	KindCamera     Kind = "camera"
)

// Status is the lifecycle state of a device session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRequesting Status = "requesting"
	StatusGranted    Status = "granted"
	StatusDenied     Status = "denied"
	StatusError      Status = "error"
)

// ErrorClass classifies a device acquisition failure. Each class maps
// to a stable human-readable message so raw platform error text never
// reaches primary UI copy.
type ErrorClass string

const (
	ClassPermissionDenied    ErrorClass = "permission-denied"
	ClassDeviceNotFound      ErrorClass = "device-not-found"
	ClassDeviceBusy          ErrorClass = "device-busy"
	ClassResolutionTooLow    ErrorClass = "resolution-too-low"
	ClassUnsupportedPlatform ErrorClass = "unsupported-platform"
	ClassUnknown             ErrorClass = "unknown"
)

// userMessages are the display strings per error class.
var userMessages = map[ErrorClass]string{
	ClassPermissionDenied:    "Access to the device was denied. Grant permission and try again.",
	ClassDeviceNotFound:      "No capture device was found. Connect a device and try again.",
	ClassDeviceBusy:          "The device is in use by another application.",
	ClassResolutionTooLow:    "The camera resolution is too low for the interview (640x480 minimum).",
	ClassUnsupportedPlatform: "Device capture is not supported on this platform.",
	ClassUnknown:             "The device could not be accessed.",
}

// PermissionError is a classified device acquisition failure. The raw
// platform error is retained for diagnostics only.
type PermissionError struct {
	Kind  Kind
	Class ErrorClass
	Err   error
}

// Error implements the error interface.
func (e *PermissionError) Error() string {
	return fmt.Sprintf("device [%s]: %s (%s)", e.Kind, e.Message(), e.Class)
}

// Message returns the user-facing text for this failure class.
func (e *PermissionError) Message() string {
	return userMessages[e.Class]
}

// Unwrap returns the underlying platform error.
func (e *PermissionError) Unwrap() error {
	return e.Err
}

// IsBlocking reports whether the failure prevents the interview from
// proceeding until the user resolves it. All permission errors do.
func (e *PermissionError) IsBlocking() bool {
	return true
}

// Session is a snapshot of one device's lifecycle state.
type Session struct {
	Kind   Kind             `json:"kind"`
	Status Status           `json:"status"`
	Width  int              `json:"width,omitempty"`  // camera only
	Height int              `json:"height,omitempty"` // camera only
	Err    *PermissionError `json:"-"`
}

// Granted reports whether the session holds a live stream.
func (s Session) Granted() bool {
	return s.Status == StatusGranted
}

// MicStream is a live microphone capture handle. Close stops the
// underlying tracks.
type MicStream interface {
	// Start begins delivering PCM16 mono frames on Frames.
	Start(ctx context.Context) error

	// Frames returns the capture channel. Closed when the stream stops.
	Frames() <-chan []int16

	// SampleRate returns the capture sample rate in Hz.
	SampleRate() int

	// Close stops capture and releases the device.
	Close() error
}

// CameraStream is a live camera capture handle.
type CameraStream interface {
	// Resolution returns the negotiated capture resolution.
	Resolution() (width, height int)

	// Close stops capture and releases the device.
	Close() error
}

// MicOpener acquires a microphone stream.
type MicOpener func(cfg MicConfig) (MicStream, error)

// CameraOpener acquires a camera stream.
type CameraOpener func(cfg CameraConfig) (CameraStream, error)

// MicConfig holds microphone acquisition parameters.
type MicConfig struct {
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
}

// DefaultMicConfig returns 16kHz mono capture with echo cancellation
// and noise suppression enabled.
func DefaultMicConfig() MicConfig {
	return MicConfig{
		SampleRate:       16000,
		Channels:         1,
		EchoCancellation: true,
		NoiseSuppression: true,
	}
}

// CameraConfig holds camera acquisition parameters.
type CameraConfig struct {
	IdealWidth  int
	IdealHeight int
	MinWidth    int
	MinHeight   int
}

// DefaultCameraConfig requests 1280x720 with a 640x480 floor.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		IdealWidth:  1280,
		IdealHeight: 720,
		MinWidth:    640,
		MinHeight:   480,
	}
}
