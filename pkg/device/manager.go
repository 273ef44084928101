package device

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"sync"
)

// Manager owns both device sessions. At most one session per kind is
// granted at a time; repeated requests while granted return the
// existing session. All methods are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	openMic MicOpener
	openCam CameraOpener
	micCfg  MicConfig
	camCfg  CameraConfig

	mic       Session
	cam       Session
	micStream MicStream
	camStream CameraStream

	logger *slog.Logger
}

// NewManager creates a manager backed by the platform devices
// (portaudio microphone, gocv camera).
func NewManager() *Manager {
	return NewManagerWith(openPortAudioMic, openGoCVCamera)
}

// NewManagerWith creates a manager with custom openers. Tests inject
// fakes here.
func NewManagerWith(mic MicOpener, cam CameraOpener) *Manager {
	return &Manager{
		openMic: mic,
		openCam: cam,
		micCfg:  DefaultMicConfig(),
		camCfg:  DefaultCameraConfig(),
		mic:     Session{Kind: KindMicrophone, Status: StatusIdle},
		cam:     Session{Kind: KindCamera, Status: StatusIdle},
		logger:  slog.Default().With("component", "device.manager"),
	}
}

// RequestMicrophone acquires the microphone with echo cancellation and
// noise suppression enabled. On failure the session status is denied
// (permission) or error (everything else), with a classified message.
func (m *Manager) RequestMicrophone(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mic.Granted() {
		return m.mic, nil
	}
	if err := ctx.Err(); err != nil {
		return m.mic, err
	}

	m.mic = Session{Kind: KindMicrophone, Status: StatusRequesting}

	stream, err := m.openMic(m.micCfg)
	if err != nil {
		perr := asPermissionError(KindMicrophone, err)
		m.mic.Err = perr
		if perr.Class == ClassPermissionDenied {
			m.mic.Status = StatusDenied
		} else {
			m.mic.Status = StatusError
		}
		m.logger.Warn("microphone request failed",
			"class", perr.Class,
			"error", err,
		)
		return m.mic, perr
	}

	m.micStream = stream
	m.mic.Status = StatusGranted
	m.logger.Info("microphone granted", "sample_rate", stream.SampleRate())
	return m.mic, nil
}

// RequestCamera acquires the camera at an ideal 1280x720 and rejects
// any negotiated resolution below the 640x480 floor, releasing the
// stream and surfacing a distinct resolution error.
func (m *Manager) RequestCamera(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cam.Granted() {
		return m.cam, nil
	}
	if err := ctx.Err(); err != nil {
		return m.cam, err
	}

	m.cam = Session{Kind: KindCamera, Status: StatusRequesting}

	stream, err := m.openCam(m.camCfg)
	if err != nil {
		perr := asPermissionError(KindCamera, err)
		m.cam.Err = perr
		if perr.Class == ClassPermissionDenied {
			m.cam.Status = StatusDenied
		} else {
			m.cam.Status = StatusError
		}
		m.logger.Warn("camera request failed",
			"class", perr.Class,
			"error", err,
		)
		return m.cam, perr
	}

	w, h := stream.Resolution()
	if w < m.camCfg.MinWidth || h < m.camCfg.MinHeight {
		stream.Close()
		perr := &PermissionError{Kind: KindCamera, Class: ClassResolutionTooLow}
		m.cam.Status = StatusError
		m.cam.Err = perr
		m.logger.Warn("camera rejected",
			"width", w,
			"height", h,
			"min_width", m.camCfg.MinWidth,
			"min_height", m.camCfg.MinHeight,
		)
		return m.cam, perr
	}

	m.camStream = stream
	m.cam.Status = StatusGranted
	m.cam.Width = w
	m.cam.Height = h
	m.logger.Info("camera granted", "width", w, "height", h)
	return m.cam, nil
}

// ReleaseMicrophone stops the microphone and resets its session to
// idle. Safe to call repeatedly.
func (m *Manager) ReleaseMicrophone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.micStream != nil {
		m.micStream.Close()
		m.micStream = nil
	}
	m.mic = Session{Kind: KindMicrophone, Status: StatusIdle}
}

// ReleaseCamera stops the camera and resets its session to idle.
// Safe to call repeatedly.
func (m *Manager) ReleaseCamera() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.camStream != nil {
		m.camStream.Close()
		m.camStream = nil
	}
	m.cam = Session{Kind: KindCamera, Status: StatusIdle}
}

// Close releases both devices. Callers defer this on every exit path.
func (m *Manager) Close() error {
	m.ReleaseMicrophone()
	m.ReleaseCamera()
	return nil
}

// Microphone returns the current microphone session snapshot.
func (m *Manager) Microphone() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mic
}

// Camera returns the current camera session snapshot.
func (m *Manager) Camera() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cam
}

// MicStream lends the granted microphone stream, or nil.
// Ownership stays with the manager; do not Close it.
func (m *Manager) MicStream() MicStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.micStream
}

// DeviceReport summarizes both sessions for the backend tech check.
func (m *Manager) DeviceReport() (audioPassed, cameraPassed bool, audioMeta, cameraMeta map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	audioPassed = m.mic.Granted()
	cameraPassed = m.cam.Granted()

	audioMeta = map[string]any{
		"sample_rate":       m.micCfg.SampleRate,
		"channels":          m.micCfg.Channels,
		"echo_cancellation": m.micCfg.EchoCancellation,
		"noise_suppression": m.micCfg.NoiseSuppression,
		"status":            m.mic.Status,
	}
	cameraMeta = map[string]any{
		"width":  m.cam.Width,
		"height": m.cam.Height,
		"status": m.cam.Status,
	}
	return audioPassed, cameraPassed, audioMeta, cameraMeta
}

// asPermissionError classifies an opener failure. Opener
// implementations may return a ready-made *PermissionError.
func asPermissionError(kind Kind, err error) *PermissionError {
	var perr *PermissionError
	if errors.As(err, &perr) {
		return perr
	}
	return &PermissionError{Kind: kind, Class: classify(err), Err: err}
}

// classify maps platform error text to a stable class. Heuristic by
// necessity: portaudio and OpenCV surface plain strings.
func classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "permission", "denied", "not authorized"):
		return ClassPermissionDenied
	case containsAny(msg, "no such device", "not found", "no device", "invalid device"):
		return ClassDeviceNotFound
	case containsAny(msg, "busy", "in use", "unavailable"):
		return ClassDeviceBusy
	case containsAny(msg, "not supported", "unsupported"):
		return ClassUnsupportedPlatform
	default:
		return ClassUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Platform returns the operating system for the tech check.
func Platform() string {
	return runtime.GOOS
}

// Arch returns the processor architecture for the tech check.
func Arch() string {
	return runtime.GOARCH
}
