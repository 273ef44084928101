package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// portAudioMic captures PCM16 mono audio from the default input device.
type portAudioMic struct {
	cfg    MicConfig
	stream *portaudio.Stream
	buffer []int16

	mu      sync.Mutex
	frames  chan []int16
	started bool
	closed  bool
}

// openPortAudioMic is the production MicOpener.
func openPortAudioMic(cfg MicConfig) (MicStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, &PermissionError{Kind: KindMicrophone, Class: ClassDeviceNotFound, Err: err}
	}

	buffer := make([]int16, 512)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: cfg.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: len(buffer),
	}, buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, asPermissionError(KindMicrophone, err)
	}

	return &portAudioMic{
		cfg:    cfg,
		stream: stream,
		buffer: buffer,
		frames: make(chan []int16, 8),
	}, nil
}

// Start begins the capture read loop.
func (m *portAudioMic) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("device [microphone]: stream closed")
	}
	if m.started {
		return nil
	}

	if err := m.stream.Start(); err != nil {
		return asPermissionError(KindMicrophone, err)
	}
	m.started = true

	go func() {
		defer close(m.frames)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := m.stream.Read(); err != nil {
				return
			}
			frame := make([]int16, len(m.buffer))
			copy(frame, m.buffer)
			select {
			case m.frames <- frame:
			case <-ctx.Done():
				return
			default:
				// Drop the frame when the consumer lags.
			}
		}
	}()
	return nil
}

// Frames returns the PCM16 frame channel.
func (m *portAudioMic) Frames() <-chan []int16 {
	return m.frames
}

// SampleRate returns the capture sample rate.
func (m *portAudioMic) SampleRate() int {
	return m.cfg.SampleRate
}

// Close stops capture and releases portaudio.
func (m *portAudioMic) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.started {
		m.stream.Stop()
	}
	m.stream.Close()
	portaudio.Terminate()
	return nil
}

var _ MicStream = (*portAudioMic)(nil)
