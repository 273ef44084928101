// Package playback plays AI response audio through the default output
// device and signals completion so the turn machine can hand the floor
// back to the candidate.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// blockSamples is the number of samples written per output block.
const blockSamples = 1024

// sink is a writable audio output stream.
type sink interface {
	Write(pcm []int16) error
	Close() error
}

// sinkOpener opens an output sink. Tests inject fakes.
type sinkOpener func(sampleRate, channels int) (sink, error)

// Error marks a playback failure. Callers degrade to a text-only
// fallback rather than failing the session.
type Error struct {
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("playback: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Player plays PCM16 audio buffers to completion.
type Player struct {
	sampleRate int
	channels   int
	open       sinkOpener
	logger     *slog.Logger

	// OnPlaybackStart fires when the first block is written.
	OnPlaybackStart func()

	// OnPlaybackEnd fires when playback completes or is stopped.
	OnPlaybackEnd func()

	mu      sync.Mutex
	playing bool
	cancel  context.CancelFunc
}

// NewPlayer creates a player for the default output device.
func NewPlayer(sampleRate, channels int) *Player {
	return &Player{
		sampleRate: sampleRate,
		channels:   channels,
		open:       openPortAudioSink,
		logger:     slog.Default().With("component", "playback.player"),
	}
}

// Play writes the buffer to the output device and blocks until playback
// completes, the context is cancelled, or Stop is called. Returns
// *Error on device failure.
func (p *Player) Play(ctx context.Context, pcm []int16) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return &Error{Err: fmt.Errorf("already playing")}
	}
	p.playing = true
	p.cancel = cancel
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.playing = false
		p.cancel = nil
		p.mu.Unlock()
		if p.OnPlaybackEnd != nil {
			p.OnPlaybackEnd()
		}
	}()

	out, err := p.open(p.sampleRate, p.channels)
	if err != nil {
		return &Error{Err: err}
	}
	defer out.Close()

	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart()
	}

	block := blockSamples * p.channels
	for off := 0; off < len(pcm); off += block {
		if err := ctx.Err(); err != nil {
			p.logger.Debug("playback interrupted", "offset", off, "total", len(pcm))
			return nil
		}
		end := off + block
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := out.Write(pcm[off:end]); err != nil {
			return &Error{Err: err}
		}
	}
	return nil
}

// Stop interrupts playback in progress. Safe to call when idle.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Playing reports whether a buffer is currently being played.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// PCM16FromBytes converts little-endian PCM16 bytes to samples.
func PCM16FromBytes(data []byte) []int16 {
	pcm := make([]int16, len(data)/2)
	for i := range pcm {
		pcm[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return pcm
}

// portAudioSink writes to the default output device.
type portAudioSink struct {
	stream *portaudio.Stream
	buffer []int16
}

func openPortAudioSink(sampleRate, channels int) (sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	buffer := make([]int16, blockSamples*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), blockSamples, buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start output stream: %w", err)
	}
	return &portAudioSink{stream: stream, buffer: buffer}, nil
}

func (s *portAudioSink) Write(pcm []int16) error {
	copy(s.buffer, pcm)
	// Zero-fill the tail of a short final block.
	for i := len(pcm); i < len(s.buffer); i++ {
		s.buffer[i] = 0
	}
	return s.stream.Write()
}

func (s *portAudioSink) Close() error {
	s.stream.Stop()
	err := s.stream.Close()
	portaudio.Terminate()
	return err
}
