package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeSink records written samples.
type fakeSink struct {
	mu      sync.Mutex
	written int
	failOn  int // fail at this write count, 0 = never
	writes  int
	closed  bool
}

func (f *fakeSink) Write(pcm []int16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failOn > 0 && f.writes >= f.failOn {
		return errors.New("device lost")
	}
	f.written += len(pcm)
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestPlayer(s *fakeSink) *Player {
	p := NewPlayer(16000, 1)
	p.open = func(sampleRate, channels int) (sink, error) { return s, nil }
	return p
}

func TestPlayCompletes(t *testing.T) {
	s := &fakeSink{}
	p := newTestPlayer(s)

	var started, ended bool
	p.OnPlaybackStart = func() { started = true }
	p.OnPlaybackEnd = func() { ended = true }

	pcm := make([]int16, 3000)
	if err := p.Play(context.Background(), pcm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !started || !ended {
		t.Errorf("expected callbacks, got start=%v end=%v", started, ended)
	}
	if s.written != 3000 {
		t.Errorf("expected 3000 samples written, got %d", s.written)
	}
	if !s.closed {
		t.Error("expected sink closed")
	}
	if p.Playing() {
		t.Error("player should be idle after completion")
	}
}

func TestPlayDeviceFailure(t *testing.T) {
	s := &fakeSink{failOn: 1}
	p := newTestPlayer(s)

	var ended bool
	p.OnPlaybackEnd = func() { ended = true }

	err := p.Play(context.Background(), make([]int16, 3000))
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *playback.Error, got %T: %v", err, err)
	}
	if !ended {
		t.Error("end callback must fire even on failure")
	}
}

func TestPlayOpenFailure(t *testing.T) {
	p := NewPlayer(16000, 1)
	p.open = func(sampleRate, channels int) (sink, error) {
		return nil, errors.New("autoplay blocked")
	}

	err := p.Play(context.Background(), make([]int16, 100))
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *playback.Error, got %v", err)
	}
}

func TestPlayCancelled(t *testing.T) {
	s := &fakeSink{}
	p := newTestPlayer(s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Cancelled playback is not an error; the session falls back to text.
	if err := p.Play(ctx, make([]int16, 100000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.written == 100000 {
		t.Error("expected playback to stop early")
	}
}

func TestPCM16FromBytes(t *testing.T) {
	data := []byte{0x01, 0x00, 0xFF, 0xFF}
	pcm := PCM16FromBytes(data)
	if len(pcm) != 2 || pcm[0] != 1 || pcm[1] != -1 {
		t.Errorf("unexpected decode: %v", pcm)
	}
}
