package upload_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/voxhire/go-voxhire/pkg/upload"
)

// fakeSender scripts per-attempt outcomes and records every chunk it sees.
type fakeSender struct {
	mu       sync.Mutex
	seen     []upload.Chunk
	attempts int

	// failures is the number of leading attempts that fail with failErr.
	failures int
	failErr  error
}

func (f *fakeSender) SendChunk(ctx context.Context, interviewID string, chunk upload.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return f.failErr
	}
	f.seen = append(f.seen, chunk)
	return nil
}

func (f *fakeSender) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func testConfig() upload.Config {
	return upload.Config{MaxRetries: 3, BackoffBase: time.Millisecond}
}

func TestUploadSuccess(t *testing.T) {
	sender := &fakeSender{}
	p := upload.NewPipeline(sender, "iv-1", testConfig())

	if err := p.Upload(context.Background(), upload.Chunk{Seq: 0, Payload: []byte("a")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.attemptCount() != 1 {
		t.Errorf("expected 1 attempt, got %d", sender.attemptCount())
	}
	if p.Uploaded() != 1 {
		t.Errorf("expected 1 uploaded, got %d", p.Uploaded())
	}
}

func TestUploadRetriesThenSucceeds(t *testing.T) {
	sender := &fakeSender{failures: 2, failErr: errors.New("connection reset")}
	p := upload.NewPipeline(sender, "iv-1", testConfig())

	if err := p.Upload(context.Background(), upload.Chunk{Seq: 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.attemptCount() != 3 {
		t.Errorf("expected 3 attempts, got %d", sender.attemptCount())
	}
}

func TestUploadExhaustsRetries(t *testing.T) {
	sender := &fakeSender{failures: 100, failErr: errors.New("network down")}
	p := upload.NewPipeline(sender, "iv-1", testConfig())

	err := p.Upload(context.Background(), upload.Chunk{Seq: 0})
	if err == nil {
		t.Fatal("expected terminal error")
	}

	var term *upload.TerminalError
	if !errors.As(err, &term) {
		t.Fatalf("expected *TerminalError, got %T: %v", err, err)
	}
	// 4 total attempts: the first plus exactly 3 retries.
	if term.Attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", term.Attempts)
	}
	if sender.attemptCount() != 4 {
		t.Errorf("expected 4 send calls, got %d", sender.attemptCount())
	}
}

func TestUploadQuotaIsTerminalImmediately(t *testing.T) {
	sender := &fakeSender{
		failures: 100,
		failErr:  &upload.APIError{StatusCode: http.StatusInsufficientStorage, Endpoint: "video/upload"},
	}
	p := upload.NewPipeline(sender, "iv-1", testConfig())

	err := p.Upload(context.Background(), upload.Chunk{Seq: 0})
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if !errors.Is(err, upload.ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded, got %v", err)
	}

	var term *upload.TerminalError
	if !errors.As(err, &term) {
		t.Fatalf("expected *TerminalError, got %T", err)
	}
	if term.Attempts != 1 {
		t.Errorf("quota must yield exactly 1 attempt, got %d", term.Attempts)
	}
}

func TestUploadUnauthorizedIsFatal(t *testing.T) {
	sender := &fakeSender{
		failures: 100,
		failErr:  &upload.APIError{StatusCode: http.StatusUnauthorized, Endpoint: "video/upload"},
	}
	p := upload.NewPipeline(sender, "iv-1", testConfig())

	err := p.Upload(context.Background(), upload.Chunk{Seq: 0})
	var term *upload.TerminalError
	if !errors.As(err, &term) {
		t.Fatalf("expected *TerminalError, got %T", err)
	}
	if !term.IsFatal() {
		t.Error("lost authentication should be fatal")
	}
	if term.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", term.Attempts)
	}
}

func TestUploadRejectsOutOfOrderChunk(t *testing.T) {
	sender := &fakeSender{}
	p := upload.NewPipeline(sender, "iv-1", testConfig())

	err := p.Upload(context.Background(), upload.Chunk{Seq: 5})
	if !errors.Is(err, upload.ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
	if sender.attemptCount() != 0 {
		t.Error("out-of-order chunk must not reach the sender")
	}
}

func TestRunPreservesOrderAndFinal(t *testing.T) {
	sender := &fakeSender{}
	p := upload.NewPipeline(sender, "iv-1", testConfig())

	chunks := make(chan upload.Chunk, 4)
	for i := 0; i < 4; i++ {
		chunks <- upload.Chunk{Seq: i, Payload: []byte{byte(i)}, Final: i == 3}
	}
	close(chunks)

	if err := p.Run(context.Background(), chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.seen) != 4 {
		t.Fatalf("expected 4 chunks delivered, got %d", len(sender.seen))
	}
	for i, c := range sender.seen {
		if c.Seq != i {
			t.Errorf("chunk %d delivered with seq %d", i, c.Seq)
		}
	}
	if !sender.seen[len(sender.seen)-1].Final {
		t.Error("last delivered chunk must be final")
	}
}

func TestRunCancellation(t *testing.T) {
	sender := &fakeSender{failures: 100, failErr: errors.New("slow network")}
	p := upload.NewPipeline(sender, "iv-1", upload.Config{MaxRetries: 3, BackoffBase: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	chunks := make(chan upload.Chunk, 1)
	chunks <- upload.Chunk{Seq: 0}

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, chunks) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestProgress(t *testing.T) {
	cases := []struct {
		uploaded, total, want int
	}{
		{0, 10, 0},
		{5, 10, 50},
		{10, 10, 100},
		{1, 3, 33},
		{2, 3, 67},
		{7, 0, 0},
		{0, 0, 0},
	}
	for _, c := range cases {
		if got := upload.Progress(c.uploaded, c.total); got != c.want {
			t.Errorf("Progress(%d, %d) = %d, want %d", c.uploaded, c.total, got, c.want)
		}
	}
}
