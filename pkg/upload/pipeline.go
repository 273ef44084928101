// Package upload delivers captured media chunks to the backend in order,
// with bounded retry and clear terminal-failure semantics.
package upload

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Chunk is one bounded slice of captured media.
// Seq starts at 0 and increases by one per session; the chunk with
// Final set is always the last one enqueued. Chunks are immutable
// after creation and consumed exactly once.
type Chunk struct {
	Seq     int
	Payload []byte
	Final   bool
}

// Sender delivers a single chunk attempt to the backend.
// Implementations must return *APIError for non-2xx responses so the
// pipeline can classify retryability.
type Sender interface {
	SendChunk(ctx context.Context, interviewID string, chunk Chunk) error
}

// Config holds the retry policy for the pipeline.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BackoffBase is the unit for exponential backoff:
	// delay = 2^attempt * BackoffBase.
	BackoffBase time.Duration
}

// DefaultConfig returns the production retry policy: 4 attempts total
// with 1s/2s/4s backoff between them.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		BackoffBase: time.Second,
	}
}

// Pipeline uploads chunks strictly in sequence order. Chunk n+1 is not
// attempted until chunk n resolves with success or terminal failure.
// A Pipeline serves a single session loop and is not safe for
// concurrent use.
type Pipeline struct {
	sender      Sender
	interviewID string
	cfg         Config
	logger      *slog.Logger

	nextSeq  int
	uploaded int
}

// NewPipeline creates a pipeline for one interview session.
func NewPipeline(sender Sender, interviewID string, cfg Config) *Pipeline {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig().BackoffBase
	}
	return &Pipeline{
		sender:      sender,
		interviewID: interviewID,
		cfg:         cfg,
		logger:      slog.Default().With("component", "upload.pipeline"),
	}
}

// Upload delivers one chunk, retrying transient failures with exponential
// backoff. It returns nil on success, ctx.Err() on cancellation, and a
// *TerminalError when the chunk is undeliverable.
func (p *Pipeline) Upload(ctx context.Context, chunk Chunk) error {
	if chunk.Seq != p.nextSeq {
		return &TerminalError{Seq: chunk.Seq, Attempts: 0, Err: ErrOutOfOrder}
	}

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// delay = 2^(attempt-1) * base for the wait before this attempt
			delay := p.cfg.BackoffBase << (attempt - 1)
			p.logger.Warn("retrying chunk upload",
				"seq", chunk.Seq,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := p.sender.SendChunk(ctx, p.interviewID, chunk)
		if err == nil {
			p.nextSeq++
			p.uploaded++
			p.logger.Debug("chunk uploaded",
				"seq", chunk.Seq,
				"final", chunk.Final,
				"attempts", attempt+1,
			)
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			if apiErr.IsQuota() {
				lastErr = ErrQuotaExceeded
			}
			return &TerminalError{Seq: chunk.Seq, Attempts: attempt + 1, Err: lastErr}
		}
	}

	return &TerminalError{Seq: chunk.Seq, Attempts: p.cfg.MaxRetries + 1, Err: lastErr}
}

// Run consumes chunks until the channel closes, the context is cancelled,
// or a chunk fails terminally. The error, if any, is the first terminal
// failure or the context error.
func (p *Pipeline) Run(ctx context.Context, chunks <-chan Chunk) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return nil
			}
			if err := p.Upload(ctx, chunk); err != nil {
				return err
			}
		}
	}
}

// Uploaded returns the number of successfully delivered chunks.
func (p *Pipeline) Uploaded() int {
	return p.uploaded
}

// Progress returns the percentage of uploaded chunks, rounded to the
// nearest integer. A zero total yields 0.
func Progress(uploaded, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(uploaded)/float64(total)*100 + 0.5)
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
