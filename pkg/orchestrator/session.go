// Package orchestrator runs one interview session: it acquires devices,
// drives the turn machine, feeds captured audio through the chunked
// upload pipeline, ingests AI responses into the caption queue, and
// samples round-trip latency. The session context object here replaces
// any ambient global state; every component receives it explicitly.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxhire/go-voxhire/pkg/backend"
	"github.com/voxhire/go-voxhire/pkg/caption"
	"github.com/voxhire/go-voxhire/pkg/device"
	"github.com/voxhire/go-voxhire/pkg/encode"
	"github.com/voxhire/go-voxhire/pkg/hub"
	"github.com/voxhire/go-voxhire/pkg/latency"
	"github.com/voxhire/go-voxhire/pkg/playback"
	"github.com/voxhire/go-voxhire/pkg/turn"
	"github.com/voxhire/go-voxhire/pkg/upload"
)

// Backend is the slice of the backend API the session needs.
// *backend.Client satisfies it.
type Backend interface {
	upload.Sender
	UploadAudio(ctx context.Context, interviewID string, audio []byte, seq int) (*backend.AudioResponse, error)
	SendConsent(ctx context.Context, interviewID string, consent bool) error
	SubmitTechCheck(ctx context.Context, interviewID string, report backend.TechCheckReport) error
}

// Config holds per-session settings.
type Config struct {
	InterviewID string
	Consent     bool
	Pipeline    upload.Config
}

// Deps are the collaborators a session drives. Machine, Captions, and
// Monitor default to fresh instances when nil; Backend, Devices, and
// Recorder are required. Player and Events are optional.
type Deps struct {
	Backend  Backend
	Devices  *device.Manager
	Recorder *encode.Recorder
	Player   *playback.Player
	Machine  *turn.Machine
	Captions *caption.Queue
	Monitor  *latency.Monitor
	Events   *hub.Hub
}

// Session orchestrates one interview.
type Session struct {
	id  string
	cfg Config

	backend  Backend
	devices  *device.Manager
	recorder *encode.Recorder
	player   *playback.Player
	machine  *turn.Machine
	captions *caption.Queue
	monitor  *latency.Monitor
	events   *hub.Hub

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	capture sync.WaitGroup

	mu           sync.Mutex
	turnSeq      int
	turnPCM      []int16
	turnStop     context.CancelFunc
	chunks       chan upload.Chunk
	pipelineDone chan struct{}
	dropVideo    bool
	lostChunk    bool
	ended        bool

	logger *slog.Logger
}

// NewSession creates a session. The session ID is fresh per run; all
// durable identity lives on the backend.
func NewSession(cfg Config, deps Deps) (*Session, error) {
	if deps.Backend == nil || deps.Devices == nil || deps.Recorder == nil {
		return nil, errors.New("orchestrator: backend, devices, and recorder are required")
	}
	if deps.Machine == nil {
		deps.Machine = turn.NewMachine()
	}
	if deps.Captions == nil {
		deps.Captions = caption.NewQueue(0)
	}
	if deps.Monitor == nil {
		deps.Monitor = latency.NewMonitor()
	}

	return &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		backend:  deps.Backend,
		devices:  deps.Devices,
		recorder: deps.Recorder,
		player:   deps.Player,
		machine:  deps.Machine,
		captions: deps.Captions,
		monitor:  deps.Monitor,
		events:   deps.Events,
		logger: slog.Default().With(
			"component", "orchestrator.session",
			"interview_id", cfg.InterviewID,
		),
	}, nil
}

// Machine exposes the turn machine for read access.
func (s *Session) Machine() *turn.Machine { return s.machine }

// Captions exposes the caption queue for read access.
func (s *Session) Captions() *caption.Queue { return s.captions }

// Monitor exposes the latency monitor for read access.
func (s *Session) Monitor() *latency.Monitor { return s.monitor }

// Start acquires both devices, reports the tech check, records consent,
// and moves the machine to ai_listening. On permission failure the
// session does not start and the error is surfaced for user messaging.
func (s *Session) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	micSess, err := s.devices.RequestMicrophone(s.ctx)
	if err != nil {
		return fmt.Errorf("orchestrator: microphone: %w", err)
	}
	camSess, err := s.devices.RequestCamera(s.ctx)
	if err != nil {
		s.devices.ReleaseMicrophone()
		return fmt.Errorf("orchestrator: camera: %w", err)
	}

	audioOK, camOK, audioMeta, camMeta := s.devices.DeviceReport()
	report := backend.TechCheckReport{
		AudioTestPassed:  audioOK,
		CameraTestPassed: camOK,
		AudioMetadata:    audioMeta,
		CameraMetadata:   camMeta,
		ClientInfo: backend.ClientInfo{
			Platform: device.Platform(),
			Arch:     device.Arch(),
			Version:  Version,
		},
	}
	if err := s.backend.SubmitTechCheck(s.ctx, s.cfg.InterviewID, report); err != nil {
		s.logger.Warn("tech check submission failed", "error", err)
	}

	// Fire-and-forget: consent failure is logged, never blocking.
	if err := s.backend.SendConsent(s.ctx, s.cfg.InterviewID, s.cfg.Consent); err != nil {
		s.logger.Warn("consent submission failed", "error", err)
	}

	if err := s.machine.Start(micSess.Granted(), camSess.Granted()); err != nil {
		s.releaseAll()
		return err
	}

	mic := s.devices.MicStream()
	if err := mic.Start(s.ctx); err != nil {
		s.releaseAll()
		return fmt.Errorf("orchestrator: start capture: %w", err)
	}

	s.startPipeline()
	s.forwardEvents()

	s.logger.Info("session started", "session_id", s.id)
	return nil
}

// startPipeline runs the chunked uploader for the session recording.
func (s *Session) startPipeline() {
	s.chunks = make(chan upload.Chunk, 16)
	s.pipelineDone = make(chan struct{})
	pipeline := upload.NewPipeline(s.backend, s.cfg.InterviewID, s.cfg.Pipeline)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.pipelineDone)
		err := pipeline.Run(s.ctx, s.chunks)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}

		var term *upload.TerminalError
		if errors.As(err, &term) && !term.IsFatal() {
			// Recording archive is lost but the interview can continue
			// audio-only.
			s.logger.Error("recording upload failed terminally",
				"seq", term.Seq,
				"attempts", term.Attempts,
				"error", err,
			)
			s.machine.DegradeToAudioOnly()
			s.setDropVideo()
			return
		}
		s.machine.Fail(err)
	}()
}

// forwardEvents republishes state, caption, and latency changes to the
// dashboard hub, when one is attached.
func (s *Session) forwardEvents() {
	if s.events == nil {
		return
	}

	changes := s.machine.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				s.events.Publish(hub.KindState, change)
			}
		}
	}()

	s.monitor.OnUpdate(func(snap latency.Snapshot) {
		s.events.Publish(hub.KindLatency, snap)
	})
}

// BeginTurn hands the floor to the candidate and starts capture.
// A second call while recording returns turn.ErrAlreadyRecording and
// has no effect.
func (s *Session) BeginTurn() error {
	if err := s.machine.Dispatch(turn.TriggerSpeechBegin); err != nil {
		return err
	}

	turnCtx, stop := context.WithCancel(s.ctx)
	s.mu.Lock()
	s.turnPCM = s.turnPCM[:0]
	s.turnStop = stop
	s.mu.Unlock()

	mic := s.devices.MicStream()
	s.capture.Add(1)
	go func() {
		defer s.capture.Done()
		for {
			select {
			case <-turnCtx.Done():
				return
			case frame, ok := <-mic.Frames():
				if !ok {
					return
				}
				s.consumeFrame(turnCtx, frame)
			}
		}
	}()
	return nil
}

// consumeFrame encodes one captured frame and forwards any cut chunk.
// The send bails out on turn cancellation so End can join the capture
// goroutine even when the pipeline is no longer draining.
func (s *Session) consumeFrame(turnCtx context.Context, frame []int16) {
	s.mu.Lock()
	s.turnPCM = append(s.turnPCM, frame...)
	chunk, err := s.recorder.WriteFrame(frame)
	drop := s.dropVideo
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("frame encode failed", "error", err)
		return
	}
	if chunk == nil || drop {
		return
	}
	select {
	case s.chunks <- *chunk:
	case <-turnCtx.Done():
		// The sequence now has a hole; a final chunk would be
		// rejected as out of order.
		s.mu.Lock()
		s.lostChunk = true
		s.mu.Unlock()
	}
}

// EndTurn releases the floor and processes the captured turn: upload,
// caption ingestion, AI playback, and return to listening.
func (s *Session) EndTurn() error {
	if err := s.machine.Dispatch(turn.TriggerSpeechEnd); err != nil {
		return err
	}

	s.mu.Lock()
	if s.turnStop != nil {
		s.turnStop()
		s.turnStop = nil
	}
	pcm := append([]int16(nil), s.turnPCM...)
	seq := s.turnSeq
	s.turnSeq++
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.processTurn(pcm, seq)
	}()
	return nil
}

// processTurn uploads the turn audio and plays the AI response.
func (s *Session) processTurn(pcm []int16, seq int) {
	s.monitor.RecordConnecting()
	started := time.Now()

	resp, err := s.backend.UploadAudio(s.ctx, s.cfg.InterviewID, pcmBytes(pcm), seq)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		// A malformed or rejected turn response leaves no way to
		// continue the conversation.
		s.machine.Fail(fmt.Errorf("orchestrator: turn upload: %w", err))
		return
	}
	s.monitor.Record(time.Since(started))

	// Candidate transcription is retained but never displayed.
	if resp.Transcription != "" {
		s.captions.Enqueue(resp.Transcription, caption.RoleCandidate)
	}
	for _, seg := range caption.Segment(resp.QuestionText) {
		s.captions.Enqueue(seg, caption.RoleAssistant)
		if s.events != nil {
			s.events.Publish(hub.KindCaption, s.captions.Current())
		}
	}

	if err := s.machine.Dispatch(turn.TriggerResponseReady); err != nil {
		return
	}

	s.playResponse(resp)

	if err := s.machine.Dispatch(turn.TriggerPlaybackDone); err != nil {
		s.logger.Debug("playback-done dispatch rejected", "error", err)
	}
}

// playResponse plays AI audio when present. Playback failure degrades
// to captions only; it never fails the session.
func (s *Session) playResponse(resp *backend.AudioResponse) {
	if s.player == nil || len(resp.QuestionAudio) == 0 {
		return
	}
	if err := s.player.Play(s.ctx, playback.PCM16FromBytes(resp.QuestionAudio)); err != nil {
		s.logger.Warn("response playback failed, captions only", "error", err)
	}
}

// End terminates the session: in-flight uploads are cancelled (sent
// requests may complete but results are discarded), playback stops,
// the recording is finalized best-effort, and all devices and timers
// are released.
func (s *Session) End() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	stop := s.turnStop
	s.turnStop = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	// Join the capture goroutine before touching the recorder or the
	// chunk channel; it may still be mid-frame.
	s.capture.Wait()
	if s.player != nil {
		s.player.Stop()
	}

	err := s.machine.End()

	s.finalizeRecording()
	if s.pipelineDone != nil {
		// Give the pipeline a bounded window to drain the closed
		// channel before cancellation abandons the rest.
		select {
		case <-s.pipelineDone:
		case <-time.After(2 * time.Second):
			s.logger.Warn("recording upload not drained before shutdown")
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.releaseAll()
	s.logger.Info("session ended", "session_id", s.id)
	return err
}

// finalizeRecording flushes the final chunk with a short grace window
// so the backend sees isFinal on the last sequence index.
func (s *Session) finalizeRecording() {
	s.mu.Lock()
	drop := s.dropVideo || s.lostChunk
	chunks := s.chunks
	s.mu.Unlock()
	if chunks == nil {
		return
	}

	if !drop {
		final, err := s.recorder.Finalize()
		if err == nil {
			select {
			case chunks <- *final:
			case <-time.After(2 * time.Second):
				s.logger.Warn("final chunk not flushed before shutdown")
			}
		}
	}
	close(chunks)
}

func (s *Session) setDropVideo() {
	s.mu.Lock()
	s.dropVideo = true
	s.mu.Unlock()
}

func (s *Session) releaseAll() {
	s.devices.Close()
	s.monitor.Close()
}

// pcmBytes converts samples to little-endian bytes for upload.
func pcmBytes(pcm []int16) []byte {
	buf := make([]byte, len(pcm)*2)
	for i, v := range pcm {
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}
	return buf
}

// Version is the client version reported in the tech check.
var Version = "1.0.0"
