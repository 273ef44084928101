package turn

import (
	"log/slog"
	"sync"
)

// Change describes one completed state transition.
type Change struct {
	From    State   `json:"from"`
	To      State   `json:"to"`
	Trigger Trigger `json:"trigger"`
}

// Machine owns the session turn state. All transitions go through
// Dispatch and are strictly serialized; no two transitions are ever in
// flight concurrently.
type Machine struct {
	mu        sync.Mutex
	state     State
	audioOnly bool
	lastErr   error
	subs      []chan Change
	logger    *slog.Logger
}

// NewMachine creates a machine in the idle state.
func NewMachine() *Machine {
	return &Machine{
		state:  StateIdle,
		logger: slog.Default().With("component", "turn.machine"),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AudioOnly reports whether the session degraded to audio-only after a
// terminal video upload failure.
func (m *Machine) AudioOnly() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audioOnly
}

// Err returns the failure that moved the machine to StateError, if any.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Subscribe returns a channel receiving state changes. Slow subscribers
// miss changes rather than blocking the machine.
func (m *Machine) Subscribe() <-chan Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Change, 16)
	m.subs = append(m.subs, ch)
	return ch
}

// Start moves idle → ai_listening once both devices are granted.
func (m *Machine) Start(micGranted, camGranted bool) error {
	if !micGranted || !camGranted {
		return ErrDevicesNotGranted
	}
	return m.Dispatch(TriggerSessionStarted)
}

// Dispatch applies a trigger to the current state.
func (m *Machine) Dispatch(trigger Trigger) error {
	return m.dispatch(trigger, nil)
}

// Fail moves the machine to StateError from any non-terminal state,
// recording the cause.
func (m *Machine) Fail(cause error) error {
	return m.dispatch(TriggerFatal, cause)
}

// End moves the machine to StateEnded from any non-terminal state.
func (m *Machine) End() error {
	return m.dispatch(TriggerEnd, nil)
}

// DegradeToAudioOnly flags the session to continue without video after
// a terminal (but recoverable) video upload failure. The turn state is
// unchanged.
func (m *Machine) DegradeToAudioOnly() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.audioOnly {
		m.audioOnly = true
		m.logger.Warn("session degraded to audio-only")
	}
}

func (m *Machine) dispatch(trigger Trigger, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state

	if from == StateEnded || from == StateError {
		return ErrTerminal
	}

	var to State
	switch trigger {
	case TriggerEnd:
		to = StateEnded
	case TriggerFatal:
		to = StateError
		m.lastErr = cause
	default:
		// Double press: a speech-begin while already recording is
		// rejected without invoking any handler.
		if trigger == TriggerSpeechBegin && from == StateCandidateSpeaking {
			return ErrAlreadyRecording
		}
		next, ok := transitions[from][trigger]
		if !ok {
			return &InvalidTransitionError{From: from, Trigger: trigger}
		}
		to = next
	}

	m.state = to
	change := Change{From: from, To: to, Trigger: trigger}
	m.logger.Info("turn transition",
		"from", from,
		"to", to,
		"trigger", trigger,
	)

	for _, ch := range m.subs {
		select {
		case ch <- change:
		default:
			// Subscriber buffer full; drop rather than block the machine.
		}
	}
	return nil
}
