// Package turn drives the conversational turn-taking state machine
// between the candidate and the AI interviewer. The Machine is the
// single writer of session state; every other component reads it.
package turn

import (
	"errors"
	"fmt"
)

// State is the current phase of the interview session.
type State string

const (
	// StateIdle is the initial state before the session starts.
	StateIdle State = "idle"

	// StateAIListening means the AI is waiting for the candidate.
	StateAIListening State = "ai_listening"

	// StateCandidateSpeaking means the candidate holds the floor and
	// capture is running.
	StateCandidateSpeaking State = "candidate_speaking"

	// StateProcessing means captured audio is uploading and the AI
	// response is pending.
	StateProcessing State = "processing"

	// StateAISpeaking means AI response audio is playing.
	StateAISpeaking State = "ai_speaking"

	// StateError is a terminal state after an unrecoverable failure.
	StateError State = "error"

	// StateEnded is a terminal state after explicit termination.
	StateEnded State = "ended"
)

// Trigger is an event that may move the machine between states.
type Trigger string

const (
	// TriggerSessionStarted fires when both devices are granted.
	TriggerSessionStarted Trigger = "session_started"

	// TriggerSpeechBegin fires on push-to-talk press or a VAD signal.
	TriggerSpeechBegin Trigger = "speech_begin"

	// TriggerSpeechEnd fires when the candidate releases the floor.
	TriggerSpeechEnd Trigger = "speech_end"

	// TriggerResponseReady fires when the upload pipeline delivers the
	// AI response and audio.
	TriggerResponseReady Trigger = "response_ready"

	// TriggerPlaybackDone fires when AI audio playback completes.
	TriggerPlaybackDone Trigger = "playback_done"

	// TriggerEnd fires when the user ends the interview. Valid from
	// any state.
	TriggerEnd Trigger = "end"

	// TriggerFatal fires on an unrecoverable device or network failure.
	// Valid from any state.
	TriggerFatal Trigger = "fatal"
)

// transitions is the closed transition graph. TriggerEnd and
// TriggerFatal are handled separately since they apply from any state.
var transitions = map[State]map[Trigger]State{
	StateIdle: {
		TriggerSessionStarted: StateAIListening,
	},
	StateAIListening: {
		TriggerSpeechBegin: StateCandidateSpeaking,
	},
	StateCandidateSpeaking: {
		TriggerSpeechEnd: StateProcessing,
	},
	StateProcessing: {
		TriggerResponseReady: StateAISpeaking,
	},
	StateAISpeaking: {
		TriggerPlaybackDone: StateAIListening,
	},
}

// Sentinel errors returned by Dispatch.
var (
	// ErrAlreadyRecording rejects a second speech-begin while the
	// candidate already holds the floor (double-press guard).
	ErrAlreadyRecording = errors.New("turn: recording already in progress")

	// ErrTerminal is returned when dispatching into an ended or errored
	// session.
	ErrTerminal = errors.New("turn: session is terminal")

	// ErrDevicesNotGranted rejects session start without both devices.
	ErrDevicesNotGranted = errors.New("turn: microphone and camera must both be granted")
)

// InvalidTransitionError reports a trigger that is not legal from the
// current state.
type InvalidTransitionError struct {
	From    State
	Trigger Trigger
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("turn: trigger %q invalid in state %q", e.Trigger, e.From)
}
