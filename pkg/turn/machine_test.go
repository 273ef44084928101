package turn_test

import (
	"errors"
	"testing"

	"github.com/voxhire/go-voxhire/pkg/turn"
)

func startMachine(t *testing.T) *turn.Machine {
	t.Helper()
	m := turn.NewMachine()
	if err := m.Start(true, true); err != nil {
		t.Fatalf("start: %v", err)
	}
	return m
}

func TestFullTurnCycle(t *testing.T) {
	m := startMachine(t)

	steps := []struct {
		trigger turn.Trigger
		want    turn.State
	}{
		{turn.TriggerSpeechBegin, turn.StateCandidateSpeaking},
		{turn.TriggerSpeechEnd, turn.StateProcessing},
		{turn.TriggerResponseReady, turn.StateAISpeaking},
		{turn.TriggerPlaybackDone, turn.StateAIListening},
		// Second full turn through the loop.
		{turn.TriggerSpeechBegin, turn.StateCandidateSpeaking},
		{turn.TriggerSpeechEnd, turn.StateProcessing},
	}

	for _, s := range steps {
		if err := m.Dispatch(s.trigger); err != nil {
			t.Fatalf("dispatch %s: %v", s.trigger, err)
		}
		if got := m.State(); got != s.want {
			t.Fatalf("after %s: expected %s, got %s", s.trigger, s.want, got)
		}
	}
}

func TestStartRequiresBothDevices(t *testing.T) {
	m := turn.NewMachine()
	if err := m.Start(true, false); !errors.Is(err, turn.ErrDevicesNotGranted) {
		t.Errorf("expected ErrDevicesNotGranted, got %v", err)
	}
	if m.State() != turn.StateIdle {
		t.Errorf("machine should stay idle, got %s", m.State())
	}
	if err := m.Start(true, true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDoublePressRejected(t *testing.T) {
	m := startMachine(t)

	if err := m.Dispatch(turn.TriggerSpeechBegin); err != nil {
		t.Fatalf("first press: %v", err)
	}
	err := m.Dispatch(turn.TriggerSpeechBegin)
	if !errors.Is(err, turn.ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if m.State() != turn.StateCandidateSpeaking {
		t.Errorf("state must be unchanged, got %s", m.State())
	}
}

func TestInvalidTransition(t *testing.T) {
	m := startMachine(t)

	err := m.Dispatch(turn.TriggerPlaybackDone)
	var invalid *turn.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != turn.StateAIListening || invalid.Trigger != turn.TriggerPlaybackDone {
		t.Errorf("unexpected error detail: %+v", invalid)
	}
}

func TestEndFromAnyState(t *testing.T) {
	for _, setup := range [][]turn.Trigger{
		{},
		{turn.TriggerSpeechBegin},
		{turn.TriggerSpeechBegin, turn.TriggerSpeechEnd},
		{turn.TriggerSpeechBegin, turn.TriggerSpeechEnd, turn.TriggerResponseReady},
	} {
		m := startMachine(t)
		for _, tr := range setup {
			if err := m.Dispatch(tr); err != nil {
				t.Fatalf("setup %v: %v", setup, err)
			}
		}
		if err := m.End(); err != nil {
			t.Errorf("end from %s: %v", m.State(), err)
		}
		if m.State() != turn.StateEnded {
			t.Errorf("expected ended, got %s", m.State())
		}
	}
}

func TestFailRecordsCause(t *testing.T) {
	m := startMachine(t)
	cause := errors.New("authentication lost")
	if err := m.Fail(cause); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if m.State() != turn.StateError {
		t.Errorf("expected error state, got %s", m.State())
	}
	if !errors.Is(m.Err(), cause) {
		t.Errorf("expected recorded cause, got %v", m.Err())
	}
}

func TestTerminalStatesRejectDispatch(t *testing.T) {
	m := startMachine(t)
	if err := m.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := m.Dispatch(turn.TriggerSpeechBegin); !errors.Is(err, turn.ErrTerminal) {
		t.Errorf("expected ErrTerminal, got %v", err)
	}
	if err := m.End(); !errors.Is(err, turn.ErrTerminal) {
		t.Errorf("double end should be rejected, got %v", err)
	}
}

func TestDegradeToAudioOnly(t *testing.T) {
	m := startMachine(t)
	if m.AudioOnly() {
		t.Fatal("should not start degraded")
	}
	m.DegradeToAudioOnly()
	if !m.AudioOnly() {
		t.Error("expected audio-only flag")
	}
	// Degrading does not change turn state.
	if m.State() != turn.StateAIListening {
		t.Errorf("state changed on degrade: %s", m.State())
	}
}

func TestSubscribe(t *testing.T) {
	m := turn.NewMachine()
	ch := m.Subscribe()
	if err := m.Start(true, true); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case change := <-ch:
		if change.From != turn.StateIdle || change.To != turn.StateAIListening {
			t.Errorf("unexpected change: %+v", change)
		}
	default:
		t.Fatal("expected buffered change notification")
	}
}
