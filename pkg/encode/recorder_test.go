package encode_test

import (
	"testing"

	"github.com/voxhire/go-voxhire/pkg/encode"
)

// passthroughEncoder copies PCM bytes verbatim, no opus library needed.
type passthroughEncoder struct{}

func (passthroughEncoder) Encode(pcm []int16, data []byte) (int, error) {
	n := len(pcm) * 2
	for i, s := range pcm {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return n, nil
}

func frame(samples int) []int16 {
	pcm := make([]int16, samples)
	for i := range pcm {
		pcm[i] = int16(i % 100)
	}
	return pcm
}

func newTestRecorder(t *testing.T, chunkBytes int) *encode.Recorder {
	t.Helper()
	r, err := encode.NewRecorderWith(passthroughEncoder{}, 16000, 1, chunkBytes)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return r
}

func TestRecorderChunkSequence(t *testing.T) {
	r := newTestRecorder(t, 2048)

	var seqs []int
	for i := 0; i < 200; i++ {
		chunk, err := r.WriteFrame(frame(320))
		if err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}
		if chunk != nil {
			if chunk.Final {
				t.Fatal("mid-stream chunk marked final")
			}
			if len(chunk.Payload) == 0 {
				t.Fatal("empty mid-stream chunk")
			}
			seqs = append(seqs, chunk.Seq)
		}
	}

	final, err := r.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !final.Final {
		t.Error("expected final chunk flag")
	}
	seqs = append(seqs, final.Seq)

	if len(seqs) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(seqs))
	}
	for i, seq := range seqs {
		if seq != i {
			t.Errorf("chunk %d has seq %d; sequence must be gapless from 0", i, seq)
		}
	}
}

func TestRecorderRejectsWritesAfterFinalize(t *testing.T) {
	r := newTestRecorder(t, 0)

	if _, err := r.WriteFrame(frame(320)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := r.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := r.WriteFrame(frame(320)); err == nil {
		t.Error("expected error writing after finalize")
	}
	if _, err := r.Finalize(); err == nil {
		t.Error("expected error on double finalize")
	}
}

func TestRecorderOggHeader(t *testing.T) {
	r := newTestRecorder(t, 1<<20) // budget large enough to hold everything

	if _, err := r.WriteFrame(frame(320)); err != nil {
		t.Fatalf("write: %v", err)
	}
	final, err := r.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// The single chunk carries the whole stream, which must start with
	// an Ogg capture pattern.
	if len(final.Payload) < 4 || string(final.Payload[:4]) != "OggS" {
		t.Errorf("expected Ogg capture pattern, got %d bytes", len(final.Payload))
	}
}
