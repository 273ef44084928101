// Package encode compresses captured PCM16 audio into Opus and packages
// it as an Ogg stream cut into ordered upload chunks.
package encode

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"

	"github.com/voxhire/go-voxhire/pkg/upload"
)

// opusPayloadType is the conventional RTP payload type for Opus.
const opusPayloadType = 111

// maxOpusPacket is the recommended maximum encoded packet size.
const maxOpusPacket = 4000

// DefaultChunkBytes is the chunk cut size for the upload pipeline.
const DefaultChunkBytes = 64 * 1024

// FrameEncoder compresses one PCM16 frame. *opus.Encoder satisfies this.
type FrameEncoder interface {
	Encode(pcm []int16, data []byte) (int, error)
}

// Recorder turns PCM16 frames into an Ogg/Opus byte stream and cuts it
// into sequenced chunks. Not safe for concurrent use; the capture loop
// is its only caller.
type Recorder struct {
	enc        FrameEncoder
	ogg        *oggwriter.OggWriter
	buf        *bytes.Buffer
	packet     []byte
	chunkBytes int

	sampleRate int
	channels   int

	seq       int
	rtpSeq    uint16
	timestamp uint32
	ssrc      uint32
	finalized bool

	logger *slog.Logger
}

// NewRecorder creates a recorder with an Opus VoIP encoder.
func NewRecorder(sampleRate, channels, chunkBytes int) (*Recorder, error) {
	enc, err := newVoIPEncoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("encode: create opus encoder: %w", err)
	}
	return NewRecorderWith(enc, sampleRate, channels, chunkBytes)
}

// NewRecorderWith creates a recorder with a custom frame encoder.
func NewRecorderWith(enc FrameEncoder, sampleRate, channels, chunkBytes int) (*Recorder, error) {
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunkBytes
	}

	buf := &bytes.Buffer{}
	ogg, err := oggwriter.NewWith(buf, uint32(sampleRate), uint16(channels))
	if err != nil {
		return nil, fmt.Errorf("encode: create ogg writer: %w", err)
	}

	return &Recorder{
		enc:        enc,
		ogg:        ogg,
		buf:        buf,
		packet:     make([]byte, maxOpusPacket),
		chunkBytes: chunkBytes,
		sampleRate: sampleRate,
		channels:   channels,
		ssrc:       uuid.New().ID(),
		logger:     slog.Default().With("component", "encode.recorder"),
	}, nil
}

// WriteFrame encodes one PCM16 frame. When the encoded stream crosses
// the chunk budget, the accumulated bytes are returned as the next
// chunk; otherwise it returns nil.
func (r *Recorder) WriteFrame(pcm []int16) (*upload.Chunk, error) {
	if r.finalized {
		return nil, fmt.Errorf("encode: recorder finalized")
	}

	n, err := r.enc.Encode(pcm, r.packet)
	if err != nil {
		return nil, fmt.Errorf("encode: opus frame: %w", err)
	}

	samples := uint32(len(pcm) / r.channels)
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    opusPayloadType,
			SequenceNumber: r.rtpSeq,
			Timestamp:      r.timestamp,
			SSRC:           r.ssrc,
		},
		Payload: append([]byte(nil), r.packet[:n]...),
	}
	r.rtpSeq++
	r.timestamp += samples

	if err := r.ogg.WriteRTP(pkt); err != nil {
		return nil, fmt.Errorf("encode: write ogg page: %w", err)
	}

	if r.buf.Len() < r.chunkBytes {
		return nil, nil
	}
	return r.cut(false), nil
}

// Finalize closes the Ogg stream and returns the final chunk. The
// recorder accepts no frames afterwards.
func (r *Recorder) Finalize() (*upload.Chunk, error) {
	if r.finalized {
		return nil, fmt.Errorf("encode: recorder already finalized")
	}
	r.finalized = true

	if err := r.ogg.Close(); err != nil {
		return nil, fmt.Errorf("encode: close ogg stream: %w", err)
	}

	chunk := r.cut(true)
	r.logger.Debug("recording finalized",
		"chunks", chunk.Seq+1,
		"tail_bytes", len(chunk.Payload),
	)
	return chunk, nil
}

// cut drains the buffer into a chunk with the next sequence index.
func (r *Recorder) cut(final bool) *upload.Chunk {
	payload := append([]byte(nil), r.buf.Bytes()...)
	r.buf.Reset()
	chunk := &upload.Chunk{Seq: r.seq, Payload: payload, Final: final}
	r.seq++
	return chunk
}
