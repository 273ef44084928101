package encode

import (
	opus "gopkg.in/hraban/opus.v2"
)

// newVoIPEncoder creates an Opus encoder tuned for speech.
func newVoIPEncoder(sampleRate, channels int) (FrameEncoder, error) {
	return opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
}
