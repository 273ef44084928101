package backend

// AudioMetadata describes how the backend processed an audio turn.
type AudioMetadata struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Format       string `json:"format"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Language     string `json:"language"`
}

// AudioResponse is the backend's reply to an audio turn upload.
type AudioResponse struct {
	Transcription     string        `json:"transcription"`
	Confidence        float64       `json:"confidence"`
	AudioMetadata     AudioMetadata `json:"audio_metadata"`
	NextQuestionReady bool          `json:"next_question_ready"`
	MessageID         string        `json:"message_id"`

	// QuestionText and QuestionAudio carry the next AI question when
	// NextQuestionReady is set. The audio is PCM16 little-endian,
	// base64 on the wire.
	QuestionText  string `json:"question_text,omitempty"`
	QuestionAudio []byte `json:"question_audio,omitempty"`
}

// VideoChunkResponse acknowledges a video chunk upload.
type VideoChunkResponse struct {
	Success    bool   `json:"success"`
	ChunkIndex int    `json:"chunk_index"`
	UploadedAt string `json:"uploaded_at"`
}

// ConsentRequest records the candidate's recording consent.
type ConsentRequest struct {
	VideoRecordingConsent bool `json:"video_recording_consent"`
}

// ClientInfo describes the client environment for the tech check.
type ClientInfo struct {
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
	Version  string `json:"version"`
}

// TechCheckReport carries device test outcomes before the interview.
type TechCheckReport struct {
	AudioTestPassed  bool           `json:"audio_test_passed"`
	CameraTestPassed bool           `json:"camera_test_passed"`
	AudioMetadata    map[string]any `json:"audio_metadata"`
	CameraMetadata   map[string]any `json:"camera_metadata"`
	ClientInfo       ClientInfo     `json:"browser_info"`
}
