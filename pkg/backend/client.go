// Package backend is the HTTP client for the interview backend.
// The orchestrator treats the backend purely as this endpoint set.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/voxhire/go-voxhire/internal/httpc"
	"github.com/voxhire/go-voxhire/pkg/upload"
)

// Client talks to the interview backend. The bearer credential, when
// present, is attached to every request.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a backend client for the given base URL.
// An empty token yields unauthenticated requests.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httpc.NewBearerClient(token, httpc.UploadTimeout),
		logger:  slog.Default().With("component", "backend.client"),
	}
}

// UploadAudio posts one captured audio turn and returns the transcription
// and AI response metadata.
func (c *Client) UploadAudio(ctx context.Context, interviewID string, audio []byte, seq int) (*AudioResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("message_sequence", strconv.Itoa(seq))
	part, err := writer.CreateFormFile("audio", "turn.ogg")
	if err != nil {
		return nil, fmt.Errorf("backend: build audio form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("backend: write audio form: %w", err)
	}
	writer.Close()

	url := fmt.Sprintf("%s/interviews/%s/audio", c.baseURL, interviewID)
	resp, err := c.post(ctx, url, writer.FormDataContentType(), &body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "audio"); err != nil {
		return nil, err
	}

	var out AudioResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("backend: malformed audio response: %w", err)
	}
	return &out, nil
}

// SendChunk posts one video chunk. It implements upload.Sender so the
// pipeline can classify retryability from the returned *upload.APIError.
func (c *Client) SendChunk(ctx context.Context, interviewID string, chunk upload.Chunk) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("chunk_index", strconv.Itoa(chunk.Seq))
	writer.WriteField("is_final", strconv.FormatBool(chunk.Final))
	part, err := writer.CreateFormFile("chunk", fmt.Sprintf("chunk-%d.ogg", chunk.Seq))
	if err != nil {
		return fmt.Errorf("backend: build chunk form: %w", err)
	}
	if _, err := part.Write(chunk.Payload); err != nil {
		return fmt.Errorf("backend: write chunk form: %w", err)
	}
	writer.Close()

	url := fmt.Sprintf("%s/interviews/%s/video/upload", c.baseURL, interviewID)
	resp, err := c.post(ctx, url, writer.FormDataContentType(), &body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "video/upload"); err != nil {
		return err
	}

	var ack VideoChunkResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("backend: malformed chunk response: %w", err)
	}
	if !ack.Success {
		return &upload.APIError{
			StatusCode: resp.StatusCode,
			Message:    "backend rejected chunk",
			Endpoint:   "video/upload",
		}
	}
	return nil
}

// SendConsent records recording consent. Fire-and-forget from the
// orchestrator's perspective; callers log failures and move on.
func (c *Client) SendConsent(ctx context.Context, interviewID string, consent bool) error {
	url := fmt.Sprintf("%s/interviews/%s/consent", c.baseURL, interviewID)
	return c.postJSON(ctx, url, "consent", ConsentRequest{VideoRecordingConsent: consent})
}

// SubmitTechCheck reports device test outcomes before the session starts.
func (c *Client) SubmitTechCheck(ctx context.Context, interviewID string, report TechCheckReport) error {
	url := fmt.Sprintf("%s/interviews/%s/tech-check", c.baseURL, interviewID)
	return c.postJSON(ctx, url, "tech-check", report)
}

func (c *Client) post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, url, endpoint string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("backend: marshal %s: %w", endpoint, err)
	}

	resp, err := c.post(ctx, url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp, endpoint)
}

// checkStatus maps non-2xx responses to *upload.APIError, keeping the
// response body out of user-facing messages.
func checkStatus(resp *http.Response, endpoint string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &upload.APIError{
		StatusCode: resp.StatusCode,
		Message:    string(msg),
		Endpoint:   endpoint,
	}
}

var _ upload.Sender = (*Client)(nil)
