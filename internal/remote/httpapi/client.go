// Package httpapi talks to the prompt-to-image backend over its HTTP/JSON
// contract.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/alkime/voiceprompt/internal/pipeline"
	"github.com/alkime/voiceprompt/internal/remote"
)

const (
	DefaultTimeout = 2 * time.Minute

	// maxResponseBytes caps what is read from a response. Synthesized audio
	// comes back inline as base64 so this is generous.
	maxResponseBytes = 32 << 20
)

// Client implements pipeline.RemoteClient against the backend's HTTP API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

var _ pipeline.RemoteClient = (*Client)(nil)

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

// Transcribe uploads the recording as the multipart "file" field.
func (c *Client) Transcribe(ctx context.Context, rec *audio.Recording) (string, error) {
	const op = "transcribe"

	mediaType, _, err := mime.ParseMediaType(rec.MimeType())
	if err != nil || !strings.HasPrefix(mediaType, "audio/") {
		return "", &remote.Error{
			Op:      op,
			Message: "File must be an audio file. Received: " + rec.MimeType(),
		}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, rec.Filename()))
	header.Set("Content-Type", rec.MimeType())

	part, err := mw.CreatePart(header)
	if err != nil {
		return "", &remote.Error{Op: op, Err: err}
	}

	if _, err := io.Copy(part, rec.Reader()); err != nil {
		return "", &remote.Error{Op: op, Err: err}
	}

	if err := mw.Close(); err != nil {
		return "", &remote.Error{Op: op, Err: err}
	}

	slog.Debug("uploading recording", "bytes", rec.Len(), "mime", rec.MimeType())

	var out transcribeResponse
	if err := c.do(ctx, op, "/transcribe", mw.FormDataContentType(), &body, &out); err != nil {
		return "", err
	}

	return out.Transcript, nil
}

type generateImageRequest struct {
	Prompt string `json:"prompt"`
}

type generateImageResponse struct {
	ImageURL  string `json:"image_url"`
	ImageData string `json:"image_data"`
}

// GenerateImage returns the image URL, or a data: URL when the backend
// returns the image inline.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	const op = "generate_image"

	var out generateImageResponse
	if err := c.postJSON(ctx, op, "/generate_image", generateImageRequest{Prompt: prompt}, &out); err != nil {
		return "", err
	}

	switch {
	case out.ImageURL != "":
		return out.ImageURL, nil
	case out.ImageData != "":
		return dataURL("image/png", out.ImageData), nil
	default:
		return "", &remote.Error{Op: op, Message: "response carried no image"}
	}
}

type analyzeRequest struct {
	Prompt    string `json:"prompt"`
	ImageURL  string `json:"image_url,omitempty"`
	ImageData string `json:"image_data,omitempty"`
}

type analyzeResponse struct {
	SimilarityScore  *float64 `json:"similarity_score"`
	ImageDescription string   `json:"image_description"`
}

type describeRequest struct {
	ImageURL  string `json:"image_url,omitempty"`
	ImageData string `json:"image_data,omitempty"`
}

type describeResponse struct {
	ImageDescription string `json:"image_description"`
}

// AnalyzeSimilarity scores the image against the prompt. Backends that
// serve the description from a separate /describe endpoint are asked for it
// when the similarity response carries none.
func (c *Client) AnalyzeSimilarity(ctx context.Context, prompt, imageURL string) (pipeline.AnalysisResult, error) {
	const op = "analyze_image_similarity"

	req := analyzeRequest{Prompt: prompt, ImageURL: imageURL}
	if data, ok := base64FromDataURL(imageURL); ok {
		req.ImageURL = ""
		req.ImageData = data
	}

	var out analyzeResponse
	if err := c.postJSON(ctx, op, "/analyze_image_similarity", req, &out); err != nil {
		return pipeline.AnalysisResult{}, err
	}

	if out.SimilarityScore == nil {
		return pipeline.AnalysisResult{}, &remote.Error{Op: op, Message: "response carried no similarity score"}
	}

	result := pipeline.AnalysisResult{
		SimilarityScore: clampScore(*out.SimilarityScore),
		Description:     out.ImageDescription,
	}

	if result.Description != "" || req.ImageData == "" {
		return result, nil
	}

	var desc describeResponse
	if err := c.postJSON(ctx, "describe", "/describe", describeRequest{ImageData: req.ImageData}, &desc); err != nil {
		return pipeline.AnalysisResult{}, err
	}

	result.Description = desc.ImageDescription

	return result, nil
}

type speechRequest struct {
	Text string `json:"text"`
}

type speechResponse struct {
	Audio string `json:"audio"`
}

// Synthesize returns the base64 audio the backend produced for text.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	const op = "text_to_speech"

	var out speechResponse
	if err := c.postJSON(ctx, op, "/text_to_speech", speechRequest{Text: text}, &out); err != nil {
		return "", err
	}

	if out.Audio == "" {
		return "", &remote.Error{Op: op, Message: "response carried no audio"}
	}

	return out.Audio, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return &remote.Error{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	return c.do(ctx, op, path, "application/json", bytes.NewReader(payload), out)
}

func (c *Client) do(ctx context.Context, op, path, contentType string, body io.Reader, out any) error {
	endpoint := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), body)
	if err != nil {
		return &remote.Error{Op: op, Err: err}
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return &remote.Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &remote.Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	slog.Debug("remote call finished",
		"op", op,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &remote.Error{Op: op, Status: resp.StatusCode, Message: parseDetail(raw)}
	}

	// the backend reports some failures as a 2xx body
	if status, msg, failed := embeddedFailure(raw); failed {
		return &remote.Error{Op: op, Status: status, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &remote.Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

// errorBody covers both the {"detail": ...} and {"error": ...} shapes.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  json.RawMessage `json:"error"`
}

// parseDetail extracts a human readable message from an error body.
func parseDetail(raw []byte) string {
	if _, msg, ok := embeddedFailure(raw); ok {
		return msg
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}

	for _, field := range []json.RawMessage{body.Detail, body.Error} {
		if msg := messageFrom(field); msg != "" {
			return msg
		}
	}

	return ""
}

// embeddedFailure recognizes {"error": "..."} and the [{"error": "..."}, 500]
// tuple form in an otherwise successful response.
func embeddedFailure(raw []byte) (int, string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, "", false
	}

	if trimmed[0] == '[' {
		var tuple []json.RawMessage
		if err := json.Unmarshal(trimmed, &tuple); err != nil || len(tuple) == 0 {
			return 0, "", false
		}

		var body errorBody
		if err := json.Unmarshal(tuple[0], &body); err != nil || len(body.Error) == 0 {
			return 0, "", false
		}

		status := http.StatusInternalServerError
		if len(tuple) > 1 {
			_ = json.Unmarshal(tuple[1], &status)
		}

		return status, messageFrom(body.Error), true
	}

	var body errorBody
	if err := json.Unmarshal(trimmed, &body); err != nil || len(body.Error) == 0 || string(body.Error) == "null" {
		return 0, "", false
	}

	return http.StatusInternalServerError, messageFrom(body.Error), true
}

// messageFrom renders a JSON detail value. FastAPI validation errors carry a
// list of {"msg": ...} objects.
func messageFrom(field json.RawMessage) string {
	if len(field) == 0 || string(field) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(field, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(field, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}

	return string(field)
}

func dataURL(mediaType, b64 string) string {
	return "data:" + mediaType + ";base64," + b64
}

func base64FromDataURL(ref string) (string, bool) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return "", false
	}

	_, data, ok := strings.Cut(rest, ";base64,")

	return data, ok
}

func clampScore(v float64) float64 {
	return max(0, min(v, 100))
}
