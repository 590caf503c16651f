// Package direct implements the pipeline's remote operations by calling the
// OpenAI and Anthropic APIs directly instead of going through a backend.
package direct

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/alkime/voiceprompt/internal/pipeline"
	"github.com/alkime/voiceprompt/internal/remote"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DescribePrompt asks the vision model for the image description.
const DescribePrompt = "Please provide a detailed description of this image."

// Config holds provider credentials and model choices. Zero model values
// select the defaults.
type Config struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string

	ImageModel     openai.ImageModel
	EmbeddingModel openai.EmbeddingModel
	VisionModel    anthropic.Model

	// Extra request options, mostly for pointing the SDKs at a test server.
	OpenAIOptions    []option.RequestOption
	AnthropicOptions []anthropicoption.RequestOption
}

// Client implements pipeline.RemoteClient against the provider APIs.
type Client struct {
	cfg Config
}

var _ pipeline.RemoteClient = (*Client)(nil)

// New creates a client. Keys are checked per call so a missing key fails
// the stage that needs it.
func New(cfg Config) *Client {
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.ImageModelDallE2
	}

	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = openai.EmbeddingModelTextEmbedding3Small
	}

	if cfg.VisionModel == "" {
		cfg.VisionModel = anthropic.ModelClaudeSonnet4_5_20250929
	}

	return &Client{cfg: cfg}
}

func (c *Client) openAIClient(op string) (openai.Client, error) {
	if c.cfg.OpenAIAPIKey == "" {
		return openai.Client{}, &remote.Error{
			Op:      op,
			Message: "OpenAI API key required: set OPENAI_API_KEY or run `voiceprompt config set-key openai`",
			Err:     remote.ErrMissingAPIKey,
		}
	}

	opts := append([]option.RequestOption{option.WithAPIKey(c.cfg.OpenAIAPIKey)}, c.cfg.OpenAIOptions...)

	return openai.NewClient(opts...), nil
}

func (c *Client) anthropicClient(op string) (anthropic.Client, error) {
	if c.cfg.AnthropicAPIKey == "" {
		return anthropic.Client{}, &remote.Error{
			Op:      op,
			Message: "Anthropic API key required: set ANTHROPIC_API_KEY or run `voiceprompt config set-key anthropic`",
			Err:     remote.ErrMissingAPIKey,
		}
	}

	opts := append([]anthropicoption.RequestOption{anthropicoption.WithAPIKey(c.cfg.AnthropicAPIKey)}, c.cfg.AnthropicOptions...)

	return anthropic.NewClient(opts...), nil
}

// Transcribe sends the recording to Whisper.
func (c *Client) Transcribe(ctx context.Context, rec *audio.Recording) (string, error) {
	const op = "transcribe"

	client, err := c.openAIClient(op)
	if err != nil {
		return "", err
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(rec.Reader(), rec.Filename(), rec.MimeType()),
		Model: openai.AudioModelWhisper1,
	}

	resp, err := client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", wrapErr(op, err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// GenerateImage returns the URL of a generated image.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	const op = "generate_image"

	client, err := c.openAIClient(op)
	if err != nil {
		return "", err
	}

	params := openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          c.cfg.ImageModel,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	}

	resp, err := client.Images.Generate(ctx, params)
	if err != nil {
		return "", wrapErr(op, err)
	}

	if len(resp.Data) == 0 {
		return "", &remote.Error{Op: op, Message: "no image returned"}
	}

	img := resp.Data[0]
	switch {
	case img.URL != "":
		return img.URL, nil
	case img.B64JSON != "":
		return "data:image/png;base64," + img.B64JSON, nil
	default:
		return "", &remote.Error{Op: op, Message: "no image returned"}
	}
}

// AnalyzeSimilarity describes the image with Claude and scores the
// description against the prompt by embedding cosine similarity.
func (c *Client) AnalyzeSimilarity(ctx context.Context, prompt, imageURL string) (pipeline.AnalysisResult, error) {
	description, err := c.describe(ctx, imageURL)
	if err != nil {
		return pipeline.AnalysisResult{}, err
	}

	if description == "" {
		slog.Warn("vision model returned no description")
		return pipeline.AnalysisResult{}, nil
	}

	score, err := c.similarity(ctx, prompt, description)
	if err != nil {
		return pipeline.AnalysisResult{}, err
	}

	return pipeline.AnalysisResult{SimilarityScore: score, Description: description}, nil
}

func (c *Client) describe(ctx context.Context, imageURL string) (string, error) {
	const op = "describe"

	client, err := c.anthropicClient(op)
	if err != nil {
		return "", err
	}

	image, err := imageBlock(imageURL)
	if err != nil {
		return "", &remote.Error{Op: op, Message: err.Error()}
	}

	params := anthropic.MessageNewParams{
		Model:     c.cfg.VisionModel,
		MaxTokens: 300,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(image, anthropic.NewTextBlock(DescribePrompt)),
		},
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapErr(op, err)
	}

	var parts []string
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, text.Text)
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

func imageBlock(ref string) (anthropic.ContentBlockParamUnion, error) {
	rest, isData := strings.CutPrefix(ref, "data:")
	if !isData {
		return anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: ref}), nil
	}

	mediaType, data, ok := strings.Cut(rest, ";base64,")
	if !ok || data == "" {
		return anthropic.ContentBlockParamUnion{}, errors.New("malformed image data URL")
	}

	return anthropic.NewImageBlockBase64(mediaType, data), nil
}

// similarity embeds both texts and returns their cosine similarity as a
// 0-100 score.
func (c *Client) similarity(ctx context.Context, prompt, description string) (float64, error) {
	const op = "analyze_image_similarity"

	client, err := c.openAIClient(op)
	if err != nil {
		return 0, err
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{prompt, description},
		},
		Model: c.cfg.EmbeddingModel,
	}

	resp, err := client.Embeddings.New(ctx, params)
	if err != nil {
		return 0, wrapErr(op, err)
	}

	if len(resp.Data) != 2 {
		return 0, &remote.Error{Op: op, Message: fmt.Sprintf("expected 2 embeddings, got %d", len(resp.Data))}
	}

	vectors := make([][]float64, 2)
	for _, emb := range resp.Data {
		if emb.Index < 0 || emb.Index > 1 {
			return 0, &remote.Error{Op: op, Message: fmt.Sprintf("unexpected embedding index %d", emb.Index)}
		}
		vectors[emb.Index] = emb.Embedding
	}

	cos, err := Cosine(vectors[0], vectors[1])
	if err != nil {
		return 0, &remote.Error{Op: op, Message: err.Error()}
	}

	return max(0, min(cos*100, 100)), nil
}

// Synthesize speaks text with OpenAI TTS and returns base64 MP3.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	const op = "text_to_speech"

	client, err := c.openAIClient(op)
	if err != nil {
		return "", err
	}

	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModelTTS1,
		Voice:          openai.AudioSpeechNewParamsVoiceAlloy,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}

	resp, err := client.Audio.Speech.New(ctx, params)
	if err != nil {
		return "", wrapErr(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &remote.Error{Op: op, Err: fmt.Errorf("failed to read speech audio: %w", err)}
	}

	if len(data) == 0 {
		return "", &remote.Error{Op: op, Message: "no audio returned"}
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// Cosine returns the cosine similarity of a and b.
func Cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("cannot compare vectors of length %d and %d", len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}

	if na == 0 || nb == 0 {
		return 0, errors.New("cannot compare a zero vector")
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// wrapErr carries the provider's status code and message into a remote.Error.
func wrapErr(op string, err error) error {
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return &remote.Error{Op: op, Status: oaiErr.StatusCode, Message: oaiErr.Message, Err: err}
	}

	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return &remote.Error{Op: op, Status: antErr.StatusCode, Message: anthropicMessage(antErr.RawJSON()), Err: err}
	}

	return &remote.Error{Op: op, Err: err}
}

// anthropicMessage pulls error.message out of an Anthropic error body.
func anthropicMessage(raw string) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return ""
	}

	return body.Error.Message
}
