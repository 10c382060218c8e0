package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModelID = "eleven_multilingual_v2"
)

// ErrNotConfigured is returned when the client has no API key or no voice.
var ErrNotConfigured = errors.New("tts: elevenlabs not configured")

// ElevenLabsClient synthesizes speech via the ElevenLabs text-to-speech API.
type ElevenLabsClient struct {
	APIKey     string
	BaseURL    string
	ModelID    string
	VoiceID    string
	HTTPClient *http.Client
}

// NewElevenLabsClient returns a client for the given API key. Empty baseURL/modelID use the defaults.
// voiceID is used when Synthesize is called without one.
func NewElevenLabsClient(apiKey, baseURL, modelID, voiceID string) *ElevenLabsClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if modelID == "" {
		modelID = defaultModelID
	}
	return &ElevenLabsClient{
		APIKey:     apiKey,
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		ModelID:    modelID,
		VoiceID:    voiceID,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize returns mp3 audio for text. Does not log the text.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if voiceID == "" {
		voiceID = c.VoiceID
	}
	if c.APIKey == "" || voiceID == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("tts: text is empty")
	}
	raw, err := json.Marshal(synthesizeRequest{Text: text, ModelID: c.ModelID})
	if err != nil {
		return nil, err
	}
	endpoint := c.BaseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tts: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.New("tts: empty audio response")
	}
	return audio, nil
}
