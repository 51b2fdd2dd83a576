package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// --- ElevenLabs (/v1/text-to-speech/{voice}, /v1/voices) ---
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}
type SpeechReq struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

func (h *HTTP) TextToSpeech(ctx context.Context, baseURL, apiKey, voiceID string, sr SpeechReq) ([]byte, error) {
	b, _ := json.Marshal(sr)
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", strings.TrimRight(baseURL, "/"), voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", apiKey)

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts read: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts: empty audio")
	}
	return audio, nil
}

func (h *HTTP) Voices(ctx context.Context, baseURL, apiKey string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/v1/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", apiKey)

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("voices %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("voices decode: %w", err)
	}
	return out, nil
}

// ElevenLabs speaks every text with one fixed voice.
type ElevenLabs struct {
	h        *HTTP
	baseURL  string
	apiKey   string
	voiceID  string
	settings SpeechReq
}

func NewElevenLabs(h *HTTP, baseURL, apiKey, voiceID, modelID string, vs VoiceSettings) *ElevenLabs {
	return &ElevenLabs{
		h:        h,
		baseURL:  baseURL,
		apiKey:   apiKey,
		voiceID:  voiceID,
		settings: SpeechReq{ModelID: modelID, VoiceSettings: vs},
	}
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	sr := e.settings
	sr.Text = text
	return e.h.TextToSpeech(ctx, e.baseURL, e.apiKey, e.voiceID, sr)
}

func (e *ElevenLabs) ListVoices(ctx context.Context) (json.RawMessage, error) {
	return e.h.Voices(ctx, e.baseURL, e.apiKey)
}
