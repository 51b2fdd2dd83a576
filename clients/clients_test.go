package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiComplete(t *testing.T) {
	var got GenerateReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "k1", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"[{\"text\":"},{"text":"\"hi\"}]"}]}}]}`)
	}))
	defer srv.Close()

	g := NewGemini(NewHTTP(5*time.Second), srv.URL, "gemini-1.5-flash", "k1")
	out, err := g.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `[{"text":"hi"}]`, out)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "hello", got.Contents[0].Parts[0].Text)
}

func TestGeminiBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGemini(NewHTTP(0), srv.URL, "m", "k")
	_, err := g.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGeminiEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	_, err := NewGemini(NewHTTP(0), srv.URL, "m", "k").Complete(context.Background(), "x")
	require.Error(t, err)
}

func TestElevenLabsSynthesize(t *testing.T) {
	var got SpeechReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0xff, 0xfb, 0x90, 0x00})
	}))
	defer srv.Close()

	e := NewElevenLabs(NewHTTP(0), srv.URL, "secret", "voice-1", "eleven_multilingual_v2", VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75})
	audio, err := e.Synthesize(context.Background(), "Hello there")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfb, 0x90, 0x00}, audio)
	assert.Equal(t, "Hello there", got.Text)
	assert.Equal(t, "eleven_multilingual_v2", got.ModelID)
	assert.InDelta(t, 0.75, got.VoiceSettings.SimilarityBoost, 1e-9)
}

func TestElevenLabsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := NewElevenLabs(NewHTTP(0), srv.URL, "bad", "v", "", VoiceSettings{})
	_, err := e.Synthesize(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tts 401")
}

func TestElevenLabsVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/voices", r.URL.Path)
		_, _ = io.WriteString(w, `{"voices":[{"voice_id":"a","name":"Alice"}]}`)
	}))
	defer srv.Close()

	raw, err := NewElevenLabs(NewHTTP(0), srv.URL, "k", "v", "", VoiceSettings{}).ListVoices(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"voices":[{"voice_id":"a","name":"Alice"}]}`, string(raw))
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"messages\":[]}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(srv.URL, "gpt-4o-mini", "sk-test")
	out, err := o.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, `{"messages":[]}`, out)
}
