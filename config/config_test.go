package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GOOGLE_API_KEY", "ELEVEN_LABS_API_KEY", "OPENAI_API_KEY",
		"AVATAR_SERVICES_LLM_API_KEY", "AVATAR_SERVICES_VOICE_API_KEY",
		"AVATAR_SERVICES_LLM_PROVIDER", "AVATAR_SERVER_PORT", "CONFIG_ENV",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, c.Server.Port)
	assert.Equal(t, "*", c.Server.AllowOrigins)
	assert.Equal(t, "gemini", c.Services.LLM.Provider)
	assert.Equal(t, "gemini-1.5-flash", c.Services.LLM.Model)
	assert.Equal(t, "kgG7dCoKCfLehAPWkJOE", c.Services.Voice.VoiceID)
	assert.Equal(t, "eleven_multilingual_v2", c.Services.Voice.ModelID)
	assert.InDelta(t, 0.5, c.Services.Voice.Stability, 1e-9)
	assert.InDelta(t, 0.75, c.Services.Voice.SimilarityBoost, 1e-9)
	assert.Equal(t, 3, c.Script.MaxMessages)
	assert.Equal(t, 2000, c.Limits.MaxMessageChars)
	assert.Equal(t, 120*time.Second, c.Timeouts.Lipsync)
	assert.Equal(t, filepath.Join("bin", "rhubarb"), c.Tools.Rhubarb)
	assert.False(t, c.CredentialsPresent())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("ELEVEN_LABS_API_KEY", "e-key")
	t.Setenv("AVATAR_SERVER_PORT", "8080")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "g-key", c.Services.LLM.APIKey)
	assert.Equal(t, "e-key", c.Services.Voice.APIKey)
	assert.Equal(t, 8080, c.Server.Port)
	assert.True(t, c.CredentialsPresent())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, `
pipeline:
  log_level: debug
  keep_artifacts: true
services:
  voice:
    api_key: file-key
    voice_id: other
script:
  max_messages: 9
timeouts:
  synthesis: 5s
paths:
  work_dir: /tmp/replies
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Pipeline.LogLvl)
	assert.True(t, c.Pipeline.KeepArtifacts)
	assert.Equal(t, "file-key", c.Services.Voice.APIKey)
	assert.Equal(t, "other", c.Services.Voice.VoiceID)
	assert.Equal(t, 3, c.Script.MaxMessages)
	assert.Equal(t, 5*time.Second, c.Timeouts.Synthesis)
	assert.Equal(t, "/tmp/replies", c.Paths.WorkDir)
	// untouched keys keep their defaults
	assert.Equal(t, "https://api.elevenlabs.io", c.Services.Voice.URL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestOpenAIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("AVATAR_SERVICES_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-1")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Services.LLM.Provider)
	assert.Equal(t, "sk-1", c.Services.LLM.APIKey)
}

func TestHasKey(t *testing.T) {
	assert.False(t, HasKey(""))
	assert.False(t, HasKey("  "))
	assert.False(t, HasKey(Placeholder))
	assert.True(t, HasKey("abc"))

	var r Root
	r.Services.LLM.APIKey = "x"
	r.Services.Voice.APIKey = "-"
	assert.False(t, r.CredentialsPresent())
	r.Services.Voice.APIKey = "y"
	assert.True(t, r.CredentialsPresent())
}

func TestGoogleKeyNotUsedForOpenAI(t *testing.T) {
	clearEnv(t)
	t.Setenv("AVATAR_SERVICES_LLM_PROVIDER", "openai")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("ELEVEN_LABS_API_KEY", "e-key")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Placeholder, c.Services.LLM.APIKey)
	assert.False(t, c.CredentialsPresent())

	t.Setenv("OPENAI_API_KEY", "sk-2")
	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-2", c.Services.LLM.APIKey)
	assert.True(t, c.CredentialsPresent())
}

func TestOpenAIKeyNotUsedForGemini(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-1")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Services.LLM.Provider)
	assert.Equal(t, Placeholder, c.Services.LLM.APIKey)
}

func TestExplicitLLMKeyWinsOverProviderVariable(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("AVATAR_SERVICES_LLM_API_KEY", "explicit")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "explicit", c.Services.LLM.APIKey)
}

func TestLoadRejectsBlankFallback(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "script:\n  fallback_text: \"  \"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback_text")
}
