package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Placeholder marks a credential that was deliberately left unset.
const Placeholder = "-"

type Service struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

type LLM struct {
	Service  `mapstructure:",squash"`
	Provider string `mapstructure:"provider"` // gemini | openai
	Model    string `mapstructure:"model"`
}

type Voice struct {
	Service         `mapstructure:",squash"`
	VoiceID         string  `mapstructure:"voice_id"`
	ModelID         string  `mapstructure:"model_id"`
	Stability       float64 `mapstructure:"stability"`
	SimilarityBoost float64 `mapstructure:"similarity_boost"`
}

type Services struct {
	LLM   LLM   `mapstructure:"llm"`
	Voice Voice `mapstructure:"voice"`
}

type Tools struct {
	FFmpeg  string `mapstructure:"ffmpeg"`
	Rhubarb string `mapstructure:"rhubarb"`
}

type Script struct {
	Persona      string `mapstructure:"persona"`
	FallbackText string `mapstructure:"fallback_text"`
	MaxMessages  int    `mapstructure:"max_messages"`
}

type Timeouts struct {
	Generation time.Duration `mapstructure:"generation"`
	Synthesis  time.Duration `mapstructure:"synthesis"`
	Lipsync    time.Duration `mapstructure:"lipsync"`
	HTTP       time.Duration `mapstructure:"http"`
}

type Root struct {
	Pipeline struct {
		Name          string `mapstructure:"name"`
		Version       string `mapstructure:"version"`
		LogLvl        string `mapstructure:"log_level"`
		LogFormat     string `mapstructure:"log_format"`
		KeepArtifacts bool   `mapstructure:"keep_artifacts"`
	} `mapstructure:"pipeline"`
	Server struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		AllowOrigins string `mapstructure:"allow_origins"`
	} `mapstructure:"server"`
	Services Services `mapstructure:"services"`
	Tools    Tools    `mapstructure:"tools"`
	Script   Script   `mapstructure:"script"`
	Limits   struct {
		MaxMessageChars int `mapstructure:"max_message_chars"`
	} `mapstructure:"limits"`
	Timeouts Timeouts `mapstructure:"timeouts"`
	Paths    struct {
		WorkDir string `mapstructure:"work_dir"`
		Assets  string `mapstructure:"assets"`
		Canned  string `mapstructure:"canned"`
	} `mapstructure:"paths"`
}

const defaultPersona = `You are a friendly virtual learning assistant.
Your job is to help the student understand topics clearly.
Always explain concepts step-by-step, give examples, and encourage the student.`

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "reply-pipeline")
	v.SetDefault("pipeline.version", "dev")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("pipeline.log_format", "text")
	v.SetDefault("pipeline.keep_artifacts", false)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.allow_origins", "*")

	v.SetDefault("services.llm.provider", "gemini")
	v.SetDefault("services.llm.url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("services.llm.model", "gemini-1.5-flash")
	v.SetDefault("services.llm.api_key", Placeholder)

	v.SetDefault("services.voice.url", "https://api.elevenlabs.io")
	v.SetDefault("services.voice.voice_id", "kgG7dCoKCfLehAPWkJOE")
	v.SetDefault("services.voice.model_id", "eleven_multilingual_v2")
	v.SetDefault("services.voice.stability", 0.5)
	v.SetDefault("services.voice.similarity_boost", 0.75)
	v.SetDefault("services.voice.api_key", "")

	v.SetDefault("tools.ffmpeg", "ffmpeg")
	v.SetDefault("tools.rhubarb", filepath.Join("bin", "rhubarb"))

	v.SetDefault("script.persona", defaultPersona)
	v.SetDefault("script.fallback_text", "Oops, I got a little confused there. Could you ask me again?")
	v.SetDefault("script.max_messages", 3)

	v.SetDefault("limits.max_message_chars", 2000)

	v.SetDefault("timeouts.generation", "60s")
	v.SetDefault("timeouts.synthesis", "60s")
	v.SetDefault("timeouts.lipsync", "120s")
	v.SetDefault("timeouts.http", "90s")

	v.SetDefault("paths.work_dir", "audios")
	v.SetDefault("paths.assets", "audios")
	v.SetDefault("paths.canned", "")
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment. An explicit path must exist; otherwise the usual locations are
// tried and skipped when absent.
func Load(path string) (*Root, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AVATAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("services.voice.api_key", "AVATAR_SERVICES_VOICE_API_KEY", "ELEVEN_LABS_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else if p := guess(); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// The historical key variable only counts for the provider it belongs to;
	// AVATAR_SERVICES_LLM_API_KEY still wins over it.
	if k := os.Getenv(providerKeyEnv(cfg.Services.LLM.Provider)); HasKey(k) && os.Getenv("AVATAR_SERVICES_LLM_API_KEY") == "" {
		cfg.Services.LLM.APIKey = k
	}
	if strings.TrimSpace(cfg.Script.FallbackText) == "" {
		return nil, errors.New("script.fallback_text must not be blank")
	}
	if cfg.Script.MaxMessages <= 0 || cfg.Script.MaxMessages > 3 {
		cfg.Script.MaxMessages = 3
	}
	return &cfg, nil
}

func providerKeyEnv(provider string) string {
	if provider == "openai" {
		return "OPENAI_API_KEY"
	}
	return "GOOGLE_API_KEY"
}

func guess() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	var candidates []string = []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		} else if !errors.Is(err, os.ErrNotExist) {
			return p
		}
	}
	return ""
}

// HasKey reports whether a credential was actually provided.
func HasKey(k string) bool {
	k = strings.TrimSpace(k)
	return k != "" && k != Placeholder
}

// CredentialsPresent reports whether both the generation and voice services
// can be called.
func (r *Root) CredentialsPresent() bool {
	return HasKey(r.Services.LLM.APIKey) && HasKey(r.Services.Voice.APIKey)
}
