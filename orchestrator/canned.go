package orchestrator

import (
	_ "embed"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/virtual-bestfriend/reply-pipeline/lipsync"
)

//go:embed canned.yaml
var defaultCanned []byte

type CannedEntry struct {
	Text             string `yaml:"text"`
	FacialExpression string `yaml:"facialExpression"`
	Animation        string `yaml:"animation"`
	Asset            string `yaml:"asset"`
}

// Canned holds the replies that are served without generation or synthesis.
type Canned struct {
	Intro              []CannedEntry `yaml:"intro"`
	MissingCredentials []CannedEntry `yaml:"missing_credentials"`
}

// LoadCanned reads a manifest file, or the built-in one when path is empty.
func LoadCanned(path string) (*Canned, error) {
	data := defaultCanned
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	var c Canned
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("canned manifest: %w", err)
	}
	if len(c.Intro) == 0 || len(c.MissingCredentials) == 0 {
		return nil, fmt.Errorf("canned manifest: intro and missing_credentials must not be empty")
	}
	return &c, nil
}

// envelopes loads the pre-recorded audio and cues for entries from dir.
func envelopes(dir string, entries []CannedEntry) ([]Envelope, error) {
	out := make([]Envelope, 0, len(entries))
	for i, e := range entries {
		audio, err := os.ReadFile(filepath.Join(dir, e.Asset+".wav"))
		if err != nil {
			return nil, &Error{Kind: KindAssets, Index: i, Err: err}
		}
		ls, err := lipsync.ReadFile(filepath.Join(dir, e.Asset+".json"))
		if err != nil {
			return nil, &Error{Kind: KindAssets, Index: i, Err: err}
		}
		out = append(out, Envelope{
			Text:             e.Text,
			FacialExpression: e.FacialExpression,
			Animation:        e.Animation,
			Audio:            base64.StdEncoding.EncodeToString(audio),
			Lipsync:          ls,
		})
	}
	return out, nil
}
