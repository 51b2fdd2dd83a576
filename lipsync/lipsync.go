// Package lipsync turns synthesized speech into timed mouth-shape cues.
package lipsync

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
)

type Cue struct {
	Start float64 `json:"start"` // sec
	End   float64 `json:"end"`   // sec
	Value string  `json:"value"` // A-H, X at rest
}

type Metadata struct {
	SoundFile string  `json:"soundFile"`
	Duration  float64 `json:"duration"`
}

// Lipsync is the cue document attached to every reply segment.
type Lipsync struct {
	Metadata  Metadata `json:"metadata"`
	MouthCues []Cue    `json:"mouthCues"`
}

// Transcoder converts the synthesized audio into the waveform the aligner reads.
type Transcoder interface {
	Transcode(ctx context.Context, in, out string) error
}

// Aligner writes a cue file for a waveform.
type Aligner interface {
	Align(ctx context.Context, in, out string) error
}

// StepError names the extraction step that failed.
type StepError struct {
	Step string // "transcode" | "align" | "read"
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("lipsync %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

type Extractor struct {
	t Transcoder
	a Aligner
}

func NewExtractor(t Transcoder, a Aligner) *Extractor {
	return &Extractor{t: t, a: a}
}

// Extract transcodes audio into wave, aligns it into cues and reads the result.
func (x *Extractor) Extract(ctx context.Context, audio, wave, cues string) (*Lipsync, error) {
	if err := x.t.Transcode(ctx, audio, wave); err != nil {
		return nil, &StepError{Step: "transcode", Err: err}
	}
	if err := x.a.Align(ctx, wave, cues); err != nil {
		return nil, &StepError{Step: "align", Err: err}
	}
	ls, err := ReadFile(cues)
	if err != nil {
		return nil, &StepError{Step: "read", Err: err}
	}
	return ls, nil
}

// ReadFile decodes a cue document written by the aligner.
func ReadFile(path string) (*Lipsync, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ls Lipsync
	if err := sonic.Unmarshal(b, &ls); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &ls, nil
}
