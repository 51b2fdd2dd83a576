package lipsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"
)

const stderrTail = 4 << 10

// FFmpeg transcodes with the ffmpeg binary.
type FFmpeg struct {
	Path string
}

func (f FFmpeg) Transcode(ctx context.Context, in, out string) error {
	return run(ctx, f.Path, "-y", "-loglevel", "error", "-i", in, out)
}

// Rhubarb aligns with Rhubarb Lip Sync in phonetic recognition mode.
type Rhubarb struct {
	Path string
}

func (r Rhubarb) Align(ctx context.Context, in, out string) error {
	return run(ctx, r.Path, "-f", "json", "-o", out, in, "-r", "phonetic")
}

func run(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", bin, ctxErr)
		}
		detail := tail(stderr.String(), stderrTail)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && detail != "" {
			return fmt.Errorf("%s exited %d: %s", bin, exitErr.ExitCode(), detail)
		}
		return fmt.Errorf("%s: %w", bin, err)
	}
	return nil
}

// tail keeps at most the last n bytes of s, starting on a rune boundary, as
// valid UTF-8.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = s[len(s)-n:]
		for len(s) > 0 && !utf8.RuneStart(s[0]) {
			s = s[1:]
		}
	}
	return strings.TrimSpace(strings.ToValidUTF8(s, "\uFFFD"))
}
