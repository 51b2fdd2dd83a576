// Package script asks the language-generation service for the avatar's reply
// and turns whatever comes back into one to three speakable entries.
package script

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	ExpressionDefault = "default"
	AnimationIdle     = "Idle"

	// MaxEntries bounds every reply, whatever the service returns.
	MaxEntries = 3

	DefaultFallbackText = "Oops, I got a little confused there. Could you ask me again?"
)

var (
	Expressions = []string{"smile", "surprised", "default", "sad", "angry"}
	Animations  = []string{"Talking_0", "Talking_1", "Talking_2", "Idle", "Laughing", "Crying", "Angry"}
)

// Entry is one reply segment before audio and lipsync are attached.
type Entry struct {
	Text             string `json:"text"`
	FacialExpression string `json:"facialExpression"`
	Animation        string `json:"animation"`
}

// Completer sends a prompt to a language-generation service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Options struct {
	Persona      string
	FallbackText string
	MaxMessages  int
	Timeout      time.Duration
}

type Generator struct {
	llm  Completer
	opts Options
	log  logrus.FieldLogger
}

func NewGenerator(llm Completer, opts Options, log logrus.FieldLogger) *Generator {
	if opts.MaxMessages <= 0 || opts.MaxMessages > MaxEntries {
		opts.MaxMessages = MaxEntries
	}
	if strings.TrimSpace(opts.FallbackText) == "" {
		opts.FallbackText = DefaultFallbackText
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{llm: llm, opts: opts, log: log}
}

// Prompt renders the instruction sent for one user message.
func (g *Generator) Prompt(userText string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(g.opts.Persona))
	b.WriteString("\n")
	fmt.Fprintf(&b, "You must always reply only with JSON: an object with an array called \"messages\" (max %d messages).\n", g.opts.MaxMessages)
	b.WriteString("Do not add any text outside the JSON.\n")
	b.WriteString("Each message has:\n")
	b.WriteString("  - text (string)\n")
	fmt.Fprintf(&b, "  - facialExpression (one of: %s)\n", strings.Join(Expressions, ", "))
	fmt.Fprintf(&b, "  - animation (one of: %s)\n", strings.Join(Animations, ", "))
	fmt.Fprintf(&b, "Student message: %s\n", strconv.Quote(userText))
	return b.String()
}

// Fallback is the single entry used whenever generation fails.
func (g *Generator) Fallback() []Entry {
	return []Entry{{Text: g.opts.FallbackText, FacialExpression: ExpressionDefault, Animation: AnimationIdle}}
}

// Generate never fails: any service or contract error degrades to Fallback,
// reported through the second return value.
func (g *Generator) Generate(ctx context.Context, userText string) ([]Entry, bool) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	raw, err := g.llm.Complete(ctx, g.Prompt(userText))
	if err != nil {
		g.log.WithError(err).Warn("generation failed, using fallback reply")
		return g.Fallback(), true
	}

	entries, sh, err := parse(raw)
	if err != nil {
		g.log.WithError(err).WithField("raw", truncate(raw, 200)).Warn("unparseable generation output, using fallback reply")
		return g.Fallback(), true
	}

	entries = normalize(entries, g.opts.MaxMessages)
	if len(entries) == 0 {
		g.log.WithField("shape", sh.String()).Warn("generation returned no usable messages, using fallback reply")
		return g.Fallback(), true
	}
	g.log.WithFields(logrus.Fields{"shape": sh.String(), "count": len(entries)}).Debug("script generated")
	return entries, false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
