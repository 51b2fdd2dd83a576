package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	cfg "github.com/virtual-bestfriend/reply-pipeline/config"
	"github.com/virtual-bestfriend/reply-pipeline/lipsync"
	"github.com/virtual-bestfriend/reply-pipeline/metrics"
	"github.com/virtual-bestfriend/reply-pipeline/script"
	"github.com/virtual-bestfriend/reply-pipeline/workdir"
)

type ScriptGenerator interface {
	Generate(ctx context.Context, userText string) ([]script.Entry, bool)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type VisemeExtractor interface {
	Extract(ctx context.Context, audio, wave, cues string) (*lipsync.Lipsync, error)
}

type Pipeline struct {
	cfg     *cfg.Root
	script  ScriptGenerator
	voice   Synthesizer
	visemes VisemeExtractor
	canned  *Canned
	log     logrus.FieldLogger
}

func NewPipeline(c *cfg.Root, gen ScriptGenerator, voice Synthesizer, vx VisemeExtractor, log logrus.FieldLogger) (*Pipeline, error) {
	canned, err := LoadCanned(c.Paths.Canned)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{cfg: c, script: gen, voice: voice, visemes: vx, canned: canned, log: log}, nil
}

// Run answers one chat turn. Blank messages and missing credentials are served
// from pre-recorded assets; everything else is generated, then synthesized and
// lip-synced one segment at a time in order.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Reply, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	log := p.log.WithField("request_id", req.ID)
	start := time.Now()

	r, err := p.run(ctx, log, req)
	if err != nil {
		metrics.Replies.WithLabelValues(string(OutcomeFailed)).Inc()
		log.WithError(err).WithField("elapsed_ms", time.Since(start).Milliseconds()).Error("chat request failed")
		return nil, err
	}
	metrics.Replies.WithLabelValues(string(r.Outcome)).Inc()
	log.WithFields(logrus.Fields{
		"outcome":    r.Outcome,
		"segments":   len(r.Messages),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("chat request done")
	return r, nil
}

func (p *Pipeline) run(ctx context.Context, log logrus.FieldLogger, req Request) (*Reply, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return p.early(req.ID, OutcomeIntro, p.canned.Intro)
	}
	if !p.cfg.CredentialsPresent() {
		log.Warn("service credentials missing, serving canned reply")
		return p.early(req.ID, OutcomeMissingCredentials, p.canned.MissingCredentials)
	}
	text = truncateRunes(text, p.cfg.Limits.MaxMessageChars)

	t0 := time.Now()
	entries, fellBack := p.script.Generate(ctx, text)
	p.stage(log, "generate", -1, t0)
	metrics.Segments.Observe(float64(len(entries)))

	ws, err := workdir.New(p.cfg.Paths.WorkDir)
	if err != nil {
		return nil, &Error{Kind: KindWorkspace, Index: -1, Err: err}
	}
	log = log.WithField("workspace", ws.ID)
	if !p.cfg.Pipeline.KeepArtifacts {
		defer func() {
			if err := ws.Remove(); err != nil {
				log.WithError(err).Warn("workspace cleanup failed")
			}
		}()
	}

	audio := make(map[int][]byte, len(entries))
	cues := make(map[int]*lipsync.Lipsync, len(entries))
	for i, e := range entries {
		a, err := p.synthesize(ctx, log, ws, i, e.Text)
		if err != nil {
			return nil, err
		}
		ls, err := p.extract(ctx, log, ws, i)
		if err != nil {
			return nil, err
		}
		audio[i], cues[i] = a, ls
	}

	envs, err := assemble(entries, audio, cues)
	if err != nil {
		return nil, err
	}

	r := &Reply{RequestID: req.ID, Workspace: ws.ID, Outcome: OutcomeGenerated, Messages: envs}
	if fellBack {
		r.Outcome = OutcomeFallback
	}
	if p.cfg.Pipeline.KeepArtifacts {
		if path, err := persist(ws, text, r); err != nil {
			log.WithError(err).Warn("could not write reply bundle")
		} else {
			log.WithField("path", path).Debug("reply bundle written")
		}
	}
	return r, nil
}

func (p *Pipeline) early(id string, o Outcome, entries []CannedEntry) (*Reply, error) {
	envs, err := envelopes(p.cfg.Paths.Assets, entries)
	if err != nil {
		return nil, err
	}
	return &Reply{RequestID: id, Outcome: o, Messages: envs}, nil
}

func (p *Pipeline) synthesize(ctx context.Context, log logrus.FieldLogger, ws *workdir.Workspace, i int, text string) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, p.cfg.Timeouts.Synthesis)
	defer cancel()

	t0 := time.Now()
	data, err := p.voice.Synthesize(ctx, text)
	if err != nil {
		return nil, &Error{Kind: KindSynthesis, Index: i, Err: err}
	}
	if _, err := ws.WriteAudio(i, data); err != nil {
		return nil, &Error{Kind: KindWorkspace, Index: i, Err: err}
	}
	p.stage(log, "synthesize", i, t0)
	return data, nil
}

func (p *Pipeline) extract(ctx context.Context, log logrus.FieldLogger, ws *workdir.Workspace, i int) (*lipsync.Lipsync, error) {
	ctx, cancel := withTimeout(ctx, p.cfg.Timeouts.Lipsync)
	defer cancel()

	t0 := time.Now()
	ls, err := p.visemes.Extract(ctx, ws.AudioPath(i), ws.WavePath(i), ws.CuesPath(i))
	if err != nil {
		return nil, lipsyncError(i, err)
	}
	p.stage(log, "lipsync", i, t0)
	return ls, nil
}

func (p *Pipeline) stage(log logrus.FieldLogger, name string, i int, t0 time.Time) {
	d := time.Since(t0)
	metrics.StageDuration.WithLabelValues(name).Observe(d.Seconds())
	f := logrus.Fields{"stage": name, "elapsed_ms": d.Milliseconds()}
	if i >= 0 {
		f["index"] = i
	}
	log.WithFields(f).Debug("stage done")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
