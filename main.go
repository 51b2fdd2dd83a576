package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/virtual-bestfriend/reply-pipeline/clients"
	cfg "github.com/virtual-bestfriend/reply-pipeline/config"
	"github.com/virtual-bestfriend/reply-pipeline/lipsync"
	"github.com/virtual-bestfriend/reply-pipeline/orchestrator"
	"github.com/virtual-bestfriend/reply-pipeline/script"
	"github.com/virtual-bestfriend/reply-pipeline/server"
)

var configPath string

// app is everything a command needs once configuration has been read.
type app struct {
	conf     *cfg.Root
	log      *logrus.Logger
	voice    *clients.ElevenLabs
	pipeline *orchestrator.Pipeline
}

func main() {
	root := &cobra.Command{
		Use:           "reply-pipeline",
		Short:         "Turns chat messages into spoken, lip-synced avatar replies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), a)
		},
	}

	chatCmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Answer one message and print the reply envelopes as JSON",
		Long:  "Answer one message and print the reply envelopes as JSON. Without a message the introduction is returned.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			msg := strings.Join(args, " ")
			reply, err := a.pipeline.Run(cmd.Context(), orchestrator.Request{Message: msg})
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"messages": reply.Messages})
		},
	}

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "List the voices available to the configured account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			raw, err := a.voice.ListVoices(cmd.Context())
			if err != nil {
				return err
			}
			var v any
			if err := sonic.Unmarshal(raw, &v); err != nil {
				return err
			}
			return printJSON(v)
		},
	}

	root.AddCommand(serveCmd, chatCmd, voicesCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func build() (*app, error) {
	conf, err := cfg.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := newLogger(conf)

	h := clients.NewHTTP(conf.Timeouts.HTTP)
	gen := script.NewGenerator(completer(conf, h), script.Options{
		Persona:      conf.Script.Persona,
		FallbackText: conf.Script.FallbackText,
		MaxMessages:  conf.Script.MaxMessages,
		Timeout:      conf.Timeouts.Generation,
	}, log)

	v := conf.Services.Voice
	voice := clients.NewElevenLabs(h, v.URL, v.APIKey, v.VoiceID, v.ModelID, clients.VoiceSettings{
		Stability:       v.Stability,
		SimilarityBoost: v.SimilarityBoost,
	})
	vx := lipsync.NewExtractor(lipsync.FFmpeg{Path: conf.Tools.FFmpeg}, lipsync.Rhubarb{Path: conf.Tools.Rhubarb})

	p, err := orchestrator.NewPipeline(conf, gen, voice, vx, log)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	if !conf.CredentialsPresent() {
		log.Warn("generation or voice credentials missing; chat will answer with the canned notice")
	}
	return &app{conf: conf, log: log, voice: voice, pipeline: p}, nil
}

func completer(conf *cfg.Root, h *clients.HTTP) script.Completer {
	l := conf.Services.LLM
	if l.Provider == "openai" {
		base := l.URL
		if strings.Contains(base, "generativelanguage") {
			base = ""
		}
		model := l.Model
		if strings.HasPrefix(model, "gemini") {
			model = ""
		}
		return clients.NewOpenAI(base, model, l.APIKey)
	}
	return clients.NewGemini(h, l.URL, l.Model, l.APIKey)
}

func newLogger(conf *cfg.Root) *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(conf.Pipeline.LogLvl)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	if conf.Pipeline.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// serve runs the HTTP server until ctx is cancelled by SIGINT or SIGTERM.
func serve(ctx context.Context, a *app) error {
	srv := server.New(a.conf, a.pipeline, a.voice, a.log)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		a.log.Info("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func printJSON(v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(b))
	return err
}
