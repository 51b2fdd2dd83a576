package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	cfg "github.com/virtual-bestfriend/reply-pipeline/config"
	"github.com/virtual-bestfriend/reply-pipeline/metrics"
	"github.com/virtual-bestfriend/reply-pipeline/orchestrator"
)

// Chatter answers one chat turn.
type Chatter interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Reply, error)
}

// VoiceLister returns the voice catalogue of the synthesis service untouched.
type VoiceLister interface {
	ListVoices(ctx context.Context) (json.RawMessage, error)
}

type Server struct {
	cfg    *cfg.Root
	app    *fiber.App
	chat   Chatter
	voices VoiceLister
	log    logrus.FieldLogger
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Messages []orchestrator.Envelope `json:"messages"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Index   *int   `json:"index,omitempty"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func New(c *cfg.Root, chat Chatter, voices VoiceLister, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{cfg: c, chat: chat, voices: voices, log: log}

	s.app = fiber.New(fiber.Config{
		AppName:               c.Pipeline.Name,
		DisableStartupMessage: true,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
	})
	s.app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	s.app.Use(cors.New(cors.Config{AllowOrigins: c.Server.AllowOrigins}))
	s.app.Use(s.observe)

	s.app.Get("/", s.liveness)
	s.app.Get("/voices", s.listVoices)
	s.app.Post("/chat", s.handleChat)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.log.WithField("addr", addr).Info("HTTP server starting")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) liveness(c *fiber.Ctx) error {
	return c.SendString("Hello World!")
}

func (s *Server) listVoices(c *fiber.Ctx) error {
	raw, err := s.voices.ListVoices(c.UserContext())
	if err != nil {
		s.entry(c).WithError(err).Warn("voice listing failed")
		return c.Status(fiber.StatusBadGateway).JSON(errorBody{Error: errorDetail{Kind: "voices", Message: err.Error()}})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	ct := strings.ToLower(string(c.Request().Header.ContentType()))
	if len(c.Body()) > 0 && strings.HasPrefix(ct, fiber.MIMEApplicationJSON) {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: errorDetail{Kind: "bad_request", Message: "body must be a JSON object with an optional \"message\" string"}})
		}
	}

	reply, err := s.chat.Run(c.UserContext(), orchestrator.Request{ID: requestID(c), Message: req.Message})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(chatResponse{Messages: reply.Messages})
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	var pe *orchestrator.Error
	if !errors.As(err, &pe) {
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: errorDetail{Kind: "internal", Message: err.Error()}})
	}
	status := fiber.StatusInternalServerError
	switch pe.Kind {
	case orchestrator.KindSynthesis, orchestrator.KindTranscode, orchestrator.KindAlignment:
		status = fiber.StatusBadGateway
	}
	d := errorDetail{Kind: string(pe.Kind), Message: pe.Err.Error()}
	if pe.Index >= 0 {
		i := pe.Index
		d.Index = &i
	}
	return c.Status(status).JSON(errorBody{Error: d})
}

func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	metrics.HTTPRequests.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Inc()
	s.entry(c).WithFields(logrus.Fields{
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     status,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("http request")
	return err
}

func (s *Server) entry(c *fiber.Ctx) *logrus.Entry {
	return s.log.WithField("request_id", requestID(c))
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return ""
}
