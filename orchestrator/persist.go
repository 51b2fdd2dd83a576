package orchestrator

import (
	"time"

	"github.com/virtual-bestfriend/reply-pipeline/workdir"
)

// ReplyBundle is written next to the kept artifacts of a request.
type ReplyBundle struct {
	RequestID   string     `json:"request_id"`
	Workspace   string     `json:"workspace"`
	Message     string     `json:"message"`
	Outcome     Outcome    `json:"outcome"`
	GeneratedAt time.Time  `json:"generated_at"`
	Messages    []Envelope `json:"messages"`
}

func persist(ws *workdir.Workspace, message string, r *Reply) (string, error) {
	bundle := ReplyBundle{
		RequestID:   r.RequestID,
		Workspace:   r.Workspace,
		Message:     message,
		Outcome:     r.Outcome,
		GeneratedAt: time.Now(),
		Messages:    r.Messages,
	}
	return ws.WriteJSON("reply.json", bundle)
}
