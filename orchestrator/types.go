package orchestrator

import (
	"github.com/virtual-bestfriend/reply-pipeline/lipsync"
)

// Request is one chat turn. ID only tags logs and the reply; it may come from a
// client and is never used to name files. A missing ID gets a fresh uuid.
type Request struct {
	ID      string
	Message string
}

// Envelope is one reply segment as the client receives it.
type Envelope struct {
	Text             string           `json:"text"`
	FacialExpression string           `json:"facialExpression"`
	Animation        string           `json:"animation"`
	Audio            string           `json:"audio"` // base64
	Lipsync          *lipsync.Lipsync `json:"lipsync"`
}

type Outcome string

const (
	OutcomeIntro              Outcome = "intro"
	OutcomeMissingCredentials Outcome = "missing_credentials"
	OutcomeGenerated          Outcome = "generated"
	OutcomeFallback           Outcome = "fallback"
	OutcomeFailed             Outcome = "failed"
)

type Reply struct {
	RequestID string
	// Workspace is the directory name the generated artifacts lived in, empty
	// for canned replies.
	Workspace string
	Outcome   Outcome
	Messages  []Envelope
}
