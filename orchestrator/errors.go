package orchestrator

import (
	"errors"
	"fmt"

	"github.com/virtual-bestfriend/reply-pipeline/lipsync"
)

// Kind classifies a failed request for clients.
type Kind string

const (
	KindSynthesis Kind = "synthesis"
	KindTranscode Kind = "transcode"
	KindAlignment Kind = "alignment"
	KindAssembly  Kind = "assembly"
	KindAssets    Kind = "assets"
	KindWorkspace Kind = "workspace"
)

// Error is returned by Run for every failure; Index is the segment involved or
// -1 when the failure is not tied to one.
type Error struct {
	Kind  Kind
	Index int
	Err   error
}

func (e *Error) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s failed for segment %d: %v", e.Kind, e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func lipsyncError(i int, err error) *Error {
	var se *lipsync.StepError
	if errors.As(err, &se) && se.Step == "transcode" {
		return &Error{Kind: KindTranscode, Index: i, Err: err}
	}
	return &Error{Kind: KindAlignment, Index: i, Err: err}
}
