package orchestrator

import (
	"encoding/base64"
	"fmt"

	"github.com/virtual-bestfriend/reply-pipeline/lipsync"
	"github.com/virtual-bestfriend/reply-pipeline/script"
)

// assemble merges entries with their audio and cues by index, keeping order.
func assemble(entries []script.Entry, audio map[int][]byte, cues map[int]*lipsync.Lipsync) ([]Envelope, error) {
	out := make([]Envelope, 0, len(entries))
	for i, e := range entries {
		a, ok := audio[i]
		if !ok || len(a) == 0 {
			return nil, &Error{Kind: KindAssembly, Index: i, Err: fmt.Errorf("no audio for segment")}
		}
		c, ok := cues[i]
		if !ok || c == nil {
			return nil, &Error{Kind: KindAssembly, Index: i, Err: fmt.Errorf("no lipsync for segment")}
		}
		out = append(out, Envelope{
			Text:             e.Text,
			FacialExpression: e.FacialExpression,
			Animation:        e.Animation,
			Audio:            base64.StdEncoding.EncodeToString(a),
			Lipsync:          c,
		})
	}
	return out, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || n >= len(r) {
		return s
	}
	return string(r[:n])
}
