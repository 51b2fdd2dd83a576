package script

import (
	"errors"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
)

// shape is the form the generation service chose for its reply.
type shape int

const (
	shapeInvalid  shape = iota
	shapeBareList       // [ {...}, ... ]
	shapeWrapped        // { "messages": [ {...}, ... ] }
)

func (s shape) String() string {
	switch s {
	case shapeBareList:
		return "bare_list"
	case shapeWrapped:
		return "wrapped"
	default:
		return "invalid"
	}
}

var (
	fence = regexp.MustCompile("```[A-Za-z0-9_-]*")

	errNoPayload  = errors.New("no JSON array or object in reply")
	errNoMessages = errors.New(`object reply has no "messages" array`)
)

type wrapped struct {
	Messages *[]Entry `json:"messages"`
}

func stripFences(raw string) string {
	return strings.TrimSpace(fence.ReplaceAllString(raw, ""))
}

// parse classifies a raw reply and decodes its entries.
func parse(raw string) ([]Entry, shape, error) {
	s := stripFences(raw)
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return nil, shapeInvalid, errNoPayload
	}

	if s[start] == '[' {
		end := strings.LastIndexByte(s, ']')
		if end < start {
			return nil, shapeInvalid, errNoPayload
		}
		var entries []Entry
		if err := sonic.UnmarshalString(s[start:end+1], &entries); err != nil {
			return nil, shapeInvalid, err
		}
		return entries, shapeBareList, nil
	}

	end := strings.LastIndexByte(s, '}')
	if end < start {
		return nil, shapeInvalid, errNoPayload
	}
	var w wrapped
	if err := sonic.UnmarshalString(s[start:end+1], &w); err != nil {
		return nil, shapeInvalid, err
	}
	if w.Messages == nil {
		return nil, shapeInvalid, errNoMessages
	}
	return *w.Messages, shapeWrapped, nil
}

// normalize drops blank entries, fills in neutral expression and animation and
// keeps at most max entries.
func normalize(in []Entry, max int) []Entry {
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		e.Text = strings.TrimSpace(e.Text)
		if e.Text == "" {
			continue
		}
		if strings.TrimSpace(e.FacialExpression) == "" {
			e.FacialExpression = ExpressionDefault
		}
		if strings.TrimSpace(e.Animation) == "" {
			e.Animation = AnimationIdle
		}
		out = append(out, e)
		if len(out) == max {
			break
		}
	}
	return out
}
