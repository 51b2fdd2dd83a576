package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// --- Gemini (/models/{model}:generateContent) ---
type geminiPart struct {
	Text string `json:"text"`
}
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}
type GenerateReq struct {
	Contents []geminiContent `json:"contents"`
}
type GenerateResp struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// Text joins the parts of the first candidate.
func (r *GenerateResp) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func (h *HTTP) GenerateContent(ctx context.Context, baseURL, model, apiKey, prompt string) (*GenerateResp, error) {
	b, _ := json.Marshal(GenerateReq{Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}})
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", strings.TrimRight(baseURL, "/"), model, url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gemini %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out GenerateResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("gemini decode: %w", err)
	}
	return &out, nil
}

// Gemini binds the generateContent call to one model and key.
type Gemini struct {
	h       *HTTP
	baseURL string
	model   string
	apiKey  string
}

func NewGemini(h *HTTP, baseURL, model, apiKey string) *Gemini {
	return &Gemini{h: h, baseURL: baseURL, model: model, apiKey: apiKey}
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := g.h.GenerateContent(ctx, g.baseURL, g.model, g.apiKey, prompt)
	if err != nil {
		return "", err
	}
	text := out.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return text, nil
}
