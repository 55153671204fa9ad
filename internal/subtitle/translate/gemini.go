package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	geminiAPIBase      = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultGeminiModel = "gemini-2.0-flash"
)

// ModelResolver returns the current Gemini model from settings
type ModelResolver func() string

// GeminiTranslator translates caption text using the Google Gemini API
type GeminiTranslator struct {
	opts          Options
	baseURL       string
	modelResolver ModelResolver // dynamically resolves model from DB
	httpClient    *http.Client
}

func NewGeminiTranslator(opts Options, modelResolver ModelResolver) *GeminiTranslator {
	return &GeminiTranslator{
		opts:          opts,
		baseURL:       geminiAPIBase,
		modelResolver: modelResolver,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// WithBaseURL points the translator at another endpoint (tests, proxies)
func (g *GeminiTranslator) WithBaseURL(base string) *GeminiTranslator {
	g.baseURL = strings.TrimRight(base, "/")
	return g
}

func (g *GeminiTranslator) currentModel() string {
	if g.modelResolver != nil {
		if m := g.modelResolver(); m != "" {
			return m
		}
	}
	if g.opts.Model != "" {
		return g.opts.Model
	}
	return defaultGeminiModel
}

func (g *GeminiTranslator) Name() string {
	return "gemini"
}

func (g *GeminiTranslator) Translate(ctx context.Context, text, credential string) (string, error) {
	if credential == "" {
		return "", failure(g.Name(), 0, errors.New("Gemini API key not configured"))
	}

	reqBody := map[string]interface{}{
		"system_instruction": map[string]interface{}{
			"parts": []map[string]string{
				{"text": GetSystemPrompt(g.opts)},
			},
		},
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": userPrompt(text)},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature": 0.3,
		},
		"safetySettings": []map[string]string{
			{"category": "HARM_CATEGORY_HARASSMENT", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_HATE_SPEECH", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_SEXUALLY_EXPLICIT", "threshold": "BLOCK_NONE"},
			{"category": "HARM_CATEGORY_DANGEROUS_CONTENT", "threshold": "BLOCK_NONE"},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", failure(g.Name(), 0, err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.currentModel())
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", failure(g.Name(), 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", credential)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", failure(g.Name(), 0, fmt.Errorf("Gemini API request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", failure(g.Name(), 0, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", failure(g.Name(), resp.StatusCode, fmt.Errorf("Gemini API error: %s", truncate(string(body), 300)))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", failure(g.Name(), 0, fmt.Errorf("parse response: %w", err))
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		if geminiResp.PromptFeedback.BlockReason != "" {
			return "", failure(g.Name(), 0, fmt.Errorf("Gemini blocked: %s", geminiResp.PromptFeedback.BlockReason))
		}
		return "", failure(g.Name(), 0, ErrEmptyTranslation)
	}

	if fr := geminiResp.Candidates[0].FinishReason; fr != "" && fr != "STOP" {
		log.Printf("[gemini] WARNING: finishReason=%s", fr)
	}

	var sb strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	out := cleanOutput(sb.String())
	if out == "" {
		return "", failure(g.Name(), 0, ErrEmptyTranslation)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
