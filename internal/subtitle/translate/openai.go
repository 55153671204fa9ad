package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	openAIChatURL      = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel = "gpt-4o-mini"
)

// OpenAITranslator translates caption text using the OpenAI Chat API
type OpenAITranslator struct {
	opts       Options
	url        string
	httpClient *http.Client
}

func NewOpenAITranslator(opts Options) *OpenAITranslator {
	if opts.Model == "" {
		opts.Model = defaultOpenAIModel
	}
	return &OpenAITranslator{
		opts: opts,
		url:  openAIChatURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// WithURL overrides the chat completions endpoint
func (o *OpenAITranslator) WithURL(url string) *OpenAITranslator {
	o.url = url
	return o
}

func (o *OpenAITranslator) Name() string {
	return "openai"
}

func (o *OpenAITranslator) Translate(ctx context.Context, text, credential string) (string, error) {
	if credential == "" {
		return "", failure(o.Name(), 0, errors.New("OpenAI API key not configured"))
	}

	reqBody := map[string]interface{}{
		"model": o.opts.Model,
		"messages": []map[string]string{
			{"role": "system", "content": GetSystemPrompt(o.opts)},
			{"role": "user", "content": userPrompt(text)},
		},
		"temperature": 0.3,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", failure(o.Name(), 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", failure(o.Name(), 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", failure(o.Name(), 0, fmt.Errorf("OpenAI API request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", failure(o.Name(), 0, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", failure(o.Name(), resp.StatusCode, fmt.Errorf("OpenAI API error: %s", truncate(string(body), 300)))
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", failure(o.Name(), 0, fmt.Errorf("parse response: %w", err))
	}

	if len(chatResp.Choices) == 0 {
		return "", failure(o.Name(), 0, ErrEmptyTranslation)
	}

	out := cleanOutput(chatResp.Choices[0].Message.Content)
	if out == "" {
		return "", failure(o.Name(), 0, ErrEmptyTranslation)
	}
	return out, nil
}
