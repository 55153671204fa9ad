package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const deeplAPIURL = "https://api-free.deepl.com/v2/translate"

// DeepLTranslator translates caption text using the DeepL API
type DeepLTranslator struct {
	opts       Options
	url        string
	httpClient *http.Client
}

func NewDeepLTranslator(opts Options) *DeepLTranslator {
	return &DeepLTranslator{
		opts: opts,
		url:  deeplAPIURL,
		httpClient: &http.Client{
			Timeout: 1 * time.Minute,
		},
	}
}

// WithURL overrides the translate endpoint (e.g. the paid api.deepl.com host)
func (d *DeepLTranslator) WithURL(url string) *DeepLTranslator {
	d.url = url
	return d
}

func (d *DeepLTranslator) Name() string {
	return "deepl"
}

func (d *DeepLTranslator) Translate(ctx context.Context, text, credential string) (string, error) {
	if credential == "" {
		return "", failure(d.Name(), 0, errors.New("DeepL API key not configured"))
	}

	form := url.Values{}
	form.Add("text", text)
	form.Set("target_lang", deeplLangCode(d.opts.TargetLang))
	if d.opts.SourceLang != "" && d.opts.SourceLang != "auto" {
		form.Set("source_lang", deeplLangCode(d.opts.SourceLang))
	}

	// Map preset to DeepL formality
	switch d.opts.Preset {
	case "documentary":
		form.Set("formality", "more")
	case "anime":
		form.Set("formality", "less")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", d.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", failure(d.Name(), 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+credential)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", failure(d.Name(), 0, fmt.Errorf("DeepL API request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", failure(d.Name(), 0, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", failure(d.Name(), resp.StatusCode, fmt.Errorf("DeepL API error: %s", truncate(string(body), 300)))
	}

	var deeplResp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}

	if err := json.Unmarshal(body, &deeplResp); err != nil {
		return "", failure(d.Name(), 0, fmt.Errorf("parse response: %w", err))
	}

	if len(deeplResp.Translations) == 0 || strings.TrimSpace(deeplResp.Translations[0].Text) == "" {
		return "", failure(d.Name(), 0, ErrEmptyTranslation)
	}
	return strings.TrimSpace(deeplResp.Translations[0].Text), nil
}

// deeplLangCode converts ISO 639-1 codes to DeepL format
func deeplLangCode(code string) string {
	mapping := map[string]string{
		"ko": "KO",
		"en": "EN",
		"ja": "JA",
		"zh": "ZH",
		"de": "DE",
		"fr": "FR",
		"es": "ES",
		"it": "IT",
		"pt": "PT-BR",
		"ru": "RU",
		"nl": "NL",
		"pl": "PL",
	}
	if mapped, ok := mapping[code]; ok {
		return mapped
	}
	return strings.ToUpper(code)
}
