package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// GeminiModel is the client-friendly model info
type GeminiModel struct {
	ID          string `json:"id"`           // e.g. "gemini-2.5-flash"
	DisplayName string `json:"display_name"` // e.g. "Gemini 2.5 Flash"
	Description string `json:"description"`
}

type modelCacheEntry struct {
	models    []GeminiModel
	fetchedAt time.Time
}

// ModelLister fetches the text models a Gemini key can use, caching results per key for an hour.
type ModelLister struct {
	baseURL    string
	httpClient *http.Client
	ttl        time.Duration

	mu    sync.Mutex
	cache map[string]modelCacheEntry
}

func NewModelLister() *ModelLister {
	return &ModelLister{
		baseURL:    geminiAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ttl:        time.Hour,
		cache:      make(map[string]modelCacheEntry),
	}
}

// WithBaseURL points the lister at another endpoint
func (l *ModelLister) WithBaseURL(base string) *ModelLister {
	l.baseURL = strings.TrimRight(base, "/")
	return l
}

func (l *ModelLister) List(ctx context.Context, apiKey string) ([]GeminiModel, error) {
	l.mu.Lock()
	cached, ok := l.cache[apiKey]
	l.mu.Unlock()
	if ok && time.Since(cached.fetchedAt) < l.ttl {
		return copyModels(cached.models), nil
	}

	models, err := l.fetch(ctx, apiKey)
	if err != nil {
		// Serve stale results rather than nothing
		if ok {
			return copyModels(cached.models), nil
		}
		return nil, err
	}

	l.mu.Lock()
	l.cache[apiKey] = modelCacheEntry{models: models, fetchedAt: time.Now()}
	l.mu.Unlock()
	return copyModels(models), nil
}

func (l *ModelLister) fetch(ctx context.Context, apiKey string) ([]GeminiModel, error) {
	u := fmt.Sprintf("%s?key=%s&pageSize=100", l.baseURL, url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Google API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google API: status %d", resp.StatusCode)
	}

	var apiResp struct {
		Models []struct {
			Name                       string   `json:"name"`        // "models/gemini-2.5-flash"
			DisplayName                string   `json:"displayName"` // "Gemini 2.5 Flash"
			Description                string   `json:"description"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("parse Google API response: %w", err)
	}

	models := []GeminiModel{}
	seen := make(map[string]bool)

	for _, m := range apiResp.Models {
		supportsGenerate := false
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				supportsGenerate = true
				break
			}
		}
		if !supportsGenerate {
			continue
		}

		// "models/gemini-2.5-flash" → "gemini-2.5-flash"
		id := strings.TrimPrefix(m.Name, "models/")
		if !strings.HasPrefix(id, "gemini-") ||
			strings.Contains(id, "embedding") ||
			strings.Contains(id, "aqa") ||
			strings.Contains(id, "imagen") {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		models = append(models, GeminiModel{
			ID:          id,
			DisplayName: m.DisplayName,
			Description: m.Description,
		})
	}

	// Newer models first
	sort.Slice(models, func(i, j int) bool {
		return models[i].ID > models[j].ID
	})
	return models, nil
}

func copyModels(models []GeminiModel) []GeminiModel {
	result := make([]GeminiModel, len(models))
	copy(result, models)
	return result
}
