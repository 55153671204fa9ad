package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gemini-test:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "AIzaKEY" {
			t.Errorf("api key header = %q", got)
		}
		var body struct {
			SystemInstruction struct {
				Parts []struct{ Text string } `json:"parts"`
			} `json:"system_instruction"`
			Contents []struct {
				Parts []struct{ Text string } `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !strings.Contains(body.SystemInstruction.Parts[0].Text, "English subtitle text to Sinhala") {
			t.Errorf("system prompt = %q", body.SystemInstruction.Parts[0].Text)
		}
		if body.Contents[0].Parts[0].Text != "Text: Hello world" {
			t.Errorf("user prompt = %q", body.Contents[0].Parts[0].Text)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"` + "```" + `ආයුබෝවන්` + "```" + `"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	g := NewGeminiTranslator(Options{SourceLang: "en", TargetLang: "si", Preset: "movie"}, func() string { return "gemini-test" }).
		WithBaseURL(srv.URL)
	out, err := g.Translate(context.Background(), "Hello world", "AIzaKEY")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "ආයුබෝවන්" {
		t.Errorf("out = %q", out)
	}
}

func TestGeminiTranslateErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantTemp   bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{}}`, 429, true},
		{"bad key", http.StatusBadRequest, `{"error":{"message":"API key not valid"}}`, 400, false},
		{"blocked", http.StatusOK, `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`, 0, false},
		{"empty", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGeminiTranslator(Options{}, nil).WithBaseURL(srv.URL).Translate(context.Background(), "hi", "key")
			var te *TranslationError
			if !errors.As(err, &te) {
				t.Fatalf("err = %v, want *TranslationError", err)
			}
			if te.StatusCode != tt.wantStatus || te.Temporary() != tt.wantTemp {
				t.Errorf("got status %d temporary %v", te.StatusCode, te.Temporary())
			}
		})
	}
}

func TestGeminiRequiresCredential(t *testing.T) {
	_, err := NewGeminiTranslator(Options{}, nil).Translate(context.Background(), "hi", "")
	var te *TranslationError
	if !errors.As(err, &te) || te.Engine != "gemini" {
		t.Fatalf("err = %v", err)
	}
}

func TestGeminiModelPriority(t *testing.T) {
	if m := NewGeminiTranslator(Options{}, nil).currentModel(); m != defaultGeminiModel {
		t.Errorf("default model = %s", m)
	}
	if m := NewGeminiTranslator(Options{Model: "gemini-x"}, nil).currentModel(); m != "gemini-x" {
		t.Errorf("configured model = %s", m)
	}
	if m := NewGeminiTranslator(Options{Model: "gemini-x"}, func() string { return "gemini-y" }).currentModel(); m != "gemini-y" {
		t.Errorf("resolved model = %s", m)
	}
	if m := NewGeminiTranslator(Options{Model: "gemini-x"}, func() string { return "" }).currentModel(); m != "gemini-x" {
		t.Errorf("empty resolver should fall through, got %s", m)
	}
}

func TestOpenAITranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Model != defaultOpenAIModel || len(body.Messages) != 2 {
			t.Errorf("request = %+v", body)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":" Bonjour "}}]}`))
	}))
	defer srv.Close()

	out, err := NewOpenAITranslator(Options{TargetLang: "fr"}).WithURL(srv.URL).Translate(context.Background(), "Hello", "sk-test")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "Bonjour" {
		t.Errorf("out = %q", out)
	}
}

func TestDeepLTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key dk" {
			t.Errorf("authorization = %q", got)
		}
		r.ParseForm()
		if r.Form.Get("target_lang") != "DE" || r.Form.Get("source_lang") != "EN" || r.Form.Get("formality") != "more" {
			t.Errorf("form = %v", r.Form)
		}
		w.Write([]byte(`{"translations":[{"text":"Hallo"}]}`))
	}))
	defer srv.Close()

	d := NewDeepLTranslator(Options{SourceLang: "en", TargetLang: "de", Preset: "documentary"}).WithURL(srv.URL)
	out, err := d.Translate(context.Background(), "Hello", "dk")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "Hallo" {
		t.Errorf("out = %q", out)
	}
}

func TestGetSystemPrompt(t *testing.T) {
	p := GetSystemPrompt(Options{SourceLang: "en", TargetLang: "si", Preset: "custom", CustomPrompt: "Keep names in English."})
	if !strings.Contains(p, "Sinhala") || !strings.Contains(p, "User instructions: Keep names in English.") {
		t.Errorf("prompt = %q", p)
	}
}

func TestCleanOutput(t *testing.T) {
	tests := map[string]string{
		"  plain  ":        "plain",
		"```\nfenced\n```": "fenced",
		`one\Ntwo`:         "one\ntwo",
		"":                 "",
	}
	for in, want := range tests {
		if got := cleanOutput(in); got != want {
			t.Errorf("cleanOutput(%q) = %q, want %q", in, got, want)
		}
	}
}
