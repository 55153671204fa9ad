package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/video-stream/subbot/internal/api/middleware"
	"github.com/video-stream/subbot/internal/auth"
	"github.com/video-stream/subbot/internal/bot"
	"github.com/video-stream/subbot/internal/db"
	"github.com/video-stream/subbot/internal/db/models"
	"github.com/video-stream/subbot/internal/job"
	"github.com/video-stream/subbot/internal/storage"
	"github.com/video-stream/subbot/internal/subtitle/translate"
)

type staticModels []translate.GeminiModel

func (m staticModels) List(ctx context.Context, apiKey string) ([]translate.GeminiModel, error) {
	return m, nil
}

type testServer struct {
	srv   *httptest.Server
	db    *db.Database
	queue *job.JobQueue
	files *storage.Store
	jwt   *auth.JWTService
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	dir := t.TempDir()
	d, err := db.NewSQLite(filepath.Join(dir, "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	files, err := storage.NewStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	q := job.NewJobQueue(d.DB())
	jwtService := auth.NewJWTService("test-secret")
	chat := bot.New(bot.Config{KeyPrefix: "AIza", MaxUploadBytes: 1024, Params: job.TranslateParams{Engine: "gemini"}},
		bot.NewOutbox(d), d, q, files)

	srv := httptest.NewServer(NewRouter(Deps{
		Database:  d,
		Tokens:    jwtService,
		Chat:      chat,
		Jobs:      q,
		Results:   files,
		Models:    staticModels{{ID: "gemini-2.5-flash"}},
		Limiter:   limiter,
		MaxUpload: 1024,
	}))
	t.Cleanup(func() {
		srv.Close()
		q.Stop()
		d.Close()
	})
	return &testServer{srv: srv, db: d, queue: q, files: files, jwt: jwtService}
}

func (ts *testServer) do(t *testing.T, userID int64, method, path string, body []byte, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if userID != 0 {
		token, err := ts.jwt.GenerateToken(userID, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) upload(t *testing.T, userID int64, name string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()
	return ts.do(t, userID, "POST", "/api/documents", buf.Bytes(), mw.FormDataContentType())
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthIsPublic(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := ts.do(t, 0, "GET", "/api/health", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	decode(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, path := range []string{"/api/outbox", "/api/jobs", "/api/models"} {
		if resp := ts.do(t, 0, "GET", path, nil, ""); resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: status = %d", path, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest("GET", ts.srv.URL+"/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer forged")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("forged token: status = %d", resp.StatusCode)
	}
}

func TestConversationFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	if resp := ts.do(t, 9, "POST", "/api/commands/start", nil, ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start: status = %d", resp.StatusCode)
	}

	// Upload before a key is refused
	if resp := ts.upload(t, 9, "a.srt", []byte("x")); resp.StatusCode != http.StatusForbidden {
		t.Errorf("upload without key: status = %d", resp.StatusCode)
	}

	if resp := ts.do(t, 9, "POST", "/api/messages", []byte(`{"text":"AIzaTestKey"}`), "application/json"); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("message: status = %d", resp.StatusCode)
	}
	if key, _ := ts.db.GetCredential(9); key != "AIzaTestKey" {
		t.Errorf("key = %q", key)
	}

	if resp := ts.upload(t, 9, "a.txt", []byte("x")); resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("non-srt upload: status = %d", resp.StatusCode)
	}
	if resp := ts.upload(t, 9, "big.srt", bytes.Repeat([]byte("x"), 2048)); resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("large upload: status = %d", resp.StatusCode)
	}

	resp := ts.upload(t, 9, "movie.srt", []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n"))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("upload: status = %d", resp.StatusCode)
	}
	var queued job.Job
	decode(t, resp, &queued)
	if queued.FileName != "movie.srt" || queued.Status != job.StatusPending {
		t.Errorf("job = %+v", queued)
	}

	resp = ts.do(t, 9, "GET", "/api/outbox", nil, "")
	var msgs []models.OutboxMessage
	decode(t, resp, &msgs)
	if len(msgs) == 0 || !strings.HasPrefix(msgs[0].Text, "🎬 Welcome to Subtitle Translator Bot!") {
		t.Fatalf("outbox = %+v", msgs)
	}
	last := msgs[len(msgs)-1]
	if last.Text != "⏳ Downloading subtitle file..." {
		t.Errorf("last message = %q", last.Text)
	}

	resp = ts.do(t, 9, "GET", fmt.Sprintf("/api/outbox?after=%d", last.ID), nil, "")
	decode(t, resp, &msgs)
	if len(msgs) != 0 {
		t.Errorf("expected no newer messages, got %+v", msgs)
	}

	if resp := ts.do(t, 9, "GET", "/api/outbox?after=abc", nil, ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad after: status = %d", resp.StatusCode)
	}
}

func TestJobsAreOwnerScoped(t *testing.T) {
	ts := newTestServer(t, nil)
	mine, err := ts.queue.Enqueue(job.JobTranslate, 1, "a.srt", job.TranslateParams{})
	if err != nil {
		t.Fatal(err)
	}
	ts.queue.Enqueue(job.JobTranslate, 2, "b.srt", job.TranslateParams{})

	var jobs []job.Job
	decode(t, ts.do(t, 1, "GET", "/api/jobs", nil, ""), &jobs)
	if len(jobs) != 1 || jobs[0].ID != mine.ID {
		t.Errorf("jobs = %+v", jobs)
	}

	if resp := ts.do(t, 2, "GET", "/api/jobs/"+mine.ID, nil, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign job: status = %d", resp.StatusCode)
	}
	if resp := ts.do(t, 2, "DELETE", "/api/jobs/"+mine.ID, nil, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign cancel: status = %d", resp.StatusCode)
	}

	if resp := ts.do(t, 1, "DELETE", "/api/jobs/"+mine.ID, nil, ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel: status = %d", resp.StatusCode)
	}
	if resp := ts.do(t, 1, "DELETE", "/api/jobs/"+mine.ID, nil, ""); resp.StatusCode != http.StatusConflict {
		t.Errorf("cancel twice: status = %d", resp.StatusCode)
	}

	var got job.Job
	decode(t, ts.do(t, 1, "GET", "/api/jobs/"+mine.ID, nil, ""), &got)
	if got.Status != job.StatusCancelled {
		t.Errorf("status = %s", got.Status)
	}
}

func TestResultDownload(t *testing.T) {
	ts := newTestServer(t, nil)
	j, err := ts.queue.Enqueue(job.JobTranslate, 1, "movie.srt", job.TranslateParams{})
	if err != nil {
		t.Fatal(err)
	}

	if resp := ts.do(t, 1, "GET", "/api/results/"+j.ID, nil, ""); resp.StatusCode != http.StatusConflict {
		t.Errorf("unfinished result: status = %d", resp.StatusCode)
	}

	content := "1\n00:00:01,000 --> 00:00:02,000\nආයුබෝවන්\n\n"
	if err := ts.files.SaveResult(j.ID, "sinhala_movie.srt", []byte(content)); err != nil {
		t.Fatal(err)
	}
	result, _ := json.Marshal(job.TranslateResult{OutputName: "sinhala_movie.srt"})
	if _, err := ts.db.DB().Exec("UPDATE jobs SET status = ?, result = ? WHERE id = ?", job.StatusCompleted, string(result), j.ID); err != nil {
		t.Fatal(err)
	}

	if resp := ts.do(t, 2, "GET", "/api/results/"+j.ID, nil, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign result: status = %d", resp.StatusCode)
	}

	resp := ts.do(t, 1, "GET", "/api/results/"+j.ID, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "sinhala_movie.srt") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if buf.String() != content {
		t.Errorf("body = %q", buf.String())
	}
}

func TestModels(t *testing.T) {
	ts := newTestServer(t, nil)

	var list []translate.GeminiModel
	decode(t, ts.do(t, 3, "GET", "/api/models", nil, ""), &list)
	if len(list) != 0 {
		t.Errorf("models without key = %+v", list)
	}

	ts.db.SetCredential(3, "AIzaK")
	decode(t, ts.do(t, 3, "GET", "/api/models", nil, ""), &list)
	if len(list) != 1 || list[0].ID != "gemini-2.5-flash" {
		t.Errorf("models = %+v", list)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, middleware.NewRateLimiter(60, 2))
	for i := 0; i < 2; i++ {
		if resp := ts.do(t, 0, "GET", "/api/health", nil, ""); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, resp.StatusCode)
		}
	}
	resp := ts.do(t, 0, "GET", "/api/health", nil, "")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}
