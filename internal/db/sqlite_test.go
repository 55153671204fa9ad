package db

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/video-stream/subbot/internal/db/models"
)

func openTestDB(t *testing.T, opts ...Option) *Database {
	t.Helper()
	d, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), opts...)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// reverseSealer is a reversible stand-in that makes sealing visible in the table
type reverseSealer struct{}

func (reverseSealer) Seal(s string) (string, error) { return "sealed:" + reverse(s), nil }

func (reverseSealer) Open(s string) (string, error) {
	return reverse(strings.TrimPrefix(s, "sealed:")), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func TestCredentialOverwrite(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.GetCredential(1); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("err = %v, want ErrNoCredential", err)
	}
	if err := d.SetCredential(1, "AIzaFirst"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := d.SetCredential(1, "AIzaSecond"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	key, err := d.GetCredential(1)
	if err != nil || key != "AIzaSecond" {
		t.Fatalf("GetCredential = %q, %v", key, err)
	}

	var rows int
	d.DB().QueryRow("SELECT COUNT(*) FROM users").Scan(&rows)
	if rows != 1 {
		t.Errorf("users rows = %d, want 1", rows)
	}
}

func TestCredentialSealed(t *testing.T) {
	d := openTestDB(t, WithSealer(reverseSealer{}))
	if err := d.SetCredential(5, "AIzaKey"); err != nil {
		t.Fatal(err)
	}

	var stored string
	if err := d.DB().QueryRow("SELECT api_key FROM users WHERE user_id = 5").Scan(&stored); err != nil {
		t.Fatal(err)
	}
	if stored != "sealed:yeKazIA" {
		t.Errorf("stored = %q", stored)
	}

	u, err := d.GetUser(5)
	if err != nil || u.APIKey != "AIzaKey" {
		t.Errorf("GetUser = %+v, %v", u, err)
	}
}

func TestSettings(t *testing.T) {
	d := openTestDB(t)
	if got := d.GetSetting("gemini_model", "fallback"); got != "fallback" {
		t.Errorf("default = %q", got)
	}
	d.SetSetting("gemini_model", "gemini-2.5-flash")
	d.SetSetting("gemini_model", "gemini-2.5-pro")
	if got := d.GetSetting("gemini_model", ""); got != "gemini-2.5-pro" {
		t.Errorf("setting = %q", got)
	}
}

func TestOutbox(t *testing.T) {
	d := openTestDB(t)

	first, err := d.AddMessage(models.OutboxMessage{UserID: 1, Kind: models.MessageText, Text: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	d.AddMessage(models.OutboxMessage{UserID: 2, Kind: models.MessageText, Text: "other user"})
	second, err := d.AddMessage(models.OutboxMessage{UserID: 1, Kind: models.MessageDocument, Text: "caption", FileName: "sinhala_a.srt", JobID: "j1"})
	if err != nil {
		t.Fatal(err)
	}

	msgs, err := d.ListMessages(1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].ID != first || msgs[1].ID != second {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[1].Kind != models.MessageDocument || msgs[1].FileName != "sinhala_a.srt" || msgs[1].JobID != "j1" {
		t.Errorf("document message = %+v", msgs[1])
	}

	msgs, err = d.ListMessages(1, first, 0)
	if err != nil || len(msgs) != 1 || msgs[0].ID != second {
		t.Errorf("after %d: %+v, %v", first, msgs, err)
	}

	msgs, err = d.ListMessages(3, 0, 10)
	if err != nil || msgs == nil || len(msgs) != 0 {
		t.Errorf("empty outbox = %#v, %v", msgs, err)
	}
}
