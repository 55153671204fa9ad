package translate

import (
	"errors"
	"testing"

	"github.com/video-stream/subbot/internal/subtitle/srt"
)

func TestReadDocument(t *testing.T) {
	data := []byte("\xef\xbb\xbf1\r\n00:00:01,000 --> 00:00:02,000\r\nCaf\xc3\xa9\r\n\r\nnoise\r\n\r\n2\r\n00:00:03,000 --> 00:00:04,000\r\nBye\r\n")

	doc, skipped, err := ReadDocument(data, false, "test")
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if len(doc) != 2 || doc[0].Text != "Café" || doc[1].Index != 2 {
		t.Errorf("doc = %+v", doc)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}

	if _, _, err := ReadDocument(data, true, "test"); err == nil {
		t.Error("strict read accepted a malformed block")
	}

	_, _, err = ReadDocument([]byte("nothing here"), false, "test")
	if !errors.Is(err, srt.ErrNoEntries) {
		t.Errorf("err = %v, want ErrNoEntries", err)
	}
}
