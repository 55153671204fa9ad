package translate

import (
	"fmt"
	"log"

	"github.com/video-stream/subbot/internal/subtitle/srt"
)

// ReadDocument decodes raw subtitle bytes and parses them, strictly or
// leniently. It returns how many malformed blocks lenient parsing dropped;
// each is logged against source.
func ReadDocument(data []byte, strict bool, source string) (srt.Document, int, error) {
	text, err := srt.Decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode subtitle: %w", err)
	}

	skipped := 0
	parser := srt.Parser{
		Strict: strict,
		OnSkip: func(b srt.SkippedBlock) {
			skipped++
			log.Printf("[translate] %s: skipped malformed block at line %d", source, b.Line)
		},
	}
	doc, err := parser.Parse(text)
	if err != nil {
		return nil, skipped, fmt.Errorf("parse subtitle: %w", err)
	}
	return doc, skipped, nil
}
