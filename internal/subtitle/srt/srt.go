package srt

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Entry is a single subtitle block. Index and Timing are carried through
// translation untouched; only Text is rewritten.
type Entry struct {
	Index  int    `json:"index"`
	Timing string `json:"timing"`
	Text   string `json:"text"`
}

// Document is an ordered list of entries in file order.
type Document []Entry

// ErrNoEntries is wrapped by the FormatError returned when nothing in the
// input looks like a subtitle block.
var ErrNoEntries = errors.New("no subtitle entries found")

// FormatError reports input that could not be parsed.
type FormatError struct {
	Line   int // 1-based, 0 when not tied to a line
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("srt: line %d: %s", e.Line, e.Reason)
	}
	return "srt: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// SkippedBlock describes a region dropped by the lenient parser.
type SkippedBlock struct {
	Line int
	Text string
}

var timingRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2},\d{3} --> \d{2}:\d{2}:\d{2},\d{3}$`)

// Parser turns SRT text into a Document.
//
// By default malformed blocks are dropped and parsing carries on with the
// next block; OnSkip, when set, is told about every dropped region. With
// Strict set the first malformed block aborts the parse.
type Parser struct {
	Strict bool
	OnSkip func(SkippedBlock)
}

// Parse parses raw with the lenient policy.
func Parse(raw string) (Document, error) {
	return Parser{}.Parse(raw)
}

func (p Parser) Parse(raw string) (Document, error) {
	lines := splitLines(raw)
	var doc Document

	i := 0
	for i < len(lines) {
		if isBlank(lines[i]) {
			i++
			continue
		}

		if isHeader(lines, i) && i+2 < len(lines) && !isBlank(lines[i+2]) && !isHeader(lines, i+2) {
			index, _ := strconv.Atoi(strings.TrimSpace(lines[i]))
			j := i + 2
			for j < len(lines) && !isBlank(lines[j]) && !isHeader(lines, j) {
				j++
			}
			doc = append(doc, Entry{
				Index:  index,
				Timing: strings.TrimSpace(lines[i+1]),
				Text:   strings.Join(lines[i+2:j], "\n"),
			})
			i = j
			continue
		}

		// Malformed region: everything up to the next blank line or header.
		start := i
		i++
		for i < len(lines) && !isBlank(lines[i]) && !isHeader(lines, i) {
			i++
		}
		if p.Strict {
			return nil, &FormatError{Line: start + 1, Reason: fmt.Sprintf("malformed block %q", firstLine(lines[start]))}
		}
		if p.OnSkip != nil {
			p.OnSkip(SkippedBlock{Line: start + 1, Text: strings.Join(lines[start:i], "\n")})
		}
	}

	if len(doc) == 0 {
		return nil, &FormatError{Reason: ErrNoEntries.Error(), Err: ErrNoEntries}
	}
	return doc, nil
}

// Serialize renders doc in SRT form, one blank line after every entry.
func Serialize(doc Document) string {
	var sb strings.Builder
	for _, e := range doc {
		sb.WriteString(strconv.Itoa(e.Index))
		sb.WriteByte('\n')
		sb.WriteString(e.Timing)
		sb.WriteByte('\n')
		sb.WriteString(e.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func splitLines(raw string) []string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return strings.Split(raw, "\n")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func isIndex(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	_, err := strconv.Atoi(line)
	return err == nil
}

// isHeader reports whether lines[i] and lines[i+1] form an index+timing pair.
func isHeader(lines []string, i int) bool {
	return i+1 < len(lines) && isIndex(lines[i]) && timingRe.MatchString(strings.TrimSpace(lines[i+1]))
}

func firstLine(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) > 40 {
		return string(r[:40]) + "..."
	}
	return string(r)
}
