package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for file names that would escape the job directory
var ErrInvalidName = errors.New("invalid file name")

// IsSubtitleFile reports whether name carries the .srt suffix
func IsSubtitleFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".srt")
}

// Store keeps uploaded and translated subtitle files, one directory per job
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{root: root}, nil
}

// SanitizeName strips directories and control characters from a client file name
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func (s *Store) path(jobID, kind, name string) (string, error) {
	clean := SanitizeName(name)
	if clean == "" || clean != name || strings.ContainsAny(jobID, `/\.`) || jobID == "" {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, jobID, kind+"_"+clean), nil
}

func (s *Store) write(jobID, kind, name string, data []byte) error {
	p, err := s.path(jobID, kind, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0644)
}

func (s *Store) read(jobID, kind, name string) ([]byte, error) {
	p, err := s.path(jobID, kind, name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// SaveUpload stores the raw bytes a user sent
func (s *Store) SaveUpload(jobID, name string, data []byte) error {
	return s.write(jobID, "upload", name, data)
}

// ReadUpload returns the raw bytes a user sent
func (s *Store) ReadUpload(jobID, name string) ([]byte, error) {
	return s.read(jobID, "upload", name)
}

// SaveResult stores a translated subtitle file
func (s *Store) SaveResult(jobID, name string, data []byte) error {
	return s.write(jobID, "result", name, data)
}

// ReadResult returns a translated subtitle file
func (s *Store) ReadResult(jobID, name string) ([]byte, error) {
	return s.read(jobID, "result", name)
}

// RemoveUpload deletes the uploaded source once it is no longer needed
func (s *Store) RemoveUpload(jobID, name string) error {
	p, err := s.path(jobID, "upload", name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
