package services

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/google/uuid"
)

var resumeExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
	".rtf":  true,
	".odt":  true,
	".txt":  true,
}

// ResumeParser stores uploaded résumé files and extracts their plain text for
// AI scoring.
type ResumeParser struct {
	uploadsDir string
}

func NewResumeParser(uploadsDir string) (*ResumeParser, error) {
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}
	return &ResumeParser{uploadsDir: uploadsDir}, nil
}

// Save writes the uploaded file under a fresh name and returns its path. The
// original filename only contributes its extension.
func (p *ResumeParser) Save(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !resumeExtensions[ext] {
		return "", &ErrValidation{Field: "resume", Message: fmt.Sprintf("unsupported file type %q", ext)}
	}

	path := filepath.Join(p.uploadsDir, uuid.NewString()+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create resume file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write resume file: %w", err)
	}
	return path, nil
}

// ExtractText converts the stored résumé to plain text. Plain-text files are
// read directly; everything else goes through docconv.
func (p *ResumeParser) ExtractText(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var text string
	switch ext {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read resume: %w", err)
		}
		text = string(data)
	case ".pdf", ".docx", ".doc", ".rtf", ".odt":
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return "", fmt.Errorf("failed to convert resume: %w", err)
		}
		text = res.Body
	default:
		return "", &ErrValidation{Field: "resume", Message: fmt.Sprintf("unsupported file type %q", ext)}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ErrValidation{Field: "resume", Message: "no text could be extracted from the file"}
	}

	slog.Info("Resume text extracted", "path", path, "length", len(text))
	return text, nil
}
