// Package extract provides text extraction from uploaded documents.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/docqa/internal/apperr"
)

// UnsupportedFormatMessage is the user-facing message for any non-PDF input.
const UnsupportedFormatMessage = "Only PDF files are supported."

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// IsSupported reports whether filename has an extension the extractor accepts.
func IsSupported(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".pdf"
}

// CheckFormat returns an UnsupportedFormat error unless filename is a PDF.
func CheckFormat(filename string) error {
	if !IsSupported(filename) {
		return apperr.New(apperr.UnsupportedFormat, "extract", UnsupportedFormatMessage)
	}
	return nil
}

// Extract reads the file at path and returns its cleaned text content.
// The format is decided by the extension before the file is read.
func (e *Extractor) Extract(path string) (string, error) {
	if err := CheckFormat(path); err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", apperr.E(apperr.Extraction, "text extraction failed", fmt.Errorf("read file: %w", err))
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		text, err := extractPDF(content)
		if err != nil {
			return "", apperr.E(apperr.Extraction, "text extraction failed", err)
		}
		return Clean(text), nil
	default:
		return "", apperr.New(apperr.UnsupportedFormat, "extract", UnsupportedFormatMessage)
	}
}
