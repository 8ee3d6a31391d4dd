package services

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"

	"study-ai/internal/models"
)

var (
	// ErrUnreadableDocument wraps parse failures of a stored document.
	ErrUnreadableDocument = errors.New("unreadable document")
)

// TextExtractor turns a stored document into plain text.
type TextExtractor struct {
	logger *zap.Logger
}

func NewTextExtractor(logger *zap.Logger) *TextExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextExtractor{logger: logger}
}

// Extract returns the text content of the file at path. Unsupported types
// yield empty text and a nil error.
func (e *TextExtractor) Extract(path string, docType models.DocumentType) (string, error) {
	var (
		text string
		err  error
	)
	switch docType {
	case models.DocumentPDF:
		text, err = readPDFText(path)
	case models.DocumentDOCX:
		text, err = readDOCXText(path)
	case models.DocumentTXT:
		text, err = readUTF8Text(path)
	default:
		e.logger.Debug("unsupported document type", zap.String("path", path), zap.String("type", string(docType)))
		return "", nil
	}
	if err != nil {
		e.logger.Warn("extract text failed",
			zap.String("path", path),
			zap.String("type", string(docType)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrUnreadableDocument, err)
	}

	e.logger.Debug("extracted text",
		zap.String("path", path),
		zap.String("type", string(docType)),
		zap.Int("chars", utf8.RuneCountInString(text)))
	return text, nil
}

func readUTF8Text(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", errors.New("text file is not valid utf-8")
	}
	return string(data), nil
}
