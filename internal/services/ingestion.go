package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"study-ai/internal/models"
)

var (
	// ErrEmptyText indicates that a stored document produced no text.
	ErrEmptyText = errors.New("no text extracted")
)

// UploadRecorder counts stored uploads.
type UploadRecorder interface {
	RecordUpload(ctx context.Context) error
}

// IngestionService coordinates storage, text extraction and artifact generation.
type IngestionService struct {
	documents *DocumentService
	extractor *TextExtractor
	generator *StudyGenerator
	uploads   UploadRecorder
	logger    *zap.Logger
}

func NewIngestionService(
	documents *DocumentService,
	extractor *TextExtractor,
	generator *StudyGenerator,
	uploads UploadRecorder,
	logger *zap.Logger,
) *IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionService{
		documents: documents,
		extractor: extractor,
		generator: generator,
		uploads:   uploads,
		logger:    logger,
	}
}

// Process stores the upload, counts it, extracts its text and generates the
// study bundle. The upload is counted as soon as it is stored, so a document
// that later yields no text still increments the counter.
func (s *IngestionService) Process(ctx context.Context, filename string, src io.Reader) (*models.StudyBundle, error) {
	doc, err := s.documents.Create(filename, src)
	if err != nil {
		return nil, fmt.Errorf("store document %s: %w", filename, err)
	}
	s.logger.Info("document stored",
		zap.String("name", doc.StoredName),
		zap.String("type", string(doc.Type)),
		zap.Int64("bytes", doc.Size))

	if err := s.uploads.RecordUpload(ctx); err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}

	text, err := s.extractor.Extract(doc.StoredPath, doc.Type)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", doc.StoredName, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	started := time.Now()
	bundle := s.generator.Generate(ctx, text)
	s.logger.Info("study bundle generated",
		zap.String("name", doc.StoredName),
		zap.Int("mcqs", len(bundle.MCQs)),
		zap.Duration("took", time.Since(started)))
	return &bundle, nil
}
