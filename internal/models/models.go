package models

import (
	"path/filepath"
	"strings"
	"time"
)

type DocumentType string

const (
	DocumentPDF  DocumentType = "pdf"
	DocumentDOCX DocumentType = "docx"
	DocumentTXT  DocumentType = "txt"
)

// AllowedTypes lists every document type accepted for upload.
var AllowedTypes = []DocumentType{DocumentPDF, DocumentDOCX, DocumentTXT}

// TypeFromName derives the document type from a file name's extension.
// The second return value is false when the extension is not allowed.
func TypeFromName(name string) (DocumentType, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, t := range AllowedTypes {
		if ext == string(t) {
			return t, true
		}
	}
	return DocumentType(ext), false
}

type Document struct {
	OriginalName string
	StoredName   string
	StoredPath   string
	Type         DocumentType
	Size         int64
	UploadedAt   time.Time
}

// MCQ is a single multiple-choice question returned to the client.
type MCQ struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// StudyBundle is the response body of a successful upload.
type StudyBundle struct {
	Summary         string `json:"summary"`
	Flashcards      string `json:"flashcards"`
	MCQs            []MCQ  `json:"mcqs"`
	Recommendations string `json:"recommendations"`
}

// ScoreEntry is one recorded quiz submission.
type ScoreEntry struct {
	Score       float64
	SubmittedAt time.Time
}

// AnalyticsSummary is the read-only view served by the analytics endpoint.
type AnalyticsSummary struct {
	Uploads  int64     `json:"uploads"`
	Quizzes  int64     `json:"quizzes"`
	AvgScore float64   `json:"avg_score"`
	Recent   []float64 `json:"recent"`
}
