package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"study-ai/internal/models"
)

var (
	// ErrInvalidFileName is returned when an upload name is empty, sanitizes
	// to nothing, or does not carry an allowed extension.
	ErrInvalidFileName = errors.New("invalid file name")
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFileName reduces an uploaded file name to a safe basename made of
// ASCII letters, digits, '_', '.' and '-'. It may return "".
func SanitizeFileName(name string) string {
	var ascii strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r < unicode.MaxASCII {
			ascii.WriteRune(r)
		}
	}
	cleaned := strings.NewReplacer("/", " ", "\\", " ").Replace(ascii.String())
	cleaned = strings.Join(strings.Fields(cleaned), "_")
	cleaned = unsafeFileChars.ReplaceAllString(cleaned, "")
	return strings.Trim(cleaned, "._")
}

// DocumentService stores uploads in a flat directory keyed by sanitized name.
type DocumentService struct {
	uploadDir string
}

func NewDocumentService(uploadDir string) *DocumentService {
	return &DocumentService{uploadDir: uploadDir}
}

// Create writes src to the upload directory. A prior upload with the same
// sanitized name is replaced.
func (s *DocumentService) Create(original string, src io.Reader) (*models.Document, error) {
	stored := SanitizeFileName(original)
	if stored == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFileName, original)
	}
	docType, ok := models.TypeFromName(stored)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported extension in %q", ErrInvalidFileName, original)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure upload dir: %w", err)
	}

	// Same-named uploads race on the final path, so each writes its own temp
	// file and renames it into place.
	tmpPath := filepath.Join(s.uploadDir, "."+uuid.NewString()+".part")
	out, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	size, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("write file: %w", err)
	}

	storedPath := filepath.Join(s.uploadDir, stored)
	if err := os.Rename(tmpPath, storedPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("move file into place: %w", err)
	}

	return &models.Document{
		OriginalName: original,
		StoredName:   stored,
		StoredPath:   storedPath,
		Type:         docType,
		Size:         size,
		UploadedAt:   time.Now().UTC(),
	}, nil
}
