package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"study-ai/internal/analytics"
	"study-ai/internal/models"
	"study-ai/internal/services"
)

const (
	maxMultipartMemory = 8 << 20 // 8 MB
	maxQuizBodyBytes   = 1 << 20

	msgNoFile          = "No file uploaded."
	msgInvalidType     = "Invalid file type."
	msgNoText          = "Could not extract text."
	msgUnreadable      = "Could not read document."
	msgProcessFailed   = "Could not process document."
	msgTooLarge        = "File too large."
	msgQuizSubmitted   = "Quiz submitted successfully!"
	msgAnalyticsFailed = "Could not load analytics."
	msgEncodeFailed    = "Could not encode response."
)

type Server struct {
	mux            *http.ServeMux
	ingestion      *services.IngestionService
	analytics      analytics.Store
	schedule       *services.ScheduleService
	logger         *zap.Logger
	maxUploadBytes int64
}

func NewServer(
	ingestion *services.IngestionService,
	store analytics.Store,
	schedule *services.ScheduleService,
	logger *zap.Logger,
	maxUploadBytes int64,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mux:            http.NewServeMux(),
		ingestion:      ingestion,
		analytics:      store,
		schedule:       schedule,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return requestLogger(s.logger, s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/process", s.handleProcess)
	s.mux.HandleFunc("/submit_quiz", s.handleSubmitQuiz)
	s.mux.HandleFunc("/analytics", s.handleAnalytics)
	s.mux.HandleFunc("/study_schedule", s.handleStudySchedule)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if s.maxUploadBytes > 0 {
		if r.ContentLength > s.maxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	if form := r.MultipartForm; form != nil {
		defer form.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		// A part named "file" without a filename is parsed as a plain value.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			writeError(w, http.StatusBadRequest, msgInvalidType)
			return
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	if !allowedFile(header.Filename) {
		writeError(w, http.StatusBadRequest, msgInvalidType)
		return
	}

	bundle, err := s.ingestion.Process(r.Context(), header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidFileName):
			writeError(w, http.StatusBadRequest, msgInvalidType)
		case errors.Is(err, services.ErrEmptyText):
			writeError(w, http.StatusBadRequest, msgNoText)
		case errors.Is(err, services.ErrUnreadableDocument):
			s.logger.Error("document unreadable", zap.String("file", header.Filename), zap.Error(err))
			writeError(w, http.StatusInternalServerError, msgUnreadable)
		default:
			s.logger.Error("process document failed", zap.String("file", header.Filename), zap.Error(err))
			writeError(w, http.StatusInternalServerError, msgProcessFailed)
		}
		return
	}

	s.respond(w, http.StatusOK, bundle)
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxQuizBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	score := parseScore(body)

	if err := s.analytics.RecordQuiz(r.Context(), score); err != nil {
		s.logger.Error("record quiz failed", zap.Float64("score", score), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not record quiz")
		return
	}

	s.respond(w, http.StatusOK, map[string]string{"message": msgQuizSubmitted})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	summary, err := s.analytics.Summary(r.Context())
	if err != nil {
		s.logger.Error("load analytics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgAnalyticsFailed)
		return
	}
	s.respond(w, http.StatusOK, summary)
}

func (s *Server) handleStudySchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	history, err := s.analytics.Scores(r.Context())
	if err != nil {
		s.logger.Error("load score history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgAnalyticsFailed)
		return
	}
	s.respond(w, http.StatusOK, s.schedule.Plan(history))
}

func allowedFile(filename string) bool {
	if filename == "" || !strings.Contains(filename, ".") {
		return false
	}
	_, ok := models.TypeFromName(filename)
	return ok
}

// parseScore reads the "score" field of a quiz submission. Missing or
// non-numeric values count as 0.
func parseScore(body []byte) float64 {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0
	}
	raw, ok := payload["score"]
	if !ok {
		return 0
	}
	var score float64
	if err := json.Unmarshal(raw, &score); err != nil {
		return 0
	}
	return score
}

// writeJSON encodes payload before touching the response, so an encoding
// failure still produces a well-formed 500.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) error {
	var buf bytes.Buffer
	if payload != nil {
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(payload); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"`+msgEncodeFailed+`"}`+"\n")
			return fmt.Errorf("encode response: %w", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// respond writes payload and logs when it cannot be encoded.
func (s *Server) respond(w http.ResponseWriter, status int, payload interface{}) {
	if err := writeJSON(w, status, payload); err != nil {
		s.logger.Error("write response failed", zap.Int("status", status), zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
