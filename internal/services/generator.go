package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"study-ai/internal/models"
)

const (
	// DefaultMaxTokens caps each generated artifact.
	DefaultMaxTokens = 300

	mcqCount       = 3
	mcqOptionCount = 4

	sentinelMCQQuestion = "MCQs could not be generated."
	aiErrorPrefix       = "AI error: "
)

// Artifact names one of the four generated study aids.
type Artifact int

const (
	ArtifactSummary Artifact = iota
	ArtifactFlashcards
	ArtifactMCQs
	ArtifactRecommendations
)

var artifactNames = [...]string{"summary", "flashcards", "mcqs", "recommendations"}

func (a Artifact) String() string {
	if a < 0 || int(a) >= len(artifactNames) {
		return fmt.Sprintf("artifact(%d)", int(a))
	}
	return artifactNames[a]
}

var artifactPrompts = [...]string{
	ArtifactSummary:         "Summarize the following study notes:\n",
	ArtifactFlashcards:      "Create 5 flashcards (Q/A) from these notes:\n",
	ArtifactMCQs:            "Create 3 multiple choice questions with 4 options each, mark the correct answer in JSON format:\n",
	ArtifactRecommendations: "Suggest a personalized study plan based on these notes:\n",
}

// PromptFor builds the prompt sent for an artifact.
func PromptFor(a Artifact, text string) string {
	return artifactPrompts[a] + text
}

// Completion is the outcome of one generation call.
type Completion struct {
	Text string
	Err  error
	Kind FailureKind
}

func (c Completion) Failed() bool {
	return c.Err != nil
}

// Display flattens the outcome into the string shown to clients.
func (c Completion) Display() string {
	if c.Failed() {
		return aiErrorPrefix + c.Err.Error()
	}
	return c.Text
}

// SentinelMCQs is returned whenever multiple-choice questions cannot be produced.
func SentinelMCQs() []models.MCQ {
	return []models.MCQ{{Question: sentinelMCQQuestion, Options: []string{}, Answer: ""}}
}

// StudyGenerator issues the four artifact prompts for a document.
type StudyGenerator struct {
	ai        TextGenerator
	timeout   time.Duration
	maxTokens int
	logger    *zap.Logger
}

func NewStudyGenerator(ai TextGenerator, timeout time.Duration, maxTokens int, logger *zap.Logger) *StudyGenerator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudyGenerator{ai: ai, timeout: timeout, maxTokens: maxTokens, logger: logger}
}

// Generate runs the four prompts concurrently. A failed call only affects
// its own field of the bundle.
func (g *StudyGenerator) Generate(ctx context.Context, text string) models.StudyBundle {
	results := make([]Completion, len(artifactPrompts))
	var wg sync.WaitGroup
	for i := range artifactPrompts {
		wg.Add(1)
		go func(a Artifact) {
			defer wg.Done()
			results[a] = g.complete(ctx, a, text)
		}(Artifact(i))
	}
	wg.Wait()

	bundle := models.StudyBundle{
		Summary:         results[ArtifactSummary].Display(),
		Flashcards:      results[ArtifactFlashcards].Display(),
		Recommendations: results[ArtifactRecommendations].Display(),
	}

	mcqResult := results[ArtifactMCQs]
	if mcqResult.Failed() {
		bundle.MCQs = SentinelMCQs()
		return bundle
	}
	mcqs, err := ParseMCQs(mcqResult.Text)
	if err != nil {
		g.logger.Warn("mcq output rejected", zap.Error(err), zap.Int("raw_len", len(mcqResult.Text)))
		bundle.MCQs = SentinelMCQs()
		return bundle
	}
	bundle.MCQs = mcqs
	return bundle
}

func (g *StudyGenerator) complete(ctx context.Context, a Artifact, text string) (out Completion) {
	defer func() {
		if r := recover(); r != nil {
			out = Completion{Err: fmt.Errorf("generator panic: %v", r), Kind: FailureUpstream}
		}
		if out.Failed() {
			g.logger.Warn("artifact generation failed",
				zap.Stringer("artifact", a),
				zap.String("kind", string(out.Kind)),
				zap.Error(out.Err))
		}
	}()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	content, err := g.ai.Complete(ctx, PromptFor(a, text), g.maxTokens)
	if err != nil {
		return Completion{Err: err, Kind: ClassifyFailure(err)}
	}
	g.logger.Debug("artifact generated",
		zap.Stringer("artifact", a),
		zap.Duration("took", time.Since(started)))
	return Completion{Text: content}
}

type rawMCQ struct {
	Question *string         `json:"question"`
	Options  []string        `json:"options"`
	Answer   json.RawMessage `json:"answer"`
}

// ParseMCQs validates model output against the multiple-choice schema:
// exactly 3 questions, each with a question, exactly 4 options and an
// answer given either as text or as a 0-based option index.
func ParseMCQs(raw string) ([]models.MCQ, error) {
	payload := []byte(extractJSON(raw))
	if len(payload) == 0 {
		return nil, errors.New("mcq output is empty")
	}

	var items []rawMCQ
	switch payload[0] {
	case '[':
		if err := decodeSingle(payload, &items); err != nil {
			return nil, fmt.Errorf("decode mcq array: %w", err)
		}
	case '{':
		var wrapper struct {
			Questions []rawMCQ `json:"questions"`
		}
		if err := decodeSingle(payload, &wrapper); err != nil {
			return nil, fmt.Errorf("decode mcq object: %w", err)
		}
		items = wrapper.Questions
	default:
		return nil, errors.New("mcq output is not json")
	}

	if len(items) != mcqCount {
		return nil, fmt.Errorf("expected %d questions, got %d", mcqCount, len(items))
	}

	out := make([]models.MCQ, 0, len(items))
	for i, item := range items {
		mcq, err := item.validate()
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		out = append(out, mcq)
	}
	return out, nil
}

func (r rawMCQ) validate() (models.MCQ, error) {
	if r.Question == nil || strings.TrimSpace(*r.Question) == "" {
		return models.MCQ{}, errors.New("missing question text")
	}
	if len(r.Options) != mcqOptionCount {
		return models.MCQ{}, fmt.Errorf("expected %d options, got %d", mcqOptionCount, len(r.Options))
	}
	for i, opt := range r.Options {
		if strings.TrimSpace(opt) == "" {
			return models.MCQ{}, fmt.Errorf("option %d is empty", i+1)
		}
	}

	answer, err := r.answer()
	if err != nil {
		return models.MCQ{}, err
	}
	return models.MCQ{
		Question: strings.TrimSpace(*r.Question),
		Options:  append([]string(nil), r.Options...),
		Answer:   answer,
	}, nil
}

func (r rawMCQ) answer() (string, error) {
	if len(r.Answer) == 0 {
		return "", errors.New("missing answer")
	}
	var text string
	if err := json.Unmarshal(r.Answer, &text); err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			return "", errors.New("answer is empty")
		}
		return text, nil
	}
	var index int
	if err := json.Unmarshal(r.Answer, &index); err == nil {
		if index < 0 || index >= len(r.Options) {
			return "", fmt.Errorf("answer index %d out of range", index)
		}
		return r.Options[index], nil
	}
	return "", fmt.Errorf("answer must be a string or option index, got %s", string(r.Answer))
}

func decodeSingle(payload []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after json value")
	}
	return nil
}

// extractJSON removes markdown code block formatting if present and trims
// the content down to the outermost JSON array or object.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	// Remove markdown code blocks like ```json ... ``` or ``` ... ```
	if strings.HasPrefix(content, "```") {
		start := 3
		if newlineIdx := strings.Index(content[start:], "\n"); newlineIdx != -1 {
			start += newlineIdx + 1
		}
		if endIdx := strings.Index(content[start:], "```"); endIdx != -1 {
			content = content[start : start+endIdx]
		} else {
			content = content[start:]
		}
	}

	content = strings.TrimSpace(content)

	open := strings.IndexAny(content, "[{")
	if open == -1 {
		return content
	}
	closer := "]"
	if content[open] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(content, closer); end > open {
		content = content[open : end+1]
	}
	return strings.TrimSpace(content)
}
