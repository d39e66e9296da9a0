package services

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"trivia/models"
)

const defaultQuestionPoints = 10

//go:embed questions.json
var defaultQuestions []byte

// QuestionBank is the immutable pool rooms draw their questions from.
type QuestionBank struct {
	questions []models.Question
}

type questionRecord struct {
	QuestionText  string   `json:"question_text"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Points        *int     `json:"points"`
}

func NewQuestionBank(questions []models.Question) *QuestionBank {
	pool := make([]models.Question, len(questions))
	copy(pool, questions)
	return &QuestionBank{questions: pool}
}

// LoadQuestionBank reads a JSON question file. An empty path selects the
// built-in questions. A missing or unreadable file yields an empty bank.
func LoadQuestionBank(path string, logger *slog.Logger) *QuestionBank {
	data := defaultQuestions
	source := "embedded"

	if path != "" {
		source = path

		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("question file not found", "path", path)
			} else {
				logger.Warn("read question file", "path", path, "error", err)
			}
			return NewQuestionBank(nil)
		}
		data = raw
	}

	questions, err := ParseQuestions(data, logger)
	if err != nil {
		logger.Warn("invalid question file", "source", source, "error", err)
		return NewQuestionBank(nil)
	}

	logger.Info("questions loaded", "source", source, "count", len(questions))
	return NewQuestionBank(questions)
}

// ParseQuestions decodes a JSON array of questions, skipping unusable entries.
func ParseQuestions(data []byte, logger *slog.Logger) ([]models.Question, error) {
	var records []questionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	questions := make([]models.Question, 0, len(records))
	for i, rec := range records {
		text := strings.TrimSpace(rec.QuestionText)
		if text == "" {
			text = strings.TrimSpace(rec.Text)
		}

		switch {
		case text == "":
			logger.Warn("skipping question without text", "entry", i)
			continue
		case len(rec.Options) < 2:
			logger.Warn("skipping question with too few options", "entry", i)
			continue
		case strings.TrimSpace(rec.CorrectAnswer) == "":
			logger.Warn("skipping question without answer", "entry", i)
			continue
		}

		points := defaultQuestionPoints
		if rec.Points != nil && *rec.Points >= 0 {
			points = *rec.Points
		}

		questions = append(questions, models.Question{
			ID:            len(questions),
			Text:          text,
			Options:       rec.Options,
			Points:        points,
			CorrectAnswer: rec.CorrectAnswer,
		})
	}

	return questions, nil
}

func (b *QuestionBank) Size() int {
	return len(b.questions)
}

// SampleForSession draws min(n, Size()) distinct questions in random order,
// numbered 0..k-1 in session order.
func (b *QuestionBank) SampleForSession(n int) ([]models.Question, error) {
	if len(b.questions) == 0 {
		return nil, ErrNoQuestionsAvailable
	}

	k := min(n, len(b.questions))
	if k <= 0 {
		return nil, ErrNoQuestionsAvailable
	}

	picked := rand.Perm(len(b.questions))[:k]
	session := make([]models.Question, k)
	for i, idx := range picked {
		q := b.questions[idx]
		options := make([]string, len(q.Options))
		copy(options, q.Options)

		session[i] = models.Question{
			ID:            i,
			Text:          q.Text,
			Options:       options,
			Points:        q.Points,
			CorrectAnswer: q.CorrectAnswer,
		}
	}

	return session, nil
}
