package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/lumen/internal/llm"
	"github.com/abhisek/lumen/internal/store"
)

const fallbackFeedback = "Could you elaborate on that?"

const gradingSystemPrompt = `You are an encouraging study buddy helping a student review concepts. The student answers from memory without notes.

Grade generously. This is a learning tool, not an exam.
Mark the answer correct if the student shows any understanding of the core idea, gets the general direction right even with wrong details, or captures the gist in different words.
Mark it incorrect only if it is blank or wildly wrong.

Give short, encouraging socratic_feedback that fills in what they missed.`

var gradeSchema = &llm.Schema{
	Name:        "answer-grade",
	Description: "Lenient grade of a free-text answer with encouraging feedback",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_correct":        map[string]any{"type": "boolean"},
			"socratic_feedback": map[string]any{"type": "string"},
		},
		"required":             []any{"is_correct", "socratic_feedback"},
		"additionalProperties": false,
	},
}

type gradeOutput struct {
	IsCorrect        bool   `json:"is_correct"`
	SocraticFeedback string `json:"socratic_feedback"`
}

// EvaluateInput is a free-text answer to grade.
type EvaluateInput struct {
	CardID          string `json:"cardId"`
	UserAnswer      string `json:"userAnswer"`
	ConfidenceLevel *int   `json:"confidenceLevel"`
	TimeTakenMs     int64  `json:"timeTakenMs"`
}

// Evaluation is a graded answer and its economic effect.
type Evaluation struct {
	IsCorrect       bool     `json:"isCorrect"`
	Feedback        string   `json:"feedback"`
	CapitalDelta    int64    `json:"capitalDelta"`
	NewTotalCapital int64    `json:"newTotalCapital"`
	Outcome         *Outcome `json:"outcome"`
}

func (in EvaluateInput) validate() error {
	if in.CardID == "" {
		return invalid("cardId", "is required")
	}
	if strings.TrimSpace(in.UserAnswer) == "" {
		return invalid("userAnswer", "is required")
	}
	if in.TimeTakenMs < 0 {
		return invalid("timeTakenMs", "must not be negative")
	}
	return validateConfidence("confidenceLevel", in.ConfidenceLevel)
}

// Evaluate grades a free-text answer with the generative service, then
// records it like a self-graded answer. Unparseable grading output counts as
// incorrect with generic feedback.
func (s *Service) Evaluate(ctx context.Context, in EvaluateInput) (*Evaluation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	card, err := s.store.GetFlashcard(ctx, in.CardID)
	if err != nil {
		return nil, err
	}

	conceptName := ""
	if card.ConceptID != nil {
		c, err := s.store.GetConcept(ctx, *card.ConceptID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			conceptName = c.Name
		}
	}

	grade, err := s.grade(ctx, card, conceptName, in.UserAnswer)
	if err != nil {
		return nil, err
	}

	out, err := s.record(ctx, card, grade.IsCorrect, *in.ConfidenceLevel, in.TimeTakenMs)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		IsCorrect:       grade.IsCorrect,
		Feedback:        grade.SocraticFeedback,
		CapitalDelta:    int64(out.Coins),
		NewTotalCapital: out.Capital,
		Outcome:         out,
	}, nil
}

func (s *Service) grade(ctx context.Context, card *store.Flashcard, conceptName, answer string) (*gradeOutput, error) {
	var b strings.Builder
	if conceptName != "" {
		fmt.Fprintf(&b, "CONCEPT: %s\n", conceptName)
	}
	fmt.Fprintf(&b, "QUESTION: %s\n", card.Question)
	fmt.Fprintf(&b, "CORE IDEA: %s\n", card.Explanation)
	if card.CorrectAnswer != nil {
		fmt.Fprintf(&b, "CORRECT CHOICE: %s\n", *card.CorrectAnswer)
	}
	fmt.Fprintf(&b, "\nSTUDENT'S ANSWER: %q", answer)

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, llm.PurposeAnswerEval), llm.Request{
		System:      gradingSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: b.String()}},
		Schema:      gradeSchema,
		MaxTokens:   1024,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("grade answer: %w", err)
	}

	var g gradeOutput
	if err := resp.Decode("grade", &g); err != nil {
		s.log.Warn("unparseable grade, treating answer as incorrect",
			zap.String("flashcard_id", card.ID), zap.Error(err))
		return &gradeOutput{SocraticFeedback: fallbackFeedback}, nil
	}
	if strings.TrimSpace(g.SocraticFeedback) == "" {
		g.SocraticFeedback = fallbackFeedback
	}
	return &g, nil
}
