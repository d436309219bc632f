package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/lumen/internal/llm"
)

const remediationSystemPrompt = `You are a tutor explaining a flashcard the student got wrong.
Use only the cited source text. Do not add outside knowledge.
Keep the explanation to at most three sentences and list up to three key points.`

var remediationSchema = &llm.Schema{
	Name:        "remediation",
	Description: "Short explanation of a flashcard grounded in its source text",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"explanation": map[string]any{"type": "string"},
			"key_points": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []any{"explanation", "key_points"},
		"additionalProperties": false,
	},
}

// Remediation explains a missed flashcard.
type Remediation struct {
	CardID      string   `json:"cardId"`
	Explanation string   `json:"explanation"`
	KeyPoints   []string `json:"keyPoints"`
}

// Remediate explains why the card's answer holds, using its source snippet.
func (s *Service) Remediate(ctx context.Context, cardID string) (*Remediation, error) {
	if cardID == "" {
		return nil, invalid("cardId", "is required")
	}
	card, err := s.store.GetFlashcard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	answer := card.Explanation
	if card.CorrectAnswer != nil {
		answer = *card.CorrectAnswer + " (" + card.Explanation + ")"
	}
	msg := fmt.Sprintf("SOURCE TEXT (page %d):\n%q\n\nQUESTION:\n%q\n\nCORRECT ANSWER:\n%q",
		card.PageNumber, card.SourceSnippet, card.Question, answer)

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, llm.PurposeRemediate), llm.Request{
		System:      remediationSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      remediationSchema,
		MaxTokens:   1024,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("generate remediation: %w", err)
	}

	var out struct {
		Explanation string   `json:"explanation"`
		KeyPoints   []string `json:"key_points"`
	}
	if err := resp.Decode("remediation", &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Explanation) == "" {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: fmt.Errorf("empty explanation")}
	}
	return &Remediation{CardID: card.ID, Explanation: out.Explanation, KeyPoints: out.KeyPoints}, nil
}
