package questions

import (
	"fmt"
	"strings"
)

// Validator checks a generated item before it is stored.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier for this validator, e.g. "structural".
	Name() string

	// Validate returns nil if the item passes.
	Validate(item *Item) *ValidationError
}

// ValidationError describes why an item failed validation.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Message   string // Human-readable description of the failure
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// StructuralValidator checks that required fields are present and within
// length limits.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(item *Item) *ValidationError {
	switch {
	case strings.TrimSpace(item.Question) == "":
		return &ValidationError{Validator: v.Name(), Message: "question is empty"}
	case len(item.Question) > 600:
		return &ValidationError{Validator: v.Name(), Message: "question exceeds 600 characters"}
	case strings.TrimSpace(item.TargetExplanation) == "":
		return &ValidationError{Validator: v.Name(), Message: "target_explanation is empty"}
	case len(item.TargetExplanation) > 2000:
		return &ValidationError{Validator: v.Name(), Message: "target_explanation exceeds 2000 characters"}
	}
	return nil
}

// ChoiceValidator checks multiple choice items: at least two distinct
// options with the correct answer among them. Free response items pass.
type ChoiceValidator struct{}

func (v *ChoiceValidator) Name() string { return "choices" }

func (v *ChoiceValidator) Validate(item *Item) *ValidationError {
	if len(item.Options) == 0 {
		return nil
	}
	if len(item.Options) < 2 {
		return &ValidationError{Validator: v.Name(), Message: "multiple choice needs at least 2 options"}
	}
	seen := make(map[string]bool, len(item.Options))
	for _, o := range item.Options {
		key := strings.ToLower(strings.TrimSpace(o))
		if key == "" {
			return &ValidationError{Validator: v.Name(), Message: "option is empty"}
		}
		if seen[key] {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("duplicate option %q", o)}
		}
		seen[key] = true
	}
	if !seen[strings.ToLower(strings.TrimSpace(item.CorrectAnswer))] {
		return &ValidationError{Validator: v.Name(), Message: "correct_answer is not one of the options"}
	}
	return nil
}

// SourceReferenceValidator rejects questions that point at a text the
// student cannot see.
type SourceReferenceValidator struct{}

var sourcePhrases = []string{
	"according to the text",
	"according to the passage",
	"based on the reading",
	"based on the text",
	"in the passage",
}

func (v *SourceReferenceValidator) Name() string { return "source-reference" }

func (v *SourceReferenceValidator) Validate(item *Item) *ValidationError {
	q := strings.ToLower(item.Question)
	for _, p := range sourcePhrases {
		if strings.Contains(q, p) {
			return &ValidationError{
				Validator: v.Name(),
				Message:   fmt.Sprintf("question refers to the source (%q)", p),
			}
		}
	}
	return nil
}
