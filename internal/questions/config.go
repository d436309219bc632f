package questions

// Config controls the behavior of the Generator.
type Config struct {
	// Validators run in order on every generated item. An item failing any
	// of them is dropped; the rest of the batch is kept.
	Validators []Validator

	// Count is the number of items requested per generation.
	Count int

	// SourceTextChars caps the source material included in the prompt.
	SourceTextChars int

	// SnippetChars caps the source snippet stored on each flashcard.
	SnippetChars int

	// MaxPriorQuestions is the maximum number of existing questions for the
	// concept listed in the prompt to avoid repeats.
	MaxPriorQuestions int

	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns a Config with the standard validator chain.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&ChoiceValidator{},
			&SourceReferenceValidator{},
		},
		Count:             5,
		SourceTextChars:   3000,
		SnippetChars:      500,
		MaxPriorQuestions: 8,
		MaxTokens:         4096,
		Temperature:       0.7,
	}
}
