package extract

// Config controls prompt sizing and fan-out.
type Config struct {
	// ChunkSummaryChars caps each chunk in a document-wide prompt.
	ChunkSummaryChars int
	// DocumentTextChars caps the whole document-wide prompt text.
	DocumentTextChars int
	// ChunkTextChars caps the excerpt in a single-chunk prompt.
	ChunkTextChars int
	// MaxChunkConcepts drops extra concepts from single-chunk output.
	MaxChunkConcepts int

	MaxTokens   int
	Temperature float64

	// Concurrency bounds parallel documents in EnsureConceptsExist.
	Concurrency int
}

// DefaultConfig returns the standard sizing.
func DefaultConfig() Config {
	return Config{
		ChunkSummaryChars: 500,
		DocumentTextChars: 15000,
		ChunkTextChars:    3000,
		MaxChunkConcepts:  3,
		MaxTokens:         4096,
		Temperature:       0.3,
		Concurrency:       2,
	}
}
