package extract

import (
	"fmt"
	"strings"

	"github.com/abhisek/lumen/internal/store"
)

const documentSystemPrompt = `You are an expert academic content analyst. Extract the key concepts a student needs to master from the text excerpts provided.

Rules:
- Extract 8-15 concepts that represent the most important ideas.
- Concepts must be specific enough to write targeted questions about.
- Use topics to group related concepts together.
- Every concept must cite at least one chunk id, copied exactly from the excerpt headers.
- Prefer concepts that build on each other, simple to complex.`

const chunkSystemPrompt = `You are an expert academic content analyst. Extract 1-3 key concepts a student must master from the single excerpt provided. Give each a concise name, a broader topic, and a one-sentence description. Return an empty list if the excerpt has no substantive content.`

// buildDocumentMessage tags each chunk with its id and page, truncating each
// chunk and then the whole text.
func buildDocumentMessage(chunks []store.Chunk, cfg Config) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("[Chunk %s, Page %d]: %s", c.ID, c.PageNumber, truncate(c.Content, cfg.ChunkSummaryChars)))
	}
	return "SOURCE TEXT:\n" + truncate(strings.Join(parts, "\n\n"), cfg.DocumentTextChars)
}

func buildChunkMessage(c store.Chunk, cfg Config) string {
	return fmt.Sprintf("EXCERPT (page %d):\n%s", c.PageNumber, truncate(c.Content, cfg.ChunkTextChars))
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
