package ingest

import (
	"regexp"
	"strings"

	"github.com/abhisek/lumen/internal/store"
)

// DefaultMaxChars is the chunk size used when none is configured.
const DefaultMaxChars = 800

var sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)

// Chunk splits each page into sentence-bounded chunks of at most maxChars
// characters, keeping the page number. A sentence longer than maxChars
// becomes a chunk of its own. Whitespace is collapsed and blank pages are
// dropped.
func Chunk(pages []store.PageText, maxChars int) []store.PageText {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	var out []store.PageText
	for _, p := range pages {
		text := strings.Join(strings.Fields(p.Content), " ")
		if text == "" {
			continue
		}

		var current strings.Builder
		flush := func() {
			if s := strings.TrimSpace(current.String()); s != "" {
				out = append(out, store.PageText{PageNumber: p.PageNumber, Content: s})
			}
			current.Reset()
		}
		for _, sentence := range splitSentences(text) {
			if current.Len() > 0 && current.Len()+1+len(sentence) > maxChars {
				flush()
			}
			if current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(sentence)
		}
		flush()
	}
	return out
}

func splitSentences(text string) []string {
	matches := sentencePattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
