package questions

import (
	"fmt"
	"strings"

	"github.com/abhisek/lumen/internal/store"
)

// MaxGeneratedLevel is the highest bloom level with a question template.
// Concepts past it are marked done.
const MaxGeneratedLevel = 4

const systemPrompt = `You are a knowledgeable tutor writing study questions for a single concept.

Rules:
- Ask about the concept itself. The student does not have the source text, so never start with "According to the text" or "Based on the reading".
- Questions sound like a tutor asking a student, not a textbook quiz. Keep them concise.
- For each question give a target_explanation: the core idea a good answer demonstrates, not specific wording.
- Prefer free response. Leave options empty and correct_answer blank unless a multiple choice item genuinely fits.
- When you do write a multiple choice item, give 3-5 distinct options and copy the correct one exactly into correct_answer.`

var levelTemplates = map[int]string{
	1: "Focus on basic recall. Ask whether the student knows what this concept is and why it matters. Do not ask them to recite definitions. (Remembering)",
	2: "Focus on understanding. Ask the student to explain the concept in their own words, give a real-world example, or describe why it matters. (Understanding)",
	3: "Focus on application. Present a brief realistic scenario and ask how the concept applies. The student should use the idea, not define it. (Applying)",
	4: "Focus on analysis. Ask the student to compare, contrast, or break down how this concept relates to other ideas in the field. (Analyzing)",
}

// levelTemplate returns the instruction for level, defaulting to recall.
func levelTemplate(level int) string {
	if t, ok := levelTemplates[level]; ok {
		return t
	}
	return levelTemplates[1]
}

// buildSourceText joins chunk contents tagged with their page, truncated
// to max runes.
func buildSourceText(chunks []store.Chunk, max int) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("[Page %d]: %s", c.PageNumber, c.Content))
	}
	return truncate(strings.Join(parts, "\n\n"), max)
}

// buildDedup formats prior questions for the prompt, respecting the max limit.
// Returns "None" if there are no prior questions.
func buildDedup(prior []string, max int) string {
	if len(prior) == 0 {
		return "None"
	}
	if max > 0 && len(prior) > max {
		prior = prior[len(prior)-max:]
	}
	var b strings.Builder
	for i, q := range prior {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildUserMessage(c *store.Concept, level int, chunks []store.Chunk, prior []string, cfg Config) string {
	var b strings.Builder
	b.WriteString(levelTemplate(level))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "CONCEPT: %q - %s\n", c.Name, c.Description)
	fmt.Fprintf(&b, "LEVEL: %d of %d\n", level, MaxGeneratedLevel)
	fmt.Fprintf(&b, "TOPIC: %s\n\n", c.Topic)
	fmt.Fprintf(&b, "Generate %d questions about this concept at the level above.\n\n", cfg.Count)
	b.WriteString("ALREADY ASKED (do not repeat):\n")
	b.WriteString(buildDedup(prior, cfg.MaxPriorQuestions))
	b.WriteString("\n\nSOURCE MATERIAL (for your reference only, the student cannot see it):\n")
	b.WriteString(buildSourceText(chunks, cfg.SourceTextChars))
	return b.String()
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
