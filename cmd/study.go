package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumen/internal/app"
	"github.com/abhisek/lumen/internal/mastery"
	"github.com/abhisek/lumen/internal/review"
	"github.com/abhisek/lumen/internal/study"
	"github.com/abhisek/lumen/internal/ui/theme"
)

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Build a study deck",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		concept, _ := cmd.Flags().GetString("concept")
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && concept == "" {
			if err := printUpNext(cmd.Context(), study.NewPrioritizer(a.Store), limit); err != nil {
				return err
			}
		}

		deck, err := a.Decks.Build(cmd.Context(), concept)
		if errors.Is(err, study.ErrNoContent) {
			fmt.Println("No content ready yet. Ingest a document and run `lumen process --until-idle`.")
			return nil
		}
		if err != nil {
			return err
		}

		if deck.TargetedConcept != nil {
			fmt.Println(theme.Title.Render("Targeted review: " + *deck.TargetedConcept))
		} else {
			fmt.Println(theme.Title.Render("Study deck"))
		}
		var names []string
		for _, c := range deck.ConceptsUsed {
			names = append(names, fmt.Sprintf("%s (L%d)", c.Name, c.BloomLevel))
		}
		fmt.Println(theme.Hint.Render("Concepts: " + strings.Join(names, ", ")))
		fmt.Println()

		for i, card := range deck.Flashcards {
			var b strings.Builder
			fmt.Fprintf(&b, "%s  %s\n", theme.Heading.Render(fmt.Sprintf("%d.", i+1)),
				theme.Hint.Render(fmt.Sprintf("%s · %s · level %d", card.ConceptName, card.Topic, card.BloomLevel)))
			b.WriteString(theme.Body.Render(card.Question))
			for j, opt := range card.Options {
				fmt.Fprintf(&b, "\n  %c) %s", 'a'+j, opt)
			}
			fmt.Fprintf(&b, "\n%s", theme.Hint.Render("id: "+card.ID))
			fmt.Println(theme.Card.Render(b.String()))
		}
		return nil
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <card-id>",
	Short: "Record a self-graded answer to a flashcard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		correct, _ := cmd.Flags().GetBool("correct")
		confidence, _ := cmd.Flags().GetInt("confidence")
		out, err := a.Review.RecordInteraction(cmd.Context(), review.InteractionInput{
			FlashcardID:      args[0],
			IsCorrect:        &correct,
			ConfidenceBefore: &confidence,
		})
		if err != nil {
			return err
		}
		printOutcome(out)
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <card-id> <answer>",
	Short: "Grade a free-text answer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		confidence, _ := cmd.Flags().GetInt("confidence")
		ev, err := a.Review.Evaluate(cmd.Context(), review.EvaluateInput{
			CardID:          args[0],
			UserAnswer:      args[1],
			ConfidenceLevel: &confidence,
		})
		if err != nil {
			return err
		}
		if ev.IsCorrect {
			fmt.Println(theme.Correct.Render("Correct"))
		} else {
			fmt.Println(theme.Incorrect.Render("Not quite"))
		}
		fmt.Println(theme.Body.Render(ev.Feedback))
		if ev.Outcome != nil {
			printOutcome(ev.Outcome)
		}

		if remediate, _ := cmd.Flags().GetBool("explain"); remediate && !ev.IsCorrect {
			r, err := a.Review.Remediate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println()
			fmt.Println(theme.Heading.Render("Explanation"))
			fmt.Println(r.Explanation)
			for _, p := range r.KeyPoints {
				fmt.Println("  • " + p)
			}
		}
		return nil
	},
}

// printUpNext lists the concepts a session would draw from, with decay.
func printUpNext(ctx context.Context, p *study.Prioritizer, limit int) error {
	concepts, err := p.Select(ctx, limit)
	if err != nil {
		return err
	}
	if len(concepts) == 0 {
		return nil
	}
	fmt.Println(theme.Title.Render("Up next"))
	now := time.Now()
	for _, c := range concepts {
		decay := mastery.Classify(c.LastReviewedAt, now)
		fmt.Printf("  %-32.32s %-24.24s L%d  %s\n", c.Name, theme.Hint.Render(c.Topic), c.BloomLevel,
			theme.DecayStyle(decay).Render(fmt.Sprintf("%s · health %d", decay, mastery.Health(c.MasteryScore))))
	}
	fmt.Println()
	return nil
}

func printOutcome(out *review.Outcome) {
	fmt.Printf("%s  %s  %s\n",
		theme.Heading.Render(fmt.Sprintf("+%d XP", out.XP)),
		theme.Money.Render(fmt.Sprintf("+%d capital", out.Coins)),
		theme.Hint.Render(string(out.FeedbackType)))
	if t := out.MasteryUpdate; t != nil {
		switch {
		case t.Promoted:
			fmt.Println(theme.Correct.Render(fmt.Sprintf("Promoted to level %d", t.After.BloomLevel)))
		case t.Demoted:
			fmt.Println(theme.Incorrect.Render(fmt.Sprintf("Dropped to level %d", t.After.BloomLevel)))
		}
		fmt.Printf("Mastery %.0f → %.0f\n", t.Before.MasteryScore, t.After.MasteryScore)
	}
	fmt.Println(theme.Hint.Render(fmt.Sprintf("Capital: %d", out.Capital)))
}

func init() {
	studyCmd.Flags().String("concept", "", "Focus the deck on a concept and its weakest peers")
	studyCmd.Flags().Int("limit", 5, "Number of prioritized concepts to list (0 to skip)")

	answerCmd.Flags().Bool("correct", false, "Mark the answer correct")
	answerCmd.Flags().Int("confidence", 50, "Confidence before answering (0-100)")

	evaluateCmd.Flags().Int("confidence", 50, "Confidence before answering (0-100)")
	evaluateCmd.Flags().Bool("explain", false, "Ask for an explanation when the answer is wrong")
}
