package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumen/internal/app"
	"github.com/abhisek/lumen/internal/queue"
	"github.com/abhisek/lumen/internal/store"
	"github.com/abhisek/lumen/internal/ui/theme"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Advance the concept and question generation pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)
		ctx := cmd.Context()

		if stale, _ := cmd.Flags().GetBool("recover"); stale {
			n, err := a.Scheduler.RecoverStale(ctx, a.Config.Queue.StaleAfter)
			if err != nil {
				return err
			}
			fmt.Printf("Returned %d stale chunks to the queue.\n", n)
		}

		if all, _ := cmd.Flags().GetBool("documents"); all {
			n, err := a.Extractor.EnsureConceptsExist(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Extracted concepts for %d documents.\n", n)
		}

		concept, _ := cmd.Flags().GetString("concept")
		untilIdle, _ := cmd.Flags().GetBool("until-idle")
		if !untilIdle {
			res, err := a.Scheduler.Step(ctx, concept)
			if err != nil {
				return err
			}
			printResult(res)
			return printBacklog(ctx, a.Store)
		}

		maxSteps, _ := cmd.Flags().GetInt("max")
		results, err := a.Scheduler.RunUntilIdle(ctx, maxSteps)
		for i := range results {
			printResult(&results[i])
		}
		if err != nil {
			return err
		}
		return printBacklog(ctx, a.Store)
	},
}

func printBacklog(ctx context.Context, s *store.Store) error {
	counts, err := s.CountChunksByStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Println(theme.Hint.Render(fmt.Sprintf("chunks: %d pending · %d processing · %d completed · %d failed",
		counts[store.ChunkPending], counts[store.ChunkProcessing],
		counts[store.ChunkCompleted], counts[store.ChunkFailed])))
	return nil
}

func printResult(r *queue.Result) {
	switch r.Status {
	case queue.StatusProcessed:
		fmt.Printf("%s chunk %s: %d concepts\n", theme.Heading.Render("processed"), r.ChunkID, r.ConceptsExtracted)
	case queue.StatusGenerated:
		switch {
		case r.Skipped:
			fmt.Printf("%s concept %s: %s\n", theme.Incorrect.Render("skipped"), r.ConceptID, r.Message)
		case r.Message != "":
			fmt.Printf("%s concept %s: %s\n", theme.Heading.Render("generated"), r.ConceptID, r.Message)
		default:
			fmt.Printf("%s concept %s: %d cards at level %d\n",
				theme.Heading.Render("generated"), r.ConceptID, r.CardsGenerated, r.Level)
		}
	default:
		fmt.Println(theme.Hint.Render("queue is idle"))
	}
}

func init() {
	processCmd.Flags().Bool("until-idle", false, "Keep stepping until nothing is left to do")
	processCmd.Flags().Int("max", 50, "Maximum steps with --until-idle")
	processCmd.Flags().String("concept", "", "Generate for this concept first")
	processCmd.Flags().Bool("recover", false, "Return chunks stuck in processing to the queue first")
	processCmd.Flags().Bool("documents", false, "Run whole-document extraction for documents without concepts first")
}
