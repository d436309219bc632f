package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumen/internal/app"
	"github.com/abhisek/lumen/internal/ui/theme"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Add PDF or text documents to the library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.Options{SkipSeed: true})
		if err != nil {
			return err
		}
		defer closeApp(a)

		extractNow, _ := cmd.Flags().GetBool("extract")
		for _, path := range args {
			doc, chunks, err := a.Ingest.IngestFile(cmd.Context(), filepath.Base(path), path)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			fmt.Printf("%s %s (%d chunks)\n", theme.Correct.Render("added"), doc.Name, len(chunks))
			fmt.Println(theme.Hint.Render("  id: " + doc.ID))

			if !extractNow {
				continue
			}
			concepts, err := a.Extractor.ExtractForDocument(cmd.Context(), doc.ID)
			if err != nil {
				return fmt.Errorf("extract %s: %w", path, err)
			}
			for _, c := range concepts {
				fmt.Printf("  • %s %s\n", c.Name, theme.Hint.Render("("+c.Topic+")"))
			}
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().Bool("extract", false, "Extract concepts from the whole document right away")
}
