package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo deck into an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		seeded, err := s.EnsureSeeded(cmd.Context())
		if err != nil {
			return err
		}
		if seeded {
			fmt.Println("Demo deck loaded.")
		} else {
			fmt.Println("Database already has concepts; nothing to do.")
		}
		return nil
	},
}
