package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumen/internal/app"
	"github.com/abhisek/lumen/internal/economy"
	"github.com/abhisek/lumen/internal/ui/components"
	"github.com/abhisek/lumen/internal/ui/theme"
)

var ecosystemCmd = &cobra.Command{
	Use:     "ecosystem",
	Aliases: []string{"stats"},
	Short:   "Show mastery, decay and venture progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		eco, err := a.Viewer.Ecosystem(cmd.Context())
		if err != nil {
			return err
		}
		st := eco.Stats
		fmt.Println(theme.Title.Render(fmt.Sprintf("%s (level %d)", st.VentureName, st.VentureLevel)))
		fmt.Printf("%s   XP %d   Reviews %d   Avg mastery %d   At risk %d\n",
			theme.Money.Render(fmt.Sprintf("Capital %d", st.Capital)),
			st.TotalXP, st.TotalInteractions, st.AverageMastery, st.ConceptsAtRisk)
		if st.NextUpgrade != nil {
			fmt.Println(theme.Hint.Render(fmt.Sprintf("Next: %s for %d", st.NextUpgrade.Name, st.NextUpgrade.Cost)))
		}
		fmt.Println()

		topic := ""
		for _, p := range eco.Plots {
			if p.Empty {
				continue
			}
			if p.Topic != topic {
				topic = p.Topic
				fmt.Println(theme.Heading.Render(topic))
			}
			fmt.Printf("  %s %s\n",
				components.HealthBar(fmt.Sprintf("%-32.32s", p.Name), p.Health, 60),
				theme.DecayStyle(p.Decay).Render(string(p.Decay)))
		}
		return nil
	},
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Spend capital on the next venture level",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		res, err := a.Ledger.AttemptUpgrade(cmd.Context())
		var funds *economy.InsufficientFundsError
		switch {
		case errors.As(err, &funds):
			fmt.Printf("Not enough capital: need %d, have %d.\n", funds.Needed, funds.Have)
			return nil
		case errors.Is(err, economy.ErrMaxLevel):
			fmt.Println("Already at the top venture level.")
			return nil
		case err != nil:
			return err
		}
		fmt.Println(theme.Correct.Render(fmt.Sprintf("Upgraded to %s (level %d)", res.Name, res.NewLevel)))
		fmt.Println(theme.Hint.Render(fmt.Sprintf("Capital remaining: %d", res.CapitalRemaining)))
		return nil
	},
}
