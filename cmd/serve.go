package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumen/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.Config.Server.Addr = addr
		}
		if cmd.Flags().Changed("poll") {
			a.Config.Queue.Enabled, _ = cmd.Flags().GetBool("poll")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return a.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")
	serveCmd.Flags().Bool("poll", false, "Drain the generation queue in the background")
}
