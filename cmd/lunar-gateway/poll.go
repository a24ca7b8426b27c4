package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func pollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one unpaid-order sweep and print the report",
		Long: `Run a single pass of the unpaid-order poller.

Orders created inside the configured window whose transaction is still open
are checked against the gateway and captured or authorized locally when the
customer paid but never returned to the shop.

Examples:
  lunar-gateway poll
  LUNAR_POLLER__WINDOW=48h lunar-gateway poll`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report := a.poller.RunOnce(ctx)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
