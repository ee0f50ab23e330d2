package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wotc/internal/listener"
)

func newListenCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Watch INBOX_DIR and process new files until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			processor, err := e.app.Processor(cmd.Context(), "")
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return listener.NewService(e.app.DB, e.app.Cfg, processor).Run(ctx)
		},
	}
}
