package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wotc/internal/intake"
)

func newIntakeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "intake <path>...",
		Short: "Register PDF and .eml files, or directories of them, as pending attachments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := intake.NewService(e.app.DB, e.app.Cfg.StoreDir)
			var total intake.Result
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				var res intake.Result
				if info.IsDir() {
					res, err = svc.IngestDir(path)
				} else {
					res, err = svc.IngestFile(path)
				}
				if err != nil {
					return fmt.Errorf("intake %s: %w", path, err)
				}
				total.Files += res.Files
				total.Emails += res.Emails
				total.Attachments += res.Attachments
				total.Duplicates += res.Duplicates
				total.Skipped += res.Skipped
			}
			fmt.Printf("intake done files=%d emails=%d attachments=%d duplicates=%d skipped=%d\n",
				total.Files, total.Emails, total.Attachments, total.Duplicates, total.Skipped)
			return nil
		},
	}
}
