package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wotc/internal/pipeline"
)

func newExportCommand(e *env) *cobra.Command {
	var out, attachmentID string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write classification results to an XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := e.app.DB.GetExportRows(attachmentID)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				if attachmentID != "" {
					return fmt.Errorf("no export rows for attachment %s", attachmentID)
				}
				return fmt.Errorf("no export rows")
			}
			if err := pipeline.ExportRowsToXLSX(rows, out); err != nil {
				return err
			}
			fmt.Printf("exported %d rows to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output XLSX path")
	cmd.Flags().StringVar(&attachmentID, "attachment-id", "", "Limit the export to one attachment")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
