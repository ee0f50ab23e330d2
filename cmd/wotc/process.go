package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newProcessCommand(e *env) *cobra.Command {
	var batch int
	var preset, attachmentID string
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Extract and classify pending attachments",
		RunE: func(cmd *cobra.Command, args []string) error {
			processor, err := e.app.Processor(cmd.Context(), preset)
			if err != nil {
				return err
			}

			if strings.TrimSpace(attachmentID) != "" {
				res, err := processor.ProcessAttachmentID(cmd.Context(), attachmentID)
				if err != nil {
					return err
				}
				if res.Failed {
					return fmt.Errorf("attachment %s failed, see logs", attachmentID)
				}
				fmt.Printf("processed attachment=%s pages=%d classified=%d unclassified=%d llm=%d manual=%d\n",
					res.AttachmentID, res.Pages, res.Classified, res.Unclassified, res.LLM, res.Manual)
				return nil
			}

			if batch <= 0 {
				batch = e.app.Cfg.ProcessBatch
			}
			res, err := processor.ProcessPending(cmd.Context(), batch)
			if err != nil {
				return err
			}
			fmt.Printf("processed pending attachments=%d failed=%d pages=%d classified=%d\n",
				res.Attachments, res.Failed, res.Pages, res.Classified)
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 0, "Max attachments to process (defaults to PROCESS_BATCH)")
	cmd.Flags().StringVar(&preset, "preset", "", "Classifier preset: strict|lenient")
	cmd.Flags().StringVar(&attachmentID, "attachment-id", "", "Process a single attachment, whatever its status")
	return cmd
}
