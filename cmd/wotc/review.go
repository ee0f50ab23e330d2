package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wotc/internal/util"
)

func newOverrideCommand(e *env) *cobra.Command {
	var pageID, formType, by string
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Set a page's form type by hand; later runs will not change it",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := e.app.DB.GetFormTypeByName(strings.TrimSpace(formType))
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("unknown form type %q", formType)
			}
			row, err := e.app.DB.OverrideClassification(pageID, rec.ID, by)
			if err != nil {
				return err
			}
			fmt.Printf("page %s set to %s by %s\n", row.PageID, row.FormTypeName, by)
			return nil
		},
	}
	cmd.Flags().StringVar(&pageID, "page-id", "", "Page id")
	cmd.Flags().StringVar(&formType, "form-type", "", "Form type name, e.g. 8850")
	cmd.Flags().StringVar(&by, "by", "", "Reviewer recorded as last modifier")
	_ = cmd.MarkFlagRequired("page-id")
	_ = cmd.MarkFlagRequired("form-type")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newPageCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Inspect and amend stored pages",
	}
	cmd.AddCommand(newPageShowCommand(e))
	cmd.AddCommand(newPageOCRCommand(e))
	return cmd
}

func newPageShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <page-id>",
		Short: "Print a page's text and its current classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := e.app.DB.GetPage(args[0])
			if err != nil {
				return err
			}
			cls, err := e.app.DB.GetClassification(page.ID)
			if err != nil {
				return err
			}

			fmt.Printf("page %s attachment=%s number=%d\n", page.ID, page.AttachmentID, page.PageNumber)
			if cls == nil {
				fmt.Println("classification: none")
			} else {
				fmt.Printf("classification: %s confidence=%.4f source=%s manual=%t by=%s\n",
					cls.FormTypeName, cls.ConfidenceScore, cls.ExtractedData.Source, cls.ManualOverride, util.Deref(cls.LastModifiedBy))
			}
			fmt.Printf("\n--- text layer ---\n%s\n", page.TextContent)
			if ocr := util.Deref(page.OCRText); ocr != "" {
				fmt.Printf("\n--- ocr ---\n%s\n", ocr)
			}
			return nil
		},
	}
}

func newPageOCRCommand(e *env) *cobra.Command {
	var pageID, file string
	cmd := &cobra.Command{
		Use:   "ocr",
		Short: "Attach OCR text to a page and queue its attachment for reprocessing",
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if err := e.app.DB.SetPageOCR(pageID, string(blob)); err != nil {
				return err
			}
			fmt.Printf("ocr text stored for page %s (%d bytes)\n", pageID, len(blob))
			return nil
		},
	}
	cmd.Flags().StringVar(&pageID, "page-id", "", "Page id")
	cmd.Flags().StringVar(&file, "file", "", "Text file with the OCR output")
	_ = cmd.MarkFlagRequired("page-id")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
