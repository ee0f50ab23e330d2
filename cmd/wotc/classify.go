package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wotc/internal/catalog"
	"wotc/internal/classifier"
	"wotc/internal/pipeline"
	"wotc/internal/util"
)

func newClassifyCommand(e *env) *cobra.Command {
	var file, text, filename, preset string
	var page int
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a PDF or a piece of text without storing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (text == "") {
				return fmt.Errorf("exactly one of --file or --text is required")
			}

			p := e.app.Preset
			if strings.TrimSpace(preset) != "" {
				var err error
				if p, err = classifier.PresetByName(preset); err != nil {
					return err
				}
			}

			defs, err := catalog.Load(e.app.DB)
			if err != nil {
				return err
			}
			if len(defs) == 0 {
				for _, def := range catalog.DefaultDefinitions() {
					defs = append(defs, catalog.NormalizeDefinition(def))
				}
			}

			if file != "" {
				pages, err := pipeline.ClassifyFile(file, p, defs)
				if err != nil {
					return err
				}
				return printJSON(pages)
			}

			var pageNumber *int
			if page > 0 {
				pageNumber = util.IntPtr(page)
			}
			return printJSON(pipeline.ClassifyText(text, filename, pageNumber, p, defs))
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "PDF file to classify page by page")
	cmd.Flags().StringVar(&text, "text", "", "Raw text to classify")
	cmd.Flags().StringVar(&filename, "filename", "", "Filename hint for --text")
	cmd.Flags().IntVar(&page, "page", 0, "Page number hint for --text")
	cmd.Flags().StringVar(&preset, "preset", "", "Classifier preset: strict|lenient")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

