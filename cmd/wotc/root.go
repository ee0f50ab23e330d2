package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wotc/internal/app"
	"wotc/internal/config"
)

// env is filled in by the root command before any subcommand runs.
type env struct {
	app *app.App
}

func NewRootCommand() *cobra.Command {
	e := &env{}
	rootCmd := &cobra.Command{
		Use:   "wotc",
		Short: "WOTC form classification",
		Long: `wotc ingests PDF attachments and emails, classifies each page against the
form-type catalog and exports the results to XLSX.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			debug, _ := cmd.Flags().GetBool("debug")
			app.SetupLogging(cfg, debug)

			a, err := app.Open(cfg)
			if err != nil {
				return err
			}
			e.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.app == nil {
				return nil
			}
			return e.app.Close()
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(newCatalogCommand(e))
	rootCmd.AddCommand(newIntakeCommand(e))
	rootCmd.AddCommand(newProcessCommand(e))
	rootCmd.AddCommand(newClassifyCommand(e))
	rootCmd.AddCommand(newOverrideCommand(e))
	rootCmd.AddCommand(newPageCommand(e))
	rootCmd.AddCommand(newExportCommand(e))
	rootCmd.AddCommand(newListenCommand(e))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
