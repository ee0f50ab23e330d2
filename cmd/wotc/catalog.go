package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wotc/internal/catalog"
)

func newCatalogCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the form-type catalog",
	}
	cmd.AddCommand(newCatalogSeedCommand(e))
	cmd.AddCommand(newCatalogListCommand(e))
	cmd.AddCommand(newCatalogDeleteCommand(e))
	return cmd
}

func newCatalogSeedCommand(e *env) *cobra.Command {
	var file string
	var update bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the catalog from the built-in definitions or a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = e.app.Cfg.CatalogFile
			}
			defs := catalog.DefaultDefinitions()
			if file != "" {
				loaded, err := catalog.LoadFile(file)
				if err != nil {
					return err
				}
				defs = loaded
			}

			res, err := catalog.NewSeedService(e.app.DB).Seed(cmd.Context(), defs, update)
			if err != nil {
				return err
			}
			fmt.Printf("catalog seeded created=%d updated=%d skipped=%d\n", res.Created, res.Updated, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML catalog file (defaults to CATALOG_FILE, then built-in definitions)")
	cmd.Flags().BoolVar(&update, "update", false, "Rewrite existing form types instead of skipping them")
	return cmd
}

func newCatalogListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog form types",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := catalog.Load(e.app.DB)
			if err != nil {
				return err
			}
			if len(defs) == 0 {
				fmt.Println("catalog is empty, run 'wotc catalog seed'")
				return nil
			}
			for _, def := range defs {
				fmt.Printf("%s\t%s\tkeywords=%d fields=%d patterns=%s\n",
					def.ID, def.Name, len(def.Keywords), len(def.RequiredFields), strings.Join(def.FilenamePatterns, ","))
			}
			return nil
		},
	}
}

func newCatalogDeleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a form type that no classification references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := e.app.DB.GetFormTypeByName(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("unknown form type %q", args[0])
			}
			if err := e.app.DB.DeleteFormType(rec.ID); err != nil {
				return err
			}
			fmt.Printf("deleted form type %s\n", rec.Name)
			return nil
		},
	}
}
