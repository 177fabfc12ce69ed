package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saltyorg/regshell/internal/export"
	"github.com/saltyorg/regshell/internal/logging"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:       "export <" + strings.Join(export.Names(), "|") + ">",
		Short:     "Export a listing to an .xlsx workbook",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: export.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logging.Apply(verbosity, logging.Options{Console: os.Stderr, Quiet: true, File: cfg.Log})

			if err := cfg.Validate(); err != nil {
				return err
			}

			name := args[0]
			if output == "" {
				output = name + ".xlsx"
			}

			svc, _, cleanup, err := newService(cfg, "export")
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signalContext()
			defer stop()

			sheet, lines, err := export.Listing(ctx, svc, name)
			if err != nil {
				return err
			}
			if err := export.WriteFile(output, sheet, lines); err != nil {
				return err
			}

			fmt.Printf("Wrote %d rows to %s.\n", len(lines), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <listing>.xlsx)")

	return cmd
}
