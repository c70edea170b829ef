// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bidsflow/bidsflow/internal/config"
	"github.com/bidsflow/bidsflow/internal/setconfig"
)

// newConfigCommand creates the `bidsflow config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect grouping configurations and settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(
		newConfigValidateCommand(app),
		newConfigExplainCommand(app),
		newConfigShowCommand(app),
		newConfigSchemaCommand(app),
		&cobra.Command{
			Use:   "path",
			Short: "Show the settings file location",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				dir, err := config.ConfigDir()
				if err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, filepath.Join(dir, config.SettingsFileName))
				return nil
			},
		},
	)
	return cfgCmd
}

func newConfigValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate grouping configuration documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				doc, err := setconfig.Load(path)
				if err != nil {
					failed++
					fmt.Fprintf(app.stdout, "%s %s\n%s\n", ErrorStyle.Render("✗"), CmdStyle.Render(path),
						formatErrorForDisplay(err, app.flags.verbose))
					continue
				}
				fmt.Fprintf(app.stdout, "%s %s: %d key(s), loop over %v\n",
					SuccessStyle.Render("✓"), CmdStyle.Render(path), len(doc.Sets), doc.LoopOver)
				for _, w := range doc.Warnings {
					fmt.Fprintf(app.stdout, "  %s %s\n", WarningStyle.Render("!"), w.String())
				}
			}
			if failed > 0 {
				return &ExitError{Code: ExitConfig, Err: fmt.Errorf("%d of %d document(s) invalid", failed, len(args))}
			}
			return nil
		},
	}
}

func newConfigExplainCommand(app *App) *cobra.Command {
	var (
		style string
		width int
	)
	cmd := &cobra.Command{
		Use:   "explain <file>",
		Short: "Describe how a grouping configuration will be applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := setconfig.Load(args[0])
			if err != nil {
				return &ExitError{Code: ExitConfig, Err: err}
			}
			out, err := renderMarkdown(setconfig.Explain(doc), style, width)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&style, "style", "auto", "glamour style (auto, dark, light, notty) or raw for plain markdown")
	cmd.Flags().IntVar(&width, "width", 100, "word wrap width")
	return cmd
}

func newConfigShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(s))
			return nil
		},
	}
}

func newConfigSchemaCommand(app *App) *cobra.Command {
	var settings bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the CUE schema of grouping documents (or settings with --settings-schema)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if settings {
				_, err := app.stdout.Write(config.Schema())
				return err
			}
			_, err := app.stdout.Write(setconfig.Schema())
			return err
		},
	}
	cmd.Flags().BoolVar(&settings, "settings-schema", false, "print the settings file schema")
	return cmd
}
