// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bidsflow/bidsflow/internal/filelist"
	"github.com/bidsflow/bidsflow/internal/issue"
)

func newScanCommand(app *App) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "scan <dataset>",
		Short: "Write a file list for a BIDS dataset directory",
		Long: `Write a file list for a BIDS dataset directory.

Hidden entries and the derivatives, sourcedata and code directories are
skipped. The file list can be edited and passed to 'bidsflow group --files'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := app.load(cmd.Context())
			if err != nil {
				return err
			}

			f := filelist.Format(format)
			if output != "" && !cmd.Flags().Changed("format") {
				if f, err = filelist.DetectFormat(output); err != nil {
					return &ExitError{Code: ExitUsage, Err: err}
				}
			}

			files, err := filelist.Scan(cmd.Context(), args[0])
			if err != nil {
				return issue.WrapWithContext(err, "scan dataset", args[0])
			}
			counts := filelist.Suffixes(files)
			suffixes := make([]string, 0, len(counts))
			for s, n := range counts {
				suffixes = append(suffixes, fmt.Sprintf("%s=%d", s, n))
			}
			slices.Sort(suffixes)
			logger.Info("dataset scanned", "root", args[0], "files", len(files), "suffixes", strings.Join(suffixes, " "))

			w := app.stdout
			if output != "" {
				out, err := os.Create(output)
				if err != nil {
					return err
				}
				defer out.Close()
				w = out
			}
			return filelist.Write(w, files, f)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(filelist.FormatYAML), "file list format: json, yaml, toml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: stdout; format inferred from the extension)")
	return cmd
}
