// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/bidsflow/bidsflow/internal/entity"
)

func newEntitiesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the BIDS entity names bidsflow understands",
		Long: `List the BIDS entity names bidsflow understands.

Configuration documents and file lists may use either the long name or the
short file name key; both refer to the same entity.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			pairs := entity.Table()
			rows := make([][]string, 0, len(pairs))
			for _, p := range pairs {
				rows = append(rows, []string{p[0], p[1]})
			}
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(tableBorderStyle).
				Headers("ENTITY", "KEY").
				Rows(rows...).
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return tableHeaderStyle
					}
					return tableCellStyle
				})
			fmt.Fprintln(app.stdout, t.Render())
			return nil
		},
	}
}
