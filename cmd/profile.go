package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kris-hansen/scrollystory/utils/input"
	"github.com/kris-hansen/scrollystory/utils/profile"
)

var profileJSON bool

var profileCmd = &cobra.Command{
	Use:   "profile <csv>",
	Short: "Show the data profile sent to the model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataset, err := loadInput(cmd, args[0], input.DatasetExtensions)
		if err != nil {
			return err
		}
		p, err := profile.FromCSV(dataset.Text())
		if err != nil {
			return fmt.Errorf("%s: %w", dataset.Name, err)
		}

		if profileJSON {
			out, err := p.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}
		renderProfile(cmd.OutOrStdout(), dataset.Name, p)
		return nil
	},
}

func renderProfile(w io.Writer, name string, p *profile.Profile) {
	fmt.Fprintf(w, "%s: %d rows, %d columns\n", name, p.RowCount, p.ColumnCount)
	if p.TruncatedColumns > 0 {
		fmt.Fprintf(w, "(%d columns beyond the first %d are not profiled)\n", p.TruncatedColumns, profile.MaxColumns)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Count", "Missing", "Unique", "Summary"})
	for _, col := range p.Columns {
		t.AppendRow(table.Row{col.Name, col.Type, col.Count, col.Missing, col.Unique, columnSummary(col)})
	}
	t.Render()
}

func columnSummary(col profile.Column) string {
	switch {
	case col.Min != nil && col.Max != nil && col.Mean != nil:
		return fmt.Sprintf("min %g, max %g, mean %.4g", *col.Min, *col.Max, *col.Mean)
	case col.Earliest != "":
		return fmt.Sprintf("%s to %s", col.Earliest, col.Latest)
	case len(col.TopValues) > 0:
		var top []string
		for i, v := range col.TopValues {
			if i == 3 {
				break
			}
			top = append(top, fmt.Sprintf("%s (%d)", v.Value, v.Count))
		}
		return strings.Join(top, ", ")
	default:
		return strings.Join(col.Samples, ", ")
	}
}

func init() {
	profileCmd.Flags().BoolVar(&profileJSON, "json", false, "print the profile as JSON")
	rootCmd.AddCommand(profileCmd)
}
