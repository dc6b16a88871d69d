package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// MetricRow is one labeled reading to render in a stats table.
type MetricRow struct {
	Name  string
	Value string
}

// RenderMetrics writes rows as a kubectl-style borderless table to w.
func RenderMetrics(w io.Writer, rows []MetricRow, colors *ColorScheme) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	header := []string{"METRIC", "VALUE"}
	if !colors.Disabled {
		header[0] = colors.Header(header[0])
		header[1] = colors.Header(header[1])
	}
	table.SetHeader(header)

	for _, row := range rows {
		name := row.Name
		value := row.Value
		if !colors.Disabled {
			name = colors.Metric(name)
		}
		table.Append([]string{name, value})
	}
	table.Render()
}
