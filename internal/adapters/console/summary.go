// Package console renders run summaries for a terminal.
package console

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/okian/demoreport/internal/domain/report"
)

// RenderSummary draws the race by period pivot with totals.
func RenderSummary(s report.Summary) string {
	headers := s.Header()
	columns := len(headers)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, columns))
	for _, row := range s.Rows() {
		tw.AppendRow(toRow(row, columns))
	}
	tw.AppendFooter(toRow(s.Footer(), columns))

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignRight
		if i == 0 {
			align = text.AlignLeft
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignFooter: align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// WriteSummary writes the rendered summary and a trailing newline to w.
func WriteSummary(w io.Writer, s report.Summary) error {
	_, err := fmt.Fprintln(w, RenderSummary(s))
	return err
}

func toRow(cells []string, columns int) table.Row {
	r := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	return r
}
