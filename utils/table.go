package utils

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// RenderSummary prints the per-page counts followed by the run totals.
func RenderSummary(w io.Writer, stats SummaryStats) {
	t := NewTable(w)
	t.AppendHeader(table.Row{"Page", "Rows", "Extracted", "Skipped", "Abandoned"})
	for _, p := range stats.PerPage {
		t.AppendRow(table.Row{p.Page, p.Rows, p.Extracted, p.Skipped, p.Abandoned})
	}
	t.AppendFooter(table.Row{"Total", stats.Items, stats.Extracted, stats.Skipped, stats.Abandoned})
	t.Render()

	totals := NewTable(w)
	totals.AppendRow(table.Row{"Pages walked", stats.PagesWalked})
	totals.AppendRow(table.Row{"Residues extracted", stats.TotalResidues})
	totals.AppendRow(table.Row{"Average length", fmt.Sprintf("%.1f", stats.AverageLength)})
	if stats.Extracted > 0 {
		totals.AppendRow(table.Row{"Longest", describe(stats.LongestRecord.Page, stats.LongestRecord.Item, len(stats.LongestRecord.Sequence))})
		totals.AppendRow(table.Row{"Shortest", describe(stats.ShortestRecord.Page, stats.ShortestRecord.Item, len(stats.ShortestRecord.Sequence))})
	}
	for _, k := range stats.FailureKinds {
		totals.AppendRow(table.Row{"Abandoned (" + k.Kind + ")", k.Count})
	}
	totals.Render()
}

func describe(page, item, length int) string {
	return fmt.Sprintf("page %d item %d, %d residues", page, item, length)
}
