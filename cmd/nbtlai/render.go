package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/ZaguanLabs/nbtlai"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const maxCellText = 60

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render() + "\n"
}

// renderSpans lists the spans a dry run found.
func renderSpans(spans []nbtlai.SpanRef) string {
	rows := make([][]string, len(spans))
	for i, s := range spans {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(s.CellIndex),
			string(s.CellKind),
			truncate(s.Text, maxCellText),
		}
	}
	return renderTable(
		[]string{"#", "Cell", "Kind", "Text"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
	)
}

func renderStats(result *nbtlai.ProcessedDocument) string {
	rows := [][]string{
		{"Cells", strconv.Itoa(result.TotalCells)},
		{"Markdown cells", strconv.Itoa(result.MarkdownCells)},
		{"Code cells", strconv.Itoa(result.CodeCells)},
		{"Spans", strconv.Itoa(result.TotalSpans)},
		{"Translated", strconv.Itoa(result.TranslatedCount)},
		{"From cache", strconv.Itoa(result.CachedCount)},
	}
	return renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}

func renderDiffStats(stats nbtlai.DiffStats) string {
	rows := [][]string{
		{"Unchanged", strconv.Itoa(stats.Unchanged)},
		{"Added", strconv.Itoa(stats.Added)},
		{"Removed", strconv.Itoa(stats.Removed)},
		{"Modified", strconv.Itoa(stats.Modified)},
	}
	return renderTable([]string{"Change", "Spans"}, rows, []columnAlignment{alignLeft, alignRight})
}

// renderDiffChanges shows one row per changed span, marked +, ~ or -.
func renderDiffChanges(diff *nbtlai.DiffResult) string {
	var rows [][]string
	for _, s := range diff.Added {
		rows = append(rows, []string{"+", strconv.Itoa(s.CellIndex), quote(s.Text, maxCellText)})
	}
	for _, m := range diff.Modified {
		rows = append(rows, []string{"~", strconv.Itoa(m.New.CellIndex),
			quote(m.Old.Text, maxCellText/2) + " -> " + quote(m.New.Text, maxCellText/2)})
	}
	for _, s := range diff.Removed {
		rows = append(rows, []string{"-", strconv.Itoa(s.CellIndex), quote(s.Text, maxCellText)})
	}
	return renderTable([]string{"", "Cell", "Text"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft})
}

// truncate shortens s to at most limit runes and flattens newlines.
func truncate(s string, limit int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func quote(s string, limit int) string {
	return fmt.Sprintf("%q", truncate(s, limit))
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
