package ui

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vietdv277/logmux/pkg/types"
)

type cell struct {
	text  string
	style lipgloss.Style
}

type column struct {
	header string
	width  int
}

func border(left, mid, right string, cols []column) string {
	var sb strings.Builder
	sb.WriteString(BorderStyle.Render(left))
	for i, c := range cols {
		sb.WriteString(BorderStyle.Render(strings.Repeat(Horizontal, c.width+2)))
		if i < len(cols)-1 {
			sb.WriteString(BorderStyle.Render(mid))
		}
	}
	sb.WriteString(BorderStyle.Render(right))
	sb.WriteString("\n")
	return sb.String()
}

// renderTable draws a box table with a header row
func renderTable(cols []column, rows [][]cell) string {
	var sb strings.Builder

	sb.WriteString(border(TopLeft, TopT, TopRight, cols))

	sb.WriteString(BorderStyle.Render(Vertical))
	for _, c := range cols {
		sb.WriteString(HeaderStyle.Render(" " + padRight(c.header, c.width) + " "))
		sb.WriteString(BorderStyle.Render(Vertical))
	}
	sb.WriteString("\n")

	sb.WriteString(border(LeftT, Cross, RightT, cols))

	for _, row := range rows {
		sb.WriteString(BorderStyle.Render(Vertical))
		for i, c := range cols {
			sb.WriteString(row[i].style.Render(" " + padRight(row[i].text, c.width) + " "))
			sb.WriteString(BorderStyle.Render(Vertical))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(border(BottomLeft, BottomT, BottomRight, cols))
	return sb.String()
}

var entryColumns = []column{
	{"Time", 23},
	{"Source", 14},
	{"App", 14},
	{"Method", 7},
	{"Status", 6},
	{"ms", 7},
	{"URL", 40},
}

// RenderEntries draws a merged page followed by per-source errors and a summary
func RenderEntries(page *types.MergedPage) string {
	rows := make([][]cell, 0, len(page.Content))
	for _, e := range page.Content {
		rows = append(rows, []cell{
			{e.RequestTime.Local().Format("2006-01-02 15:04:05.000"), MutedStyle},
			{formatOptional(e.SourceName), SourceStyle(e.SourceColor)},
			{formatOptional(e.App()), NameStyle},
			{e.Method, TextStyle},
			{strconv.Itoa(e.ResponseStatus), StatusStyle(e.ResponseStatus)},
			{strconv.FormatInt(e.ProcessingTimeMs, 10), TextStyle},
			{e.URL, TextStyle},
		})
	}

	var sb strings.Builder
	sb.WriteString(renderTable(entryColumns, rows))
	sb.WriteString(RenderSourceErrors(page.Errors))

	shown := len(page.Content)
	sb.WriteString(fmt.Sprintf("  %d entries shown, %d total, page %d/%d\n",
		shown, page.TotalElements, page.Page+1, max(page.TotalPages, 1)))
	return sb.String()
}

// RenderSourceErrors lists the sources that failed a merged query
func RenderSourceErrors(errs []types.SourceError) string {
	var sb strings.Builder
	for _, e := range errs {
		sb.WriteString(ErrorStyle.Render("  ✗ "+e.SourceName) + MutedStyle.Render(": "+e.Message) + "\n")
	}
	return sb.String()
}

// PrintEntries writes RenderEntries to w
func PrintEntries(w io.Writer, page *types.MergedPage) {
	fmt.Fprint(w, RenderEntries(page))
}

var sourceColumns = []column{
	{"ID", 36},
	{"Name", 20},
	{"Type", 11},
	{"State", 10},
	{"Target", 44},
}

// SourceTarget summarizes where a source reads from
func SourceTarget(src types.LogSource) string {
	switch src.Type {
	case types.SourceSupabase:
		if src.DatabaseURL != "" {
			return "postgres/" + formatOptional(src.Table)
		}
		return src.ProjectURL + " " + formatOptional(src.Table)
	case types.SourceSupabaseS3:
		return src.Bucket + "/" + src.Prefix
	case types.SourceFile:
		if src.FileMode() {
			return src.BaseURL + src.BasePath + " " + src.Directory
		}
	}
	return src.BaseURL + src.BasePath
}

// PrintSources prints configured sources, marking the selected ones
func PrintSources(w io.Writer, sources []types.LogSource, selected []string) {
	rows := make([][]cell, 0, len(sources))
	for _, src := range sources {
		state, style := "○ off", MutedStyle
		if src.Enabled {
			state, style = "● on", SuccessStyle
		}
		if slices.Contains(selected, src.ID) {
			state += " *"
		}
		rows = append(rows, []cell{
			{src.ID, IDStyle},
			{src.Name, SourceStyle(src.Color)},
			{string(src.Type), TextStyle},
			{state, style},
			{SourceTarget(src), MutedStyle},
		})
	}
	fmt.Fprint(w, renderTable(sourceColumns, rows))
	fmt.Fprintf(w, "  %d sources, %d selected (*)\n", len(sources), len(selected))
}

// PrintStats prints aggregate statistics for one source
func PrintStats(w io.Writer, name string, s *types.Stats) {
	fmt.Fprintln(w, HeaderStyle.Render(" "+name))
	fmt.Fprintf(w, "  %-10s %s\n", MutedStyle.Render("Total:"), strconv.FormatInt(s.TotalCount, 10))
	fmt.Fprintf(w, "  %-10s %.1f ms\n", MutedStyle.Render("Avg:"), s.AvgProcessingTimeMs)
	fmt.Fprintf(w, "  %-10s %d ms\n", MutedStyle.Render("Max:"), s.MaxProcessingTimeMs)
	fmt.Fprintf(w, "  %-10s %d ms\n", MutedStyle.Render("P99:"), s.P99ProcessingTimeMs)

	for _, group := range []struct {
		title  string
		counts map[string]int64
	}{
		{"By status", s.CountByStatus},
		{"By method", s.CountByMethod},
		{"By app", s.CountByAppName},
	} {
		if len(group.counts) == 0 {
			continue
		}
		rows := make([][]cell, 0, len(group.counts))
		for _, k := range slices.Sorted(maps.Keys(group.counts)) {
			style := TextStyle
			if group.title == "By status" {
				n, _ := strconv.Atoi(k)
				style = StatusStyle(n)
			}
			rows = append(rows, []cell{{k, style}, {strconv.FormatInt(group.counts[k], 10), TextStyle}})
		}
		fmt.Fprint(w, renderTable([]column{{group.title, 20}, {"Count", 10}}, rows))
	}
}

const detailLabelWidth = 16

// PrintEntry prints every field of one entry
func PrintEntry(w io.Writer, e *types.LogEntry) {
	port := "-"
	if e.ServerPort != nil {
		port = strconv.Itoa(*e.ServerPort)
	}
	fields := []struct {
		label string
		value string
		style lipgloss.Style
	}{
		{"ID:", e.ID, IDStyle},
		{"App:", formatOptional(e.App()), NameStyle},
		{"Request:", e.Method + " " + e.URL, TextStyle},
		{"Status:", strconv.Itoa(e.ResponseStatus), StatusStyle(e.ResponseStatus)},
		{"Requested at:", formatTime(e.RequestTime), MutedStyle},
		{"Responded at:", formatTime(e.ResponseTime), MutedStyle},
		{"Duration:", strconv.FormatInt(e.ProcessingTimeMs, 10) + " ms", TextStyle},
		{"Server:", formatOptional(e.Server()) + ":" + port, TextStyle},
		{"Remote:", formatOptional(e.Remote()), TextStyle},
		{"Content type:", formatOptional(deref(e.ResponseType)), TextStyle},
	}
	for _, f := range fields {
		fmt.Fprintln(w, MutedStyle.Render(" "+padRight(f.label, detailLabelWidth))+f.style.Render(f.value))
	}

	if len(e.QueryParams) > 0 {
		fmt.Fprintln(w, HeaderStyle.Render(" Query"))
		for _, k := range slices.Sorted(maps.Keys(e.QueryParams)) {
			fmt.Fprintf(w, "   %s = %s\n", k, strings.Join(e.QueryParams[k], ", "))
		}
	}
	if len(e.RequestHeaders) > 0 {
		fmt.Fprintln(w, HeaderStyle.Render(" Headers"))
		for _, k := range slices.Sorted(maps.Keys(e.RequestHeaders)) {
			fmt.Fprintf(w, "   %s: %s\n", k, e.RequestHeaders[k])
		}
	}
	if e.RequestBody != nil {
		fmt.Fprintln(w, HeaderStyle.Render(" Request body"))
		fmt.Fprintln(w, "   "+*e.RequestBody)
	}
	if e.ResponseBody != nil {
		fmt.Fprintln(w, HeaderStyle.Render(" Response body"))
		fmt.Fprintln(w, "   "+*e.ResponseBody)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05.000 MST")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
