// Package logfile parses batch files of access-log records into canonical entries.
//
// Two encodings are understood: newline-delimited JSON and CSV with a header row.
// Malformed individual records are dropped; the unit of success is the file.
package logfile

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"path"
	"strings"

	"github.com/vietdv277/logmux/pkg/types"
)

var (
	ndjsonExts = []string{".json", ".jsonl", ".ndjson"}
	csvExts    = []string{".csv"}
)

// DetectFormat decides how a file is decoded. A .csv name always wins;
// an explicit csv tag applies to names without a recognised extension.
// Everything else is NDJSON.
func DetectFormat(name, format string) string {
	ext := strings.ToLower(path.Ext(name))
	if hasExt(csvExts, ext) {
		return types.FormatCSV
	}
	if hasExt(ndjsonExts, ext) {
		return types.FormatNDJSON
	}
	if strings.EqualFold(format, types.FormatCSV) {
		return types.FormatCSV
	}
	return types.FormatNDJSON
}

// IsLogFile reports whether name carries an extension worth downloading
// for the configured format. An empty format accepts both encodings.
func IsLogFile(name, format string) bool {
	ext := strings.ToLower(path.Ext(name))
	switch strings.ToLower(format) {
	case types.FormatCSV:
		return hasExt(csvExts, ext)
	case types.FormatNDJSON, "json", "jsonl":
		return hasExt(ndjsonExts, ext)
	default:
		return hasExt(csvExts, ext) || hasExt(ndjsonExts, ext)
	}
}

// Parse decodes data according to DetectFormat(name, format)
func Parse(data []byte, name, format string) []types.LogEntry {
	if DetectFormat(name, format) == types.FormatCSV {
		return ParseCSV(data)
	}
	return ParseNDJSON(data)
}

// ParseNDJSON decodes one JSON object per non-blank line.
// Lines that are not valid JSON objects are skipped.
func ParseNDJSON(data []byte) []types.LogEntry {
	var entries []types.LogEntry
	for _, line := range splitLines(data) {
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()

		var rec map[string]any
		if err := dec.Decode(&rec); err != nil || rec == nil {
			continue
		}
		// trailing data after the object makes the line malformed
		if _, err := dec.Token(); err != io.EOF {
			continue
		}
		entries = append(entries, NormalizeRecord(rec))
	}
	return entries
}

// ParseCSV decodes a header row followed by data rows.
// Rows with fewer than two fields are skipped.
func ParseCSV(data []byte) []types.LogEntry {
	lines := splitLines(data)
	if len(lines) == 0 {
		return nil
	}

	header, err := SplitCSVLine(strings.TrimPrefix(lines[0], "\ufeff"))
	if err != nil {
		return nil
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var entries []types.LogEntry
	for _, line := range lines[1:] {
		fields, err := SplitCSVLine(line)
		if err != nil || len(fields) < 2 {
			continue
		}

		rec := make(map[string]any, len(header))
		for i, key := range header {
			if i >= len(fields) || key == "" {
				break
			}
			// Empty cells are missing values, not empty strings
			if fields[i] == "" {
				continue
			}
			rec[key] = fields[i]
		}
		entries = append(entries, NormalizeRecord(rec))
	}
	return entries
}

// SplitCSVLine splits one CSV line, honouring quoted fields with embedded
// commas and doubled-quote escapes.
func SplitCSVLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.Read()
}

// splitLines returns the non-blank lines of data with trailing CR removed
func splitLines(data []byte) []string {
	var lines []string
	for _, raw := range bytes.Split(data, []byte("\n")) {
		line := strings.TrimRight(string(raw), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func hasExt(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
