package profile

import "strings"

// ParseCSV splits CSV text into rows of fields.
//
// A double quote toggles the inside-quoted-field state and a comma only separates
// fields outside quotes. Escaped quotes ("") are not supported: each quote is a
// toggle. Finished fields are trimmed and lose one leading and one trailing quote.
// Blank lines are skipped.
func ParseCSV(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, parseLine(line))
	}
	return rows
}

func parseLine(line string) []string {
	var (
		row      []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			row = append(row, cleanField(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(row, cleanField(current.String()))
}

func cleanField(field string) string {
	field = strings.TrimSpace(field)
	field = strings.TrimPrefix(field, `"`)
	return strings.TrimSuffix(field, `"`)
}

// nonEmptyLines counts lines that contain something other than whitespace
func nonEmptyLines(text string) int {
	n := 0
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
