// Package tabular parses and serializes the delimited card source tables.
//
// The format is header-first: the first line names the columns, every
// following non-blank line is one record. Fields are comma-delimited; a
// field that contains the delimiter, a double quote, or a newline is
// wrapped in double quotes, and a literal quote inside a quoted field is
// written as two consecutive quotes.
package tabular

import (
	"fmt"
	"strings"
)

// Delimiter separates fields within a row.
const Delimiter = ','

// Record is one row of the source table, keyed by column name. Lookup is
// by key; ordering for re-serialization comes from the owning Table's
// header.
type Record map[string]string

// Table is the parsed form of one source file: the ordered header and the
// records zipped against it.
type Table struct {
	Header  []string
	Records []Record
}

// MalformedTableError indicates the input had no usable header line.
type MalformedTableError struct {
	Reason string
}

func (e *MalformedTableError) Error() string {
	return fmt.Sprintf("malformed table: %s", e.Reason)
}

// Parse parses delimited text into a Table. Blank lines are skipped.
// Rows shorter than the header are padded with empty fields so every
// record is total over the header key set; rows longer than the header
// have their trailing fields dropped.
func Parse(text string) (*Table, error) {
	lines := splitLines(text)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, &MalformedTableError{Reason: "missing header line"}
	}

	header := SplitFields(lines[0])
	table := &Table{
		Header:  header,
		Records: make([]Record, 0, len(lines)-1),
	}

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := SplitFields(line)
		record := make(Record, len(header))
		for i, key := range header {
			if i < len(fields) {
				record[key] = fields[i]
			} else {
				record[key] = ""
			}
		}
		table.Records = append(table.Records, record)
	}

	return table, nil
}

// splitLines splits the input into logical rows, honoring quoted fields
// that contain literal newlines. A naive line split would tear such a
// field apart.
func splitLines(text string) []string {
	var lines []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '"':
			inQuotes = !inQuotes
			current.WriteByte(c)
		case '\n':
			if inQuotes {
				current.WriteByte(c)
				continue
			}
			lines = append(lines, strings.TrimSuffix(current.String(), "\r"))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}

	if current.Len() > 0 {
		lines = append(lines, strings.TrimSuffix(current.String(), "\r"))
	}

	return lines
}

// SplitFields splits one row into fields using the quote-aware rule: a
// field is either a double-quoted run (doubled quote = one literal quote)
// or an unquoted run ending at the delimiter or line end.
func SplitFields(line string) []string {
	var fields []string
	var current strings.Builder
	i := 0

	for i <= len(line) {
		if i == len(line) {
			fields = append(fields, current.String())
			break
		}

		c := line[i]
		switch {
		case c == '"':
			// Quoted run: consume until the closing quote, folding
			// doubled quotes into one literal quote.
			i++
			for i < len(line) {
				if line[i] == '"' {
					if i+1 < len(line) && line[i+1] == '"' {
						current.WriteByte('"')
						i += 2
						continue
					}
					i++
					break
				}
				current.WriteByte(line[i])
				i++
			}
		case c == Delimiter:
			fields = append(fields, current.String())
			current.Reset()
			i++
		default:
			current.WriteByte(c)
			i++
		}
	}

	return fields
}

// EncodeField serializes one field value with the same quoting rule the
// parser applies, so parse(encode(v)) == v for any value.
func EncodeField(value string) string {
	if !strings.ContainsAny(value, string(Delimiter)+"\"\n") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// EncodeRow serializes an ordered field sequence as one row.
func EncodeRow(fields []string) string {
	encoded := make([]string, len(fields))
	for i, f := range fields {
		encoded[i] = EncodeField(f)
	}
	return strings.Join(encoded, string(Delimiter))
}

// Serialize re-emits the table as delimited text: the header row followed
// by every record in order, fields ordered by the header.
func (t *Table) Serialize() string {
	var b strings.Builder
	b.WriteString(EncodeRow(t.Header))
	for _, record := range t.Records {
		b.WriteByte('\n')
		fields := make([]string, len(t.Header))
		for i, key := range t.Header {
			fields[i] = record[key]
		}
		b.WriteString(EncodeRow(fields))
	}
	return b.String()
}
