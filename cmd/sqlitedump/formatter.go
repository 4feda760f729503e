package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/hgye/sqlitestream/internal/sqlitestream"
)

// outputFormatter renders a table's rows, one table at a time, to a writer.
// Adapted from the teacher's OutputFormatter (app/formatter.go): same
// console/JSON split, generalized from a materialized []*Row to the
// streaming Row values this decoder yields one at a time.
type outputFormatter interface {
	FormatHeader(table string, columns []sqlitestream.ColumnInfo) string
	FormatRow(table string, row sqlitestream.Row, columns []sqlitestream.ColumnInfo) string
	FormatFooter(table string, rowCount int) string
}

// consoleFormatter formats output as tab-separated console text.
type consoleFormatter struct{ io.Writer }

func newConsoleFormatter(w io.Writer) *consoleFormatter { return &consoleFormatter{Writer: w} }

func (cf *consoleFormatter) FormatHeader(table string, columns []sqlitestream.ColumnInfo) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return fmt.Sprintf("== %s ==\n%s\n", table, strings.Join(names, "\t"))
}

func (cf *consoleFormatter) FormatRow(table string, row sqlitestream.Row, columns []sqlitestream.ColumnInfo) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = formatValue(v)
	}
	return strings.Join(parts, "\t") + "\n"
}

func (cf *consoleFormatter) FormatFooter(table string, rowCount int) string {
	return fmt.Sprintf("(%d rows)\n\n", rowCount)
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf("x'%x'", b)
	}
	return fmt.Sprintf("%v", v)
}

// jsonFormatter formats output as newline-delimited JSON objects, one per
// row, with the table name carried on each record so a stream of tables
// can be told apart without buffering.
type jsonFormatter struct{ io.Writer }

func newJSONFormatter(w io.Writer) *jsonFormatter { return &jsonFormatter{Writer: w} }

func (jf *jsonFormatter) FormatHeader(table string, columns []sqlitestream.ColumnInfo) string {
	return ""
}

func (jf *jsonFormatter) FormatRow(table string, row sqlitestream.Row, columns []sqlitestream.ColumnInfo) string {
	var b strings.Builder
	b.WriteByte('{')
	fmt.Fprintf(&b, `"_table": %q`, table)
	for i, v := range row {
		if i < len(columns) {
			fmt.Fprintf(&b, `, %q: %s`, columns[i].Name, jsonValue(v))
		}
	}
	b.WriteByte('}')
	b.WriteByte('\n')
	return b.String()
}

func (jf *jsonFormatter) FormatFooter(table string, rowCount int) string { return "" }

func jsonValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	case []byte:
		return fmt.Sprintf("%q", fmt.Sprintf("x'%x'", x))
	default:
		return fmt.Sprintf("%v", x)
	}
}
