package sqlitestream

import "strings"

// SchemaHelper is the external collaborator from spec §6.3: given the exact
// CREATE TABLE SQL text and the table's name, it returns the ordered column
// descriptors equivalent to PRAGMA table_info. The core treats it as an
// opaque, deterministic, side-effect-free dependency.
type SchemaHelper interface {
	Columns(createTableSQL, tableName string) ([]ColumnInfo, error)
}

// masterPageProcessor decodes sqlite_schema rows (fixed shape: type, name,
// tbl_name, rootpage, sql) and dispatches each to handleSchemaRow.
func (w *walker) masterPageProcessor() pageProcessor {
	sink := func(rowid int64, payload []byte) error {
		row, err := decodeRecord(payload, rowid, -1)
		if err != nil {
			return err
		}
		return w.handleSchemaRow(row)
	}
	return w.makeTableBtreeProcessor(sink)
}

// handleSchemaRow implements spec §4.7: a "table" row invokes the schema
// helper and schedules its root page as a table page; an "index" row
// schedules its root page as an index page; anything else is ignored.
func (w *walker) handleSchemaRow(row Row) error {
	if len(row) < 5 {
		return nil
	}
	typ, _ := row[0].(string)
	name, _ := row[1].(string)
	rootPage := toPageNumber(row[3])
	sqlText, _ := row[4].(string)

	switch typ {
	case "table":
		if rootPage == 0 {
			return nil
		}
		columns, err := w.schemaHelper.Columns(sqlText, name)
		if err != nil {
			return newDecodeError(ErrKindMalformedHeader, "schemaHelper.Columns", err, ctx1("table", name))
		}
		ipkIndex := rowidAliasIndex(columns)

		tableName := name
		sink := func(rowid int64, payload []byte) error {
			decoded, err := decodeRecord(payload, rowid, ipkIndex)
			if err != nil {
				return err
			}
			w.stats.RowsYielded++
			if !w.emit(rowEvent{table: tableName, columns: columns, row: decoded}) {
				w.stopped = true
			}
			return nil
		}
		return w.schedule(rootPage, w.makeTableBtreeProcessor(sink))

	case "index":
		if rootPage == 0 {
			return nil
		}
		return w.schedule(rootPage, w.makeIndexPageProcessor())

	default:
		return nil
	}
}

// rowidAliasIndex implements spec §4.7's rowid-alias rule: if exactly one
// column is declared pk != 0 with an (case-insensitive) "integer" type, its
// index is returned; otherwise -1 (no substitution). Note this does NOT
// require AUTOINCREMENT — a bare "INTEGER PRIMARY KEY" column qualifies.
func rowidAliasIndex(columns []ColumnInfo) int {
	idx, count := -1, 0
	for i, c := range columns {
		if c.PK != 0 && strings.EqualFold(c.Type, "integer") {
			idx = i
			count++
		}
	}
	if count == 1 {
		return idx
	}
	return -1
}

func toPageNumber(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
