// Package schemahelper implements the external schema-helper contract from
// spec §6.3 by embedding github.com/xwb1989/sqlparser against normalized
// CREATE TABLE SQL text, the same library and normalization approach the
// teacher repo uses for its own schema parsing (database.go's
// parseTableSchema / normalizeSQLiteToMySQL). It never shells out to a real
// sqlite3 instance, keeping the decoder dependency-closed.
package schemahelper

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// ColumnInfo mirrors the shape of SQLite's PRAGMA table_info(...): one
// entry per declared column, in declaration order.
type ColumnInfo struct {
	CID     int
	Name    string
	Type    string
	NotNull bool
	Default any
	PK      int
}

// Helper implements sqlitestream.SchemaHelper.
type Helper struct{}

// New returns the default sqlparser-backed schema helper.
func New() *Helper { return &Helper{} }

// Columns parses a CREATE TABLE statement and returns its column
// descriptors. tableName is accepted for interface symmetry with
// PRAGMA table_info(tbl) but is not itself required to parse the SQL: the
// sqlparser DDL statement already names its own table.
func (h *Helper) Columns(createTableSQL, tableName string) ([]ColumnInfo, error) {
	normalized := normalizeSQLiteToMySQL(createTableSQL)

	stmt, err := sqlparser.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse schema for table %q: %w", tableName, err)
	}

	ddl, ok := stmt.(*sqlparser.DDL)
	if !ok || ddl.Action != "create" || ddl.TableSpec == nil {
		return nil, fmt.Errorf("table %q: not a CREATE TABLE statement", tableName)
	}

	columns := make([]ColumnInfo, len(ddl.TableSpec.Columns))
	for i, col := range ddl.TableSpec.Columns {
		pk := 0
		if col.Type.KeyOpt == sqlparser.ColKeyPrimary || bool(col.Type.Autoincrement) {
			pk = 1
		}

		var def any
		if col.Type.Default != nil {
			def = string(col.Type.Default.Val)
		}

		columns[i] = ColumnInfo{
			CID:     i,
			Name:    col.Name.String(),
			Type:    col.Type.Type,
			NotNull: bool(col.Type.NotNull),
			Default: def,
			PK:      pk,
		}
	}
	return columns, nil
}

// normalizeSQLiteToMySQL rewrites SQLite-specific CREATE TABLE syntax into
// something xwb1989/sqlparser (a MySQL-dialect parser) accepts. Grounded
// on the teacher's normalizeSQLiteToMySQL in database.go/sqlite_db.go.
func normalizeSQLiteToMySQL(sql string) string {
	normalized := strings.ReplaceAll(sql, `"`, "")
	normalized = strings.ReplaceAll(normalized, "primary key autoincrement", "AUTO_INCREMENT PRIMARY KEY")
	normalized = strings.ReplaceAll(normalized, "PRIMARY KEY AUTOINCREMENT", "AUTO_INCREMENT PRIMARY KEY")
	normalized = strings.ReplaceAll(normalized, "Primary Key Autoincrement", "AUTO_INCREMENT PRIMARY KEY")
	return strings.TrimSpace(normalized)
}
