package sqlitestream

import "github.com/hgye/sqlitestream/internal/sqlitestream/schemahelper"

// ColumnInfo mirrors the shape of SQLite's PRAGMA table_info(...): one entry
// per declared column, in declaration order. Aliased to the schemahelper
// package's type so the schema-helper contract (spec §6.3) has a single
// owner and this package stays free to depend on it without a cycle.
type ColumnInfo = schemahelper.ColumnInfo

// Row is an ordered tuple of decoded column values. Types follow the
// serial-type table: nil, int64, float64, []byte, or string.
type Row []any

// RunStats accumulates run-level counters as the walker progresses. It is
// owned by a single Decoder and updated synchronously from the walker's
// single goroutine, so no locking is required.
type RunStats struct {
	PagesRead         int
	PagesSkipped      int
	OverflowPages     int
	PeakBytesBuffered int
	TablesYielded     int
	RowsYielded       int
}

func (s *RunStats) noteBuffered(n int) {
	if n > s.PeakBytesBuffered {
		s.PeakBytesBuffered = n
	}
}
