// Package sqlitestream implements a one-pass, streaming decoder for the
// SQLite database file format. It reconstructs the page-oriented B-tree
// structures from a strictly sequential chunk feed, buffering only what is
// needed to resolve forward references, and yields decoded rows grouped by
// table without requiring random access to the underlying file.
package sqlitestream

import (
	"context"
	"io"
	"iter"

	"github.com/hgye/sqlitestream/internal/sqlitestream/logging"
)

// New constructs a Decoder over the given chunk source. The source is not
// consumed until the caller starts pulling from Tables.
func New(source ChunkSource, opts ...Option) *Decoder {
	return &Decoder{cfg: newConfig(opts...), source: source}
}

// NewFromReader adapts a plain io.Reader (a file, stdin, a decompressing
// wrapper) into a Decoder, reading in ChunkSizeHint-sized chunks.
func NewFromReader(r io.Reader, opts ...Option) *Decoder {
	cfg := newConfig(opts...)
	d := &Decoder{cfg: cfg}
	d.reader = newChunkReaderFromReader(r, cfg.ChunkSizeHint)
	return d
}

// Decoder drives the streaming decode of a single SQLite file.
type Decoder struct {
	cfg    *Config
	source ChunkSource
	reader *chunkReader
	Stats  RunStats
}

func (d *Decoder) ensureReader() *chunkReader {
	if d.reader == nil {
		d.reader = newChunkReader(d.source)
	}
	return d.reader
}

// TableStream is one user table's column metadata plus a lazy row sequence
// tied to the continued walk (spec §4.8).
type TableStream struct {
	name      string
	columns   []ColumnInfo
	next      func() (rowEvent, bool)
	stop      func()
	done      bool
	peeked    *rowEvent // first row of this table, queued by Tables before yield
	lookahead *rowEvent // first row of the NEXT table, discovered while draining this one
}

func (t *TableStream) Name() string          { return t.name }
func (t *TableStream) Columns() []ColumnInfo { return t.columns }

// Rows yields this table's rows in physical B-tree traversal order. It
// stops automatically once a row belonging to a different table is pulled;
// that row is captured in t.lookahead so the parent Tables iterator can
// resume the next group without losing it.
func (t *TableStream) Rows(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			var ev rowEvent
			var ok bool
			if t.peeked != nil {
				ev, ok = *t.peeked, true
				t.peeked = nil
			} else {
				ev, ok = t.next()
			}
			if !ok {
				t.done = true
				return
			}
			if ev.table != t.name || !sameColumns(ev.columns, t.columns) {
				t.lookahead = &ev
				t.done = true
				return
			}
			if !yield(ev.row, nil) {
				return
			}
		}
	}
}

// drainRemainder is called by Tables once the caller is finished with this
// TableStream (whether by exhausting Rows, abandoning it early, or never
// reading it at all) so the walk can advance cleanly to the next group. It
// returns the first row of the next table, if one was encountered.
func (t *TableStream) drainRemainder() *rowEvent {
	if t.lookahead != nil {
		return t.lookahead
	}
	if t.done {
		return nil
	}
	for {
		var ev rowEvent
		var ok bool
		if t.peeked != nil {
			ev, ok = *t.peeked, true
			t.peeked = nil
		} else {
			ev, ok = t.next()
		}
		if !ok {
			t.done = true
			return nil
		}
		if ev.table != t.name || !sameColumns(ev.columns, t.columns) {
			t.done = true
			return &ev
		}
	}
}

func sameColumns(a, b []ColumnInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Type != b[i].Type {
			return false
		}
	}
	return true
}

// Tables drives the decode, yielding one TableStream per consecutive run of
// same-table rows, filtering internal sqlite_* tables (spec §4.8). Errors
// from the underlying walk surface as the error half of the sequence.
func (d *Decoder) Tables(ctx context.Context) iter.Seq2[*TableStream, error] {
	return func(yield func(*TableStream, error) bool) {
		reader := d.ensureReader()
		runLogger := logging.RunLogger(d.cfg.Logger, d.cfg.RunID)
		feeder, err := newPageFeeder(reader, &d.Stats, runLogger)
		if err != nil {
			yield(nil, err)
			return
		}

		helper := d.cfg.Helper

		push := func(emit func(rowEvent) bool) error {
			w := newWalker(feeder, reader, d.cfg, &d.Stats, helper, runLogger, emit)
			return w.run()
		}

		var walkErr error
		next, stop := iter.Pull(func(yieldRow func(rowEvent) bool) {
			if err := push(yieldRow); err != nil {
				walkErr = err
			}
		})
		defer stop()

		var pending *rowEvent
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			var ev rowEvent
			var ok bool
			if pending != nil {
				ev, ok = *pending, true
			} else {
				ev, ok = next()
			}
			if !ok {
				if walkErr != nil {
					yield(nil, walkErr)
				}
				return
			}
			pending = nil

			if isInternalTable(ev.table) {
				continue
			}

			ts := &TableStream{name: ev.table, columns: ev.columns}
			ts.peeked = &ev
			ts.next = next
			ts.stop = stop
			d.Stats.TablesYielded++

			if !yield(ts, nil) {
				return
			}

			pending = ts.drainRemainder()
		}
	}
}

func isInternalTable(name string) bool {
	return len(name) >= 7 && name[:7] == "sqlite_"
}
