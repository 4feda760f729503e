package sqlitestream

import (
	"fmt"
	"log/slog"
)

// pageProcessor is the deferred work scheduled against a page number.
// Grounded on spec §9's "deferred work as tagged variants" note, realized
// here as ordinary closures rather than an explicit sum type.
type pageProcessor func(pageNum int, data []byte) error

// rowEvent is one decoded row surfaced to the public iterator layer.
type rowEvent struct {
	table   string
	columns []ColumnInfo
	row     Row
}

// walker is the B-tree traversal engine (spec §4.5). It owns the symmetric
// pending/buffered state that reconciles out-of-order B-tree references
// against the page feeder's strictly sequential emission.
type walker struct {
	feeder        *pageFeeder
	reader        *chunkReader
	pageSize      int
	maxBufferSize int
	stats         *RunStats
	schemaHelper  SchemaHelper
	logger        *slog.Logger

	pending       map[int]pageProcessor
	buffered      map[int][]byte
	bytesBuffered int

	emit    func(rowEvent) bool
	stopped bool
}

func newWalker(feeder *pageFeeder, reader *chunkReader, cfg *Config, stats *RunStats, helper SchemaHelper, logger *slog.Logger, emit func(rowEvent) bool) *walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &walker{
		feeder:        feeder,
		reader:        reader,
		pageSize:      feeder.Header().PageSize,
		maxBufferSize: cfg.MaxBufferSize,
		stats:         stats,
		schemaHelper:  helper,
		logger:        logger,
		pending:       make(map[int]pageProcessor),
		buffered:      make(map[int][]byte),
		emit:          emit,
	}
}

// arrival implements spec §4.5's arrival(n, bytes) operation.
func (w *walker) arrival(n int, data []byte) error {
	if proc, ok := w.pending[n]; ok {
		delete(w.pending, n)
		return proc(n, data)
	}
	w.buffered[n] = data
	w.bytesBuffered += len(data)
	w.stats.noteBuffered(w.bytesBuffered)
	if w.bytesBuffered > w.maxBufferSize {
		return w.budgetErr(n)
	}
	return nil
}

// schedule implements spec §4.5's schedule(n, processor) operation.
func (w *walker) schedule(n int, proc pageProcessor) error {
	if data, ok := w.buffered[n]; ok {
		delete(w.buffered, n)
		w.bytesBuffered -= len(data)
		return proc(n, data)
	}
	w.pending[n] = proc
	return nil
}

func (w *walker) budgetErr(pageNum int) error {
	return newDecodeError(ErrKindBudgetExceeded, "walker",
		fmt.Errorf("buffered bytes exceeded max_buffer_size of %d", w.maxBufferSize), ctx1("page", pageNum))
}

// run drives the walker to completion (or until the consumer stops pulling
// rows, signaled by emit returning false). It is the sole place the page
// feeder is advanced.
func (w *walker) run() error {
	w.pending[1] = w.masterPageProcessor()
	firstFreelist := w.feeder.Header().FirstFreelistPage
	if firstFreelist != 0 {
		w.pending[firstFreelist] = w.freelistTrunkProcessor()
	}

	for {
		n, data, ok, err := w.feeder.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := w.arrival(n, data); err != nil {
			return err
		}
		if w.stopped {
			return nil
		}
	}

	if err := w.reader.drain(); err != nil {
		return err
	}

	if len(w.pending) != 0 || len(w.buffered) != 0 || w.bytesBuffered != 0 {
		return newDecodeError(ErrKindUnreconciledPage, "walker",
			fmt.Errorf("stream ended with %d pending processor(s), %d buffered page(s), %d bytes still held",
				len(w.pending), len(w.buffered), w.bytesBuffered), nil)
	}
	w.logger.Debug("walk reconciled cleanly",
		"overflow_pages", w.stats.OverflowPages, "peak_bytes_buffered", w.stats.PeakBytesBuffered)
	return nil
}
