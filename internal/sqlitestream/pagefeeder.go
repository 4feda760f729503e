package sqlitestream

import (
	"fmt"
	"log/slog"
)

// pageFeeder reads the file header, then emits pages 1..NumPages in order,
// skipping pointer-map pages (when incremental-vacuum is set) and the
// lock-byte page. Page 1 is emitted as a full page-size slice whose first
// 100 bytes are the file header; callers that care about the header read
// it via Header() rather than by special-casing page 1's bytes.
type pageFeeder struct {
	reader   *chunkReader
	header   parsedHeader
	rawHdr   []byte
	lockPage int
	next     int
	stats    *RunStats
	logger   *slog.Logger
}

func newPageFeeder(reader *chunkReader, stats *RunStats, logger *slog.Logger) (*pageFeeder, error) {
	raw, err := reader.get(fileHeaderSize)
	if err != nil {
		return nil, err
	}
	h, err := parseFileHeader(raw)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	pf := &pageFeeder{
		reader:   reader,
		header:   h,
		rawHdr:   append([]byte(nil), raw...),
		lockPage: lockBytePage(h.PageSize),
		next:     1,
		stats:    stats,
		logger:   logger,
	}
	logger.Debug("file header parsed",
		"page_size", h.PageSize, "num_pages", h.NumPages,
		"incremental_vacuum", h.IncrementalVacuum, "first_freelist_page", h.FirstFreelistPage)
	return pf, nil
}

func (pf *pageFeeder) Header() parsedHeader { return pf.header }

// Next returns the next page, or ok == false once all NumPages pages have
// been emitted (the caller must then drain the underlying chunk reader).
func (pf *pageFeeder) Next() (pageNum int, page []byte, ok bool, err error) {
	for pf.next <= pf.header.NumPages {
		n := pf.next
		pf.next++

		if n != 1 && n == pf.lockPage {
			pf.stats.PagesSkipped++
			pf.logger.Debug("skipping lock-byte page", "page", n)
			if _, err := pf.reader.get(pf.header.PageSize); err != nil {
				return 0, nil, false, err
			}
			continue
		}
		if pf.header.IncrementalVacuum && n != 1 && isPointerMapPage(n, pf.header.PageSize) {
			pf.stats.PagesSkipped++
			pf.logger.Debug("skipping pointer-map page", "page", n)
			if _, err := pf.reader.get(pf.header.PageSize); err != nil {
				return 0, nil, false, err
			}
			continue
		}

		var bytesNeeded int
		if n == 1 {
			bytesNeeded = pf.header.PageSize - fileHeaderSize
		} else {
			bytesNeeded = pf.header.PageSize
		}
		body, err := pf.reader.get(bytesNeeded)
		if err != nil {
			return 0, nil, false, err
		}

		var full []byte
		if n == 1 {
			full = make([]byte, 0, pf.header.PageSize)
			full = append(full, pf.rawHdr...)
			full = append(full, body...)
		} else {
			full = body
		}

		pf.stats.PagesRead++
		return n, full, true, nil
	}
	return 0, nil, false, nil
}

// pageBodyOffset returns the offset within a page's byte slice at which the
// B-tree page header begins: 100 for page 1 (past the file header), 0
// otherwise.
func pageBodyOffset(pageNum int) int {
	if pageNum == 1 {
		return fileHeaderSize
	}
	return 0
}

func invalidPageTypeErr(pageNum int, firstByte byte) error {
	return newDecodeError(ErrKindInvalidPageType, "pagefeeder",
		fmt.Errorf("unexpected page type byte 0x%02x on page %d", firstByte, pageNum),
		ctx1("page", pageNum))
}
