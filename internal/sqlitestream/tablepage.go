package sqlitestream

import "encoding/binary"

// tableSink receives each fully-assembled table-leaf payload, already
// reconciled across any overflow chain, along with the rowid from its
// enclosing cell.
type tableSink func(rowid int64, payload []byte) error

// makeTableBtreeProcessor returns a processor that walks a table B-tree
// (interior and leaf pages alike) rooted wherever it is scheduled,
// delivering every leaf payload to sink.
func (w *walker) makeTableBtreeProcessor(sink tableSink) pageProcessor {
	return func(pageNum int, data []byte) error {
		bodyOffset := pageBodyOffset(pageNum)
		h, err := parseBtreePageHeader(data, bodyOffset, pageNum)
		if err != nil {
			return err
		}
		if !h.Type.isTable() {
			return invalidPageTypeErr(pageNum, data[bodyOffset])
		}
		ptrs := cellPointers(data, bodyOffset, h)

		if h.Type == pageTypeTableLeaf {
			for _, off := range ptrs {
				if err := w.decodeTableLeafCell(data, off, pageNum, sink); err != nil {
					return err
				}
				if w.stopped {
					return nil
				}
			}
			return nil
		}

		for _, off := range ptrs {
			leftChild := int(binary.BigEndian.Uint32(data[off : off+4]))
			if err := w.schedule(leftChild, w.makeTableBtreeProcessor(sink)); err != nil {
				return err
			}
			if w.stopped {
				return nil
			}
		}
		return w.schedule(h.RightMostPointer, w.makeTableBtreeProcessor(sink))
	}
}

// decodeTableLeafCell decodes one table-leaf cell: payload_size (varint),
// rowid (varint), then either the full payload or an initial slice plus a
// 4-byte overflow pointer.
func (w *walker) decodeTableLeafCell(data []byte, off, pageNum int, sink tableSink) error {
	pos := off
	payloadSize, n1 := readVarint(data, pos)
	pos += n1
	rowid, n2 := readVarint(data, pos)
	pos += n2

	local := payloadSplit(w.pageSize, int(payloadSize), false)
	if local >= int(payloadSize) {
		payload := data[pos : pos+int(payloadSize)]
		return sink(rowid, payload)
	}

	initial := append([]byte(nil), data[pos:pos+local]...)
	overflowFirst := int(binary.BigEndian.Uint32(data[pos+local : pos+local+4]))
	remaining := int(payloadSize) - local

	held := len(initial)
	w.bytesBuffered += held
	w.stats.noteBuffered(w.bytesBuffered)
	if w.bytesBuffered > w.maxBufferSize {
		return w.budgetErr(pageNum)
	}

	finisher := func(tail []byte) error {
		full := append(initial, tail...)
		return sink(rowid, full)
	}
	heldTotal := held
	return w.schedule(overflowFirst, w.overflowProcessor(remaining, nil, finisher, &heldTotal))
}
