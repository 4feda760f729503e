package sqlitestream

import "encoding/binary"

// makeIndexPageProcessor walks an index B-tree purely for page
// reconciliation: cell payloads (and their overflow chains) are drained but
// never surfaced, per spec §4.5/§4.8 — index contents are out of scope.
func (w *walker) makeIndexPageProcessor() pageProcessor {
	return func(pageNum int, data []byte) error {
		bodyOffset := pageBodyOffset(pageNum)
		h, err := parseBtreePageHeader(data, bodyOffset, pageNum)
		if err != nil {
			return err
		}
		if h.Type.isTable() {
			return invalidPageTypeErr(pageNum, data[bodyOffset])
		}
		ptrs := cellPointers(data, bodyOffset, h)

		for _, off := range ptrs {
			pos := off
			if h.Type == pageTypeIndexInterior {
				leftChild := int(binary.BigEndian.Uint32(data[pos : pos+4]))
				if err := w.schedule(leftChild, w.makeIndexPageProcessor()); err != nil {
					return err
				}
				pos += 4
			}

			payloadSize, n := readVarint(data, pos)
			pos += n
			if err := w.drainIndexPayload(data, pos, pageNum, int(payloadSize)); err != nil {
				return err
			}
			if w.stopped {
				return nil
			}
		}

		if h.Type == pageTypeIndexInterior {
			return w.schedule(h.RightMostPointer, w.makeIndexPageProcessor())
		}
		return nil
	}
}

// drainIndexPayload advances over an index cell's payload, walking its
// overflow chain (if any) so those pages are reconciled, without keeping
// the decoded bytes.
func (w *walker) drainIndexPayload(data []byte, pos, pageNum, payloadSize int) error {
	local := payloadSplit(w.pageSize, payloadSize, true)
	if local >= payloadSize {
		return nil
	}
	overflowFirst := int(binary.BigEndian.Uint32(data[pos+local : pos+local+4]))
	remaining := payloadSize - local
	discard := func([]byte) error { return nil }
	held := 0
	return w.schedule(overflowFirst, w.overflowProcessor(remaining, nil, discard, &held))
}
