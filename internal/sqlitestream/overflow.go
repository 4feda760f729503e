package sqlitestream

import (
	"encoding/binary"
	"fmt"
)

// overflowProcessor implements the overflow assembler (spec §4.4) as a
// co-routine of the walker: it is scheduled against the next overflow page
// number and, each time that page arrives, copies min(remaining,
// page_size-4) bytes into the queue, then either terminates (pointer == 0
// or the payload is fully assembled) or re-schedules itself against the
// next page. held accumulates every byte this assembly has charged to
// w.bytesBuffered so it can be released in one place when the payload is
// handed to finisher; grounded on dotlite's overflow.go reader, adapted
// from its pull (io.Reader) shape to this walker's push model since pages
// here arrive out of order and cannot be pulled on demand.
func (w *walker) overflowProcessor(remaining int, queue []byte, finisher func([]byte) error, held *int) pageProcessor {
	return func(pageNum int, data []byte) error {
		if len(data) < 4 {
			return newDecodeError(ErrKindUnexpectedEndOfStream, "overflow",
				fmt.Errorf("overflow page %d shorter than the 4-byte link", pageNum), ctx1("page", pageNum))
		}

		chunk := w.pageSize - 4
		take := remaining
		if take > chunk {
			take = chunk
		}
		if take < 0 {
			take = 0
		}

		newQueue := append(queue, data[4:4+take]...)
		w.bytesBuffered += take
		*held += take
		w.stats.noteBuffered(w.bytesBuffered)
		if w.bytesBuffered > w.maxBufferSize {
			return w.budgetErr(pageNum)
		}

		remaining -= take
		next := int(binary.BigEndian.Uint32(data[0:4]))
		w.stats.OverflowPages++

		if next == 0 || remaining <= 0 {
			w.bytesBuffered -= *held
			return finisher(newQueue)
		}
		return w.schedule(next, w.overflowProcessor(remaining, newQueue, finisher, held))
	}
}
