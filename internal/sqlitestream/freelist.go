package sqlitestream

import (
	"encoding/binary"
	"fmt"
)

// freelistTrunkProcessor reads (next_trunk, num_leaves), schedules each
// leaf page and finally the next trunk, per spec §4.5.
func (w *walker) freelistTrunkProcessor() pageProcessor {
	return func(pageNum int, data []byte) error {
		bodyOffset := pageBodyOffset(pageNum)
		if bodyOffset+8 > len(data) {
			return newDecodeError(ErrKindUnexpectedEndOfStream, "freelistTrunk",
				fmt.Errorf("freelist trunk page %d too short", pageNum), ctx1("page", pageNum))
		}
		nextTrunk := int(binary.BigEndian.Uint32(data[bodyOffset : bodyOffset+4]))
		numLeaves := int(binary.BigEndian.Uint32(data[bodyOffset+4 : bodyOffset+8]))

		for i := 0; i < numLeaves; i++ {
			off := bodyOffset + 8 + i*4
			if off+4 > len(data) {
				return newDecodeError(ErrKindUnexpectedEndOfStream, "freelistTrunk",
					fmt.Errorf("freelist trunk page %d truncated leaf list", pageNum), ctx1("page", pageNum))
			}
			leaf := int(binary.BigEndian.Uint32(data[off : off+4]))
			if err := w.schedule(leaf, w.freelistLeafProcessor()); err != nil {
				return err
			}
		}

		if nextTrunk != 0 {
			return w.schedule(nextTrunk, w.freelistTrunkProcessor())
		}
		return nil
	}
}

// freelistLeafProcessor discards the page; its only role is reconciliation.
func (w *walker) freelistLeafProcessor() pageProcessor {
	return func(pageNum int, data []byte) error { return nil }
}
