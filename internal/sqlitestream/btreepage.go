package sqlitestream

import (
	"encoding/binary"
	"fmt"
)

type pageType byte

const (
	pageTypeIndexInterior pageType = 0x02
	pageTypeTableInterior pageType = 0x05
	pageTypeIndexLeaf     pageType = 0x0A
	pageTypeTableLeaf     pageType = 0x0D
)

func (t pageType) isInterior() bool {
	return t == pageTypeIndexInterior || t == pageTypeTableInterior
}

func (t pageType) isTable() bool {
	return t == pageTypeTableInterior || t == pageTypeTableLeaf
}

func (t pageType) valid() bool {
	switch t {
	case pageTypeIndexInterior, pageTypeTableInterior, pageTypeIndexLeaf, pageTypeTableLeaf:
		return true
	}
	return false
}

// btreePageHeader is the decoded 8 or 12-byte B-tree page header.
type btreePageHeader struct {
	Type              pageType
	FirstFreeblock    int
	NumCells          int
	CellContentStart  int
	NumFragFree       int
	RightMostPointer  int // only set for interior pages
	HeaderSize        int // 8 for leaves, 12 for interiors
}

func parseBtreePageHeader(page []byte, bodyOffset int, pageNum int) (btreePageHeader, error) {
	if bodyOffset+8 > len(page) {
		return btreePageHeader{}, newDecodeError(ErrKindUnexpectedEndOfStream, "parseBtreePageHeader",
			fmt.Errorf("page %d too short for a B-tree header", pageNum), ctx1("page", pageNum))
	}
	t := pageType(page[bodyOffset])
	if !t.valid() {
		return btreePageHeader{}, invalidPageTypeErr(pageNum, page[bodyOffset])
	}

	firstFreeblock := int(binary.BigEndian.Uint16(page[bodyOffset+1 : bodyOffset+3]))
	numCells := int(binary.BigEndian.Uint16(page[bodyOffset+3 : bodyOffset+5]))
	cellContentStart := int(binary.BigEndian.Uint16(page[bodyOffset+5 : bodyOffset+7]))
	if cellContentStart == 0 {
		cellContentStart = 65536
	}
	numFragFree := int(page[bodyOffset+7])

	h := btreePageHeader{
		Type:             t,
		FirstFreeblock:   firstFreeblock,
		NumCells:         numCells,
		CellContentStart: cellContentStart,
		NumFragFree:      numFragFree,
		HeaderSize:       8,
	}

	if t.isInterior() {
		if bodyOffset+12 > len(page) {
			return btreePageHeader{}, newDecodeError(ErrKindUnexpectedEndOfStream, "parseBtreePageHeader",
				fmt.Errorf("page %d too short for an interior B-tree header", pageNum), ctx1("page", pageNum))
		}
		h.RightMostPointer = int(binary.BigEndian.Uint32(page[bodyOffset+8 : bodyOffset+12]))
		h.HeaderSize = 12
	}

	if firstFreeblock != 0 {
		return btreePageHeader{}, newDecodeError(ErrKindUnexpectedFreeblock, "parseBtreePageHeader",
			fmt.Errorf("page %d has a non-zero first freeblock pointer", pageNum), ctx1("page", pageNum))
	}

	return h, nil
}

// cellPointers returns the page-relative offsets of each cell, in the
// pointer-array's own (reverse key) order.
func cellPointers(page []byte, bodyOffset int, h btreePageHeader) []int {
	start := bodyOffset + h.HeaderSize
	ptrs := make([]int, h.NumCells)
	for i := 0; i < h.NumCells; i++ {
		off := start + i*2
		ptrs[i] = int(binary.BigEndian.Uint16(page[off : off+2]))
	}
	return ptrs
}
