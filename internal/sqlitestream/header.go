package sqlitestream

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const fileHeaderSize = 100

var sqliteMagic = []byte("SQLite format 3\x00")

// parsedHeader holds the fields of the 100-byte file header the core
// actually uses. Offsets match spec §3 exactly: magic (0), page size (16),
// reserved-space (20), number of pages (28), first freelist-trunk page
// (32), incremental-vacuum flag (52), text encoding (56).
type parsedHeader struct {
	PageSize          int
	NumPages          int
	FirstFreelistPage int
	IncrementalVacuum bool
}

func parseFileHeader(raw []byte) (parsedHeader, error) {
	if len(raw) != fileHeaderSize {
		return parsedHeader{}, newDecodeError(ErrKindMalformedHeader, "parseFileHeader",
			fmt.Errorf("expected %d header bytes, got %d", fileHeaderSize, len(raw)), nil)
	}
	if !bytes.Equal(raw[0:16], sqliteMagic) {
		return parsedHeader{}, newDecodeError(ErrKindMalformedHeader, "parseFileHeader",
			fmt.Errorf("bad magic string"), nil)
	}

	reservedSpace := raw[20]
	if reservedSpace != 0 {
		return parsedHeader{}, newDecodeError(ErrKindMalformedHeader, "parseFileHeader",
			fmt.Errorf("reserved-space per page must be 0, got %d", reservedSpace), ctx1("reserved_space", reservedSpace))
	}

	textEncoding := binary.BigEndian.Uint32(raw[56:60])
	if textEncoding != 0 && textEncoding != 1 {
		return parsedHeader{}, newDecodeError(ErrKindMalformedHeader, "parseFileHeader",
			fmt.Errorf("unsupported text encoding %d", textEncoding), ctx1("text_encoding", textEncoding))
	}

	rawPageSize := binary.BigEndian.Uint16(raw[16:18])
	pageSize := int(rawPageSize)
	if pageSize == 1 {
		pageSize = 65536
	}

	numPages := int(binary.BigEndian.Uint32(raw[28:32]))
	firstFreelistPage := int(binary.BigEndian.Uint32(raw[32:36]))
	incrVacuum := binary.BigEndian.Uint32(raw[52:56]) != 0

	return parsedHeader{
		PageSize:          pageSize,
		NumPages:          numPages,
		FirstFreelistPage: firstFreelistPage,
		IncrementalVacuum: incrVacuum,
	}, nil
}

// pointerMapPeriod returns J, the spacing between pointer-map pages, per
// spec §3: J = ceil(U / 5).
func pointerMapPeriod(pageSize int) int {
	return (pageSize + 4) / 5
}

func isPointerMapPage(pageNum, pageSize int) bool {
	j := pointerMapPeriod(pageSize)
	return (pageNum-2)%j == 0
}

func lockBytePage(pageSize int) int {
	return (1<<30)/pageSize + 1
}
