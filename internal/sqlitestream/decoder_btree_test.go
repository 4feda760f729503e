package sqlitestream

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"testing"
)

// This file builds one larger fixture than decoder_test.go's, deliberately
// shaped to exercise paths the single-leaf-page fixture never reaches: a
// 2-level interior table tree whose right-most child arrives and is
// buffered before anything schedules it (walker.arrival/schedule's
// buffered-before-scheduled branch), a multi-page overflow chain, an index
// root, and a freelist trunk/leaf pair.

func encodeInteriorCell(leftChild int, key int64) []byte {
	cell := make([]byte, 4)
	binary.BigEndian.PutUint32(cell, uint32(leftChild))
	return append(cell, encodeVarint14(key)...)
}

func encodeOverflowingTableCell(rowid int64, payload []byte, local, overflowFirstPage int) []byte {
	var out []byte
	out = append(out, encodeVarint14(int64(len(payload)))...)
	out = append(out, encodeVarint14(rowid)...)
	out = append(out, payload[:local]...)
	ptr := make([]byte, 4)
	binary.BigEndian.PutUint32(ptr, uint32(overflowFirstPage))
	return append(out, ptr...)
}

func encodeIndexLeafCell(payload []byte) []byte {
	return append(encodeVarint14(int64(len(payload))), payload...)
}

// buildBtreePage lays out an arbitrary B-tree page (leaf or interior, table
// or index) at bodyOffset, generalizing buildLeafPage to the interior
// header shape (a 12-byte header with a right-most child pointer).
func buildBtreePage(pageSize, bodyOffset int, pageType byte, rightMost int, cells [][]byte) []byte {
	page := make([]byte, pageSize)
	page[bodyOffset] = pageType
	binary.BigEndian.PutUint16(page[bodyOffset+1:bodyOffset+3], 0) // first freeblock
	binary.BigEndian.PutUint16(page[bodyOffset+3:bodyOffset+5], uint16(len(cells)))
	binary.BigEndian.PutUint16(page[bodyOffset+5:bodyOffset+7], 0) // cell content start (0 == 65536)
	page[bodyOffset+7] = 0

	headerSize := 8
	if pageType == pageTypeIndexInterior || pageType == pageTypeTableInterior {
		headerSize = 12
		binary.BigEndian.PutUint32(page[bodyOffset+8:bodyOffset+12], uint32(rightMost))
	}

	ptrBase := bodyOffset + headerSize
	cellStart := ptrBase + 2*len(cells)
	for i, cell := range cells {
		binary.BigEndian.PutUint16(page[ptrBase+2*i:ptrBase+2*i+2], uint16(cellStart))
		copy(page[cellStart:cellStart+len(cell)], cell)
		cellStart += len(cell)
	}
	if cellStart > pageSize {
		panic("buildBtreePage: cells overran the page")
	}
	return page
}

// buildOverflowChain splits data across as many overflow pages (starting at
// startPage, numbered consecutively) as needed, linking each to the next via
// its 4-byte header.
func buildOverflowChain(pageSize int, data []byte, startPage int) [][]byte {
	var pages [][]byte
	capacity := pageSize - 4
	pos := 0
	pageNum := startPage
	for pos < len(data) {
		end := pos + capacity
		if end > len(data) {
			end = len(data)
		}
		next := 0
		if end < len(data) {
			next = pageNum + 1
		}
		pages = append(pages, buildOverflowPage(pageSize, next, data[pos:end]))
		pos = end
		pageNum++
	}
	return pages
}

func buildOverflowPage(pageSize, next int, chunk []byte) []byte {
	page := make([]byte, pageSize)
	binary.BigEndian.PutUint32(page[0:4], uint32(next))
	copy(page[4:4+len(chunk)], chunk)
	return page
}

func buildFreelistTrunkPage(pageSize, nextTrunk int, leaves []int) []byte {
	page := make([]byte, pageSize)
	binary.BigEndian.PutUint32(page[0:4], uint32(nextTrunk))
	binary.BigEndian.PutUint32(page[4:8], uint32(len(leaves)))
	for i, l := range leaves {
		binary.BigEndian.PutUint32(page[8+4*i:12+4*i], uint32(l))
	}
	return page
}

func buildFileHeaderWithFreelist(pageSize uint16, numPages uint32, firstFreelistPage uint32) []byte {
	h := make([]byte, fileHeaderSize)
	copy(h[0:16], sqliteMagic)
	binary.BigEndian.PutUint16(h[16:18], pageSize)
	binary.BigEndian.PutUint32(h[28:32], numPages)
	binary.BigEndian.PutUint32(h[32:36], firstFreelistPage)
	binary.BigEndian.PutUint32(h[56:60], 1) // UTF-8
	return h
}

// buildBranchingFixtureDB assembles a file whose page layout is:
//
//  1. sqlite_schema leaf: a "table" row (rootpage 3) and an "index" row
//     (rootpage 7).
//  2. table leaf, the interior root's right-most child. Physically arrives
//     before page 3 schedules it, so it is held in walker.buffered and
//     handed to its processor the moment schedule(2, ...) runs.
//  3. table interior root: one cell with left child 4, right-most child 2.
//  4. table leaf with a row that fits on-page and a second row whose
//     payload overflows into a chain starting at page 5.
//  5..N. the overflow chain (as many pages as the payload needs).
//  N+1. index leaf (the schema's "index" row root).
//  N+2. freelist trunk page, pointing at one leaf.
//  N+3. freelist leaf page.
func buildBranchingFixtureDB(t *testing.T) (raw []byte, overflowPageCount int) {
	t.Helper()
	const pageSize = 512

	earlyRow := encodeRecord([]fieldVal{nullField(), textField("Early")})
	page2 := buildBtreePage(pageSize, 0, pageTypeTableLeaf, 0, [][]byte{
		encodeCell(100, earlyRow),
	})

	page3 := buildBtreePage(pageSize, 0, pageTypeTableInterior, 2, [][]byte{
		encodeInteriorCell(4, 50),
	})

	normalRow := encodeRecord([]fieldVal{nullField(), textField("Normal")})
	bigText := strings.Repeat("Z", 1450)
	bigPayload := encodeRecord([]fieldVal{nullField(), textField(bigText)})
	local := payloadSplit(pageSize, len(bigPayload), false)
	if local >= len(bigPayload) {
		t.Fatalf("fixture invalid: payload of %d bytes did not overflow (local=%d)", len(bigPayload), local)
	}
	overflowPages := buildOverflowChain(pageSize, bigPayload[local:], 5)
	if len(overflowPages) < 2 {
		t.Fatalf("fixture invalid: expected a multi-page overflow chain, got %d page(s)", len(overflowPages))
	}

	page4 := buildBtreePage(pageSize, 0, pageTypeTableLeaf, 0, [][]byte{
		encodeCell(101, normalRow),
		encodeOverflowingTableCell(102, bigPayload, local, 5),
	})

	indexPageNum := 5 + len(overflowPages)
	indexPayload := []byte("fake-index-key-payload")
	pageIndex := buildBtreePage(pageSize, 0, pageTypeIndexLeaf, 0, [][]byte{
		encodeIndexLeafCell(indexPayload),
	})

	schemaTableRow := encodeRecord([]fieldVal{
		textField("table"),
		textField("items"),
		textField("items"),
		intField(3), // rootpage: the interior root
		textField("CREATE TABLE items (id, name)"),
	})
	schemaIndexRow := encodeRecord([]fieldVal{
		textField("index"),
		textField("idx_items_name"),
		textField("items"),
		intField(int64(indexPageNum)),
		textField("CREATE INDEX idx_items_name ON items (name)"),
	})
	page1 := buildLeafPage(pageSize, fileHeaderSize, [][]byte{
		encodeCell(1, schemaTableRow),
		encodeCell(2, schemaIndexRow),
	})

	freelistTrunkNum := indexPageNum + 1
	freelistLeafNum := freelistTrunkNum + 1
	pageFreelistTrunk := buildFreelistTrunkPage(pageSize, 0, []int{freelistLeafNum})
	pageFreelistLeaf := make([]byte, pageSize)

	numPages := freelistLeafNum
	header := buildFileHeaderWithFreelist(pageSize, uint32(numPages), uint32(freelistTrunkNum))

	var out []byte
	out = append(out, header...)
	out = append(out, page1[fileHeaderSize:]...)
	out = append(out, page2...)
	out = append(out, page3...)
	out = append(out, page4...)
	for _, p := range overflowPages {
		out = append(out, p...)
	}
	out = append(out, pageIndex...)
	out = append(out, pageFreelistTrunk...)
	out = append(out, pageFreelistLeaf...)
	return out, len(overflowPages)
}

func TestDecoderBranchingTreeOverflowIndexAndFreelist(t *testing.T) {
	raw, overflowPageCount := buildBranchingFixtureDB(t)
	helper := &stubSchemaHelper{columns: map[string][]ColumnInfo{
		"items": {
			{CID: 0, Name: "id", Type: "INTEGER", PK: 1},
			{CID: 1, Name: "name", Type: "TEXT"},
		},
	}}

	dec := NewFromReader(bytes.NewReader(raw), WithSchemaHelper(helper))
	ctx := context.Background()

	var tableNames []string
	var gotRows []Row
	for ts, err := range dec.Tables(ctx) {
		if err != nil {
			t.Fatalf("Tables() yielded error: %v", err)
		}
		tableNames = append(tableNames, ts.Name())
		for row, err := range ts.Rows(ctx) {
			if err != nil {
				t.Fatalf("Rows() yielded error: %v", err)
			}
			gotRows = append(gotRows, row)
		}
	}

	if len(tableNames) != 1 || tableNames[0] != "items" {
		t.Fatalf("table names = %v, want [items] (the index root must never surface as a table)", tableNames)
	}
	if len(gotRows) != 3 {
		t.Fatalf("got %d rows, want 3", len(gotRows))
	}

	// Row emission follows physical traversal order: the interior root's
	// right-most child (page 2, reached via the buffered-before-scheduled
	// path) is handed to its processor before page 4 even arrives, so
	// "Early" surfaces first; "Normal" and the overflowing row follow once
	// page 4 and its overflow chain are reconciled.
	if gotRows[0][0] != int64(100) || gotRows[0][1] != "Early" {
		t.Errorf("row 0 = %v, want [100 Early]", gotRows[0])
	}
	if gotRows[1][0] != int64(101) || gotRows[1][1] != "Normal" {
		t.Errorf("row 1 = %v, want [101 Normal]", gotRows[1])
	}
	if gotRows[2][0] != int64(102) {
		t.Errorf("row 2 rowid = %v, want 102", gotRows[2][0])
	}
	if gotRows[2][1] != strings.Repeat("Z", 1450) {
		t.Errorf("row 2 text = %d bytes, want the reassembled 1450-byte overflow payload", len(gotRows[2][1].(string)))
	}

	if dec.Stats.OverflowPages != overflowPageCount {
		t.Errorf("Stats.OverflowPages = %d, want %d", dec.Stats.OverflowPages, overflowPageCount)
	}
	if dec.Stats.TablesYielded != 1 {
		t.Errorf("Stats.TablesYielded = %d, want 1", dec.Stats.TablesYielded)
	}
	if dec.Stats.RowsYielded != 3 {
		t.Errorf("Stats.RowsYielded = %d, want 3", dec.Stats.RowsYielded)
	}
}
