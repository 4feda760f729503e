package sqlitestream

import "fmt"

// decodeRecord turns a fully-assembled payload into a Row. ipkIndex, if
// >= 0, marks the column whose decoded value is replaced by rowid (the
// INTEGER PRIMARY KEY alias rule); -1 means no substitution.
func decodeRecord(payload []byte, rowid int64, ipkIndex int) (Row, error) {
	if len(payload) == 0 {
		return Row{}, nil
	}

	headerSize, n := readVarint(payload, 0)
	pos := n
	headerEnd := int(headerSize)
	if headerEnd > len(payload) || headerEnd < pos {
		return nil, newDecodeError(ErrKindUnexpectedEndOfStream, "decodeRecord",
			fmt.Errorf("record header_size %d exceeds payload length %d", headerEnd, len(payload)), nil)
	}

	var serials []int64
	for pos < headerEnd {
		st, n := readVarint(payload, pos)
		serials = append(serials, st)
		pos += n
	}

	row := make(Row, len(serials))
	bodyPos := headerEnd
	for i, st := range serials {
		length := typeLength(st)
		if bodyPos+length > len(payload) {
			return nil, newDecodeError(ErrKindUnexpectedEndOfStream, "decodeRecord",
				fmt.Errorf("column %d body overruns payload", i), nil)
		}
		raw := payload[bodyPos : bodyPos+length]
		bodyPos += length

		if i == ipkIndex {
			row[i] = rowid
		} else {
			row[i] = parseValue(st, raw)
		}
	}
	return row, nil
}
