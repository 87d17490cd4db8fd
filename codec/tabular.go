package codec

import (
	"errors"
	"sort"

	"github.com/BTOON-project/btoon-core/buffer"
	"github.com/BTOON-project/btoon-core/errs"
	"github.com/BTOON-project/btoon-core/format"
)

// IsTabular reports whether v is a tabular array: at least two elements,
// every element a map, all maps sharing exactly the same non-empty key set.
//
// Tabular arrays encode column-wise as a private extension when
// auto-tabular is enabled. Detection is O(rows x keys).
func IsTabular(v Value) bool {
	if v.Kind() != KindArray {
		return false
	}
	rows := v.Items()
	if len(rows) < 2 {
		return false
	}
	first := rows[0]
	if first.Kind() != KindMap || first.Len() == 0 {
		return false
	}

	ref := first.Entries()
	for _, row := range rows[1:] {
		if row.Kind() != KindMap {
			return false
		}
		ent := row.Entries()
		if len(ent) != len(ref) {
			return false
		}
		// Entries are key-sorted, so equal sets mean pairwise-equal keys.
		for i := range ent {
			if ent[i].Key != ref[i].Key {
				return false
			}
		}
	}

	return true
}

// columnHint returns the schema type hint for a cell as it appears on the
// wire: a non-negative Int narrows to the unsigned encoding, so it hints
// uint.
func columnHint(v Value) uint8 {
	switch v.Kind() {
	case KindNil:
		return format.ColumnHintNil
	case KindBool:
		return format.ColumnHintBool
	case KindInt:
		if v.Int() >= 0 {
			return format.ColumnHintUint
		}

		return format.ColumnHintInt
	case KindUint:
		return format.ColumnHintUint
	case KindFloat:
		return format.ColumnHintFloat
	case KindString:
		return format.ColumnHintString
	default:
		return format.ColumnHintMixed
	}
}

// encodeTabular emits rows as the tabular extension: a 12-byte header, the
// schema section (column names in ascending order with type hints), then
// per-column length-prefixed payloads of wire-encoded cells.
func (e *encoder) encodeTabular(rows []Value) error {
	columns := rows[0].Entries()

	pw := buffer.NewWriter()
	defer pw.Close()

	pw.AppendUint32(format.TabularVersion)
	pw.AppendUint32(uint32(len(columns)))
	pw.AppendUint32(uint32(len(rows)))

	for _, col := range columns {
		hint := columnHint(col.Value)
		for _, row := range rows[1:] {
			cell, _ := row.Get(col.Key)
			if columnHint(cell) != hint {
				hint = format.ColumnHintMixed
				break
			}
		}
		pw.AppendUint32(uint32(len(col.Key)))
		pw.AppendString(col.Key)
		pw.AppendUint8(hint)
	}

	cw := buffer.NewWriter()
	defer cw.Close()

	for _, col := range columns {
		colEnc := encoder{w: cw, autoTabular: e.autoTabular}
		for _, row := range rows {
			cell, _ := row.Get(col.Key)
			if err := colEnc.encodeValue(cell); err != nil {
				return err
			}
		}
		pw.AppendUint32(uint32(cw.Len()))
		pw.AppendBytes(cw.Bytes())
		cw.Reset()
	}

	e.encodeExt(format.ExtTabular, pw.Bytes())

	return nil
}

// decodeTabular rebuilds a row-major Array from the column-oriented
// extension payload. base is the absolute offset of the payload, used to
// position errors in the outer buffer.
func (d *decoder) decodeTabular(payload []byte, base, depth int) (Value, error) {
	if depth+1 > d.cfg.MaxDepth {
		return Value{}, errs.New(errs.KindDepthExceeded, base, "tabular nesting too deep")
	}

	sub := decoder{r: buffer.NewReader(payload), cfg: d.cfg}
	v, err := sub.decodeTabularPayload(depth)
	if err != nil {
		return Value{}, shiftOffset(err, base)
	}

	return v, nil
}

func (d *decoder) decodeTabularPayload(depth int) (Value, error) {
	version, err := d.r.ReadUint32()
	if err != nil {
		return Value{}, err
	}
	if version != format.TabularVersion {
		return Value{}, errs.Newf(errs.KindUnsupportedVersion, 0, "tabular version %d, want %d", version, format.TabularVersion)
	}

	numColumns, err := d.r.ReadUint32()
	if err != nil {
		return Value{}, err
	}
	numRows, err := d.r.ReadUint32()
	if err != nil {
		return Value{}, err
	}

	names := make([]string, 0, minInt(int(numColumns), d.r.Remaining()/5))
	hints := make([]uint8, 0, cap(names))
	for i := uint32(0); i < numColumns; i++ {
		nameLen, err := d.r.ReadUint32()
		if err != nil {
			return Value{}, err
		}
		nameOffset := d.r.Offset()
		name, err := d.r.ReadUTF8(int(nameLen), d.cfg.Strict)
		if err != nil {
			return Value{}, err
		}
		hint, err := d.r.ReadUint8()
		if err != nil {
			return Value{}, err
		}
		if d.cfg.Strict && len(names) > 0 {
			prev := names[len(names)-1]
			if name == prev {
				return Value{}, errs.Newf(errs.KindDuplicateKey, nameOffset, "column %q repeats", name)
			}
			if name < prev {
				return Value{}, errs.Newf(errs.KindKeyOrder, nameOffset, "column %q arrives after %q", name, prev)
			}
		}
		names = append(names, name)
		hints = append(hints, hint)
	}

	cols := make([][]Value, len(names))
	for c := range names {
		colLen, err := d.r.ReadUint32()
		if err != nil {
			return Value{}, err
		}
		colStart := d.r.Offset()
		cells := make([]Value, 0, minInt(int(numRows), d.r.Remaining()))
		for i := uint32(0); i < numRows; i++ {
			cell, err := d.decodeValue(depth + 2)
			if err != nil {
				return Value{}, err
			}
			if err := checkHint(hints[c], cell, colStart); err != nil {
				return Value{}, err
			}
			cells = append(cells, cell)
		}
		if consumed := d.r.Offset() - colStart; consumed != int(colLen) {
			return Value{}, errs.Newf(errs.KindLengthMismatch, colStart,
				"column %q payload is %d bytes, declared %d", names[c], consumed, colLen)
		}
		cols[c] = cells
	}

	if d.r.Remaining() != 0 {
		return Value{}, errs.Newf(errs.KindLengthMismatch, d.r.Offset(),
			"%d bytes remain after tabular data section", d.r.Remaining())
	}

	// Rows are zipped back with entries in ascending key order. Column
	// order already is ascending for strict input; sort defensively
	// otherwise.
	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return names[order[a]] < names[order[b]]
	})

	rows := make([]Value, numRows)
	for i := range rows {
		entries := make([]MapEntry, len(order))
		for j, c := range order {
			entries[j] = MapEntry{Key: names[c], Value: cols[c][i]}
		}
		rows[i] = mapFromSorted(entries)
	}

	return ArrayOf(rows), nil
}

// checkHint rejects cells that contradict an advisory column type hint.
// Hints outside the typed set mean "mixed" and switch the column to
// per-cell dispatch.
func checkHint(hint uint8, cell Value, offset int) error {
	var want Kind
	switch hint {
	case format.ColumnHintNil:
		want = KindNil
	case format.ColumnHintBool:
		want = KindBool
	case format.ColumnHintInt:
		want = KindInt
	case format.ColumnHintUint:
		want = KindUint
	case format.ColumnHintFloat:
		want = KindFloat
	case format.ColumnHintString:
		want = KindString
	default:
		return nil
	}
	if cell.Kind() != want {
		return errs.Newf(errs.KindInvalidExtension, offset,
			"column hint %d disagrees with %s cell", hint, cell.Kind())
	}

	return nil
}

// shiftOffset rebases a positioned error from a sub-buffer into the outer
// buffer's coordinates.
func shiftOffset(err error, base int) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return errs.New(e.Kind, e.Offset+base, e.Message)
	}

	return err
}
