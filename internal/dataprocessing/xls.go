package dataprocessing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
)

// BIFF8 record types read from a legacy workbook stream.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recDateMode   = 0x0022
	recContinue   = 0x003C
	recBoundSheet = 0x0085
	recMulRK      = 0x00BD
	recSST        = 0x00FC
	recLabelSST   = 0x00FD
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRK         = 0x027E
	recBOF        = 0x0809
)

const (
	biff8Version       = 0x0600
	bofGlobals         = 0x0005
	bofWorksheet       = 0x0010
	sheetTypeWorksheet = 0
)

var errShortRecord = errors.New("record too short")

// XLSWorkbook is a legacy .xls workbook with its worksheets read into memory.
type XLSWorkbook struct {
	Path   string
	names  []string
	sheets map[string][][]Cell
}

// OpenXLS reads every worksheet of the BIFF8 workbook at path.
func OpenXLS(path string) (*XLSWorkbook, error) {
	fail := func(reason string, err error) (*XLSWorkbook, error) {
		return nil, &ExtractionError{Source: path, Row: -1, Column: -1, Reason: reason, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return fail("failed to open workbook", err)
	}
	defer f.Close()

	stream, err := workbookStream(f)
	if err != nil {
		return fail("failed to open workbook", err)
	}
	wb, err := parseBIFF(stream)
	if err != nil {
		return fail("failed to read legacy workbook", err)
	}
	wb.Path = path
	return wb, nil
}

// SheetNames lists the worksheets in workbook order.
func (w *XLSWorkbook) SheetNames() []string { return append([]string(nil), w.names...) }

// Rows returns the typed cells of a worksheet. Names match case-insensitively.
func (w *XLSWorkbook) Rows(sheet string) ([][]Cell, error) {
	for _, name := range w.names {
		if strings.EqualFold(name, sheet) {
			return w.sheets[name], nil
		}
	}
	return nil, &ExtractionError{Source: w.Path, Sheet: sheet, Row: -1, Column: -1, Reason: "worksheet not found"}
}

func (w *XLSWorkbook) Close() error { return nil }

// workbookStream returns the "Workbook" stream of an OLE2 compound file.
func workbookStream(ra io.ReaderAt) ([]byte, error) {
	doc, err := mscfb.New(ra)
	if err != nil {
		return nil, err
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		switch entry.Name {
		case "Workbook":
			buf := make([]byte, entry.Size)
			if _, err := io.ReadFull(entry, buf); err != nil {
				return nil, fmt.Errorf("read workbook stream: %w", err)
			}
			return buf, nil
		case "Book":
			return nil, errors.New("BIFF5 workbooks are not supported, save as .xls 97-2003 or .xlsx")
		}
	}
	return nil, errors.New("no workbook stream in compound file")
}

// biffRecord is one record with the payloads of the CONTINUE records that
// follow it.
type biffRecord struct {
	id     uint16
	offset int
	parts  [][]byte
}

func (r biffRecord) data() []byte { return r.parts[0] }

func splitRecords(stream []byte) ([]biffRecord, error) {
	var records []biffRecord
	for off := 0; off+4 <= len(stream); {
		id := binary.LittleEndian.Uint16(stream[off:])
		size := int(binary.LittleEndian.Uint16(stream[off+2:]))
		if off+4+size > len(stream) {
			return nil, fmt.Errorf("record 0x%04X at offset %d runs past the stream", id, off)
		}
		payload := stream[off+4 : off+4+size]
		if id == recContinue && len(records) > 0 {
			last := &records[len(records)-1]
			last.parts = append(last.parts, payload)
		} else {
			records = append(records, biffRecord{id: id, offset: off, parts: [][]byte{payload}})
		}
		off += 4 + size
	}
	return records, nil
}

type boundSheet struct {
	name   string
	offset int
	kind   byte
}

func parseBIFF(stream []byte) (*XLSWorkbook, error) {
	records, err := splitRecords(stream)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0].id != recBOF {
		return nil, errors.New("workbook stream does not start with BOF")
	}
	if err := checkBOF(records[0], bofGlobals); err != nil {
		return nil, err
	}

	var sheets []boundSheet
	var sst []string
globals:
	for _, rec := range records[1:] {
		switch rec.id {
		case recEOF:
			break globals
		case recDateMode:
			if d := rec.data(); len(d) >= 2 && binary.LittleEndian.Uint16(d) == 1 {
				return nil, errors.New("1904 date system is not supported")
			}
		case recBoundSheet:
			bs, err := readBoundSheet(rec.data())
			if err != nil {
				return nil, fmt.Errorf("sheet entry: %w", err)
			}
			sheets = append(sheets, bs)
		case recSST:
			if sst, err = readSST(rec.parts); err != nil {
				return nil, fmt.Errorf("shared strings: %w", err)
			}
		}
	}

	byOffset := make(map[int]int, len(records))
	for i, rec := range records {
		byOffset[rec.offset] = i
	}

	wb := &XLSWorkbook{sheets: make(map[string][][]Cell)}
	for _, bs := range sheets {
		if bs.kind != sheetTypeWorksheet {
			continue
		}
		start, ok := byOffset[bs.offset]
		if !ok || records[start].id != recBOF {
			return nil, fmt.Errorf("sheet %q: no BOF at offset %d", bs.name, bs.offset)
		}
		if err := checkBOF(records[start], bofWorksheet); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", bs.name, err)
		}
		rows, err := readSheetRecords(records[start+1:], sst)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", bs.name, err)
		}
		wb.names = append(wb.names, bs.name)
		wb.sheets[bs.name] = rows
	}
	return wb, nil
}

func checkBOF(rec biffRecord, want uint16) error {
	d := rec.data()
	if len(d) < 4 {
		return errShortRecord
	}
	if v := binary.LittleEndian.Uint16(d); v != biff8Version {
		return fmt.Errorf("BIFF version 0x%04X is not BIFF8", v)
	}
	if dt := binary.LittleEndian.Uint16(d[2:]); dt != want {
		return fmt.Errorf("substream type 0x%04X, want 0x%04X", dt, want)
	}
	return nil
}

func readBoundSheet(d []byte) (boundSheet, error) {
	if len(d) < 8 {
		return boundSheet{}, errShortRecord
	}
	r := &biffReader{parts: [][]byte{d[8:]}}
	name, err := r.unicode(int(d[6]), d[7]&0x01 != 0)
	if err != nil {
		return boundSheet{}, err
	}
	return boundSheet{
		name:   name,
		offset: int(binary.LittleEndian.Uint32(d)),
		kind:   d[5],
	}, nil
}

// readSST decodes the shared string table, which may span CONTINUE records.
func readSST(parts [][]byte) ([]string, error) {
	r := &biffReader{parts: parts}
	if _, err := r.u32(); err != nil {
		return nil, err
	}
	unique, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, min(unique, 1<<16))
	for range unique {
		s, err := r.richString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// sheetBuilder collects cells into rows, growing both dimensions on demand.
type sheetBuilder struct {
	rows [][]Cell
}

func (b *sheetBuilder) set(row, col int, c Cell) {
	for len(b.rows) <= row {
		b.rows = append(b.rows, nil)
	}
	for len(b.rows[row]) <= col {
		b.rows[row] = append(b.rows[row], Cell{})
	}
	b.rows[row][col] = c
}

func readSheetRecords(records []biffRecord, sst []string) ([][]Cell, error) {
	var b sheetBuilder
	// a FORMULA with a string result is followed by a STRING record
	pendingRow, pendingCol := -1, -1

	for _, rec := range records {
		d := rec.data()
		if rec.id == recEOF {
			break
		}
		switch rec.id {
		case recLabelSST, recNumber, recRK, recLabel, recBoolErr, recFormula:
			if len(d) < 6 {
				return nil, fmt.Errorf("cell record 0x%04X: %w", rec.id, errShortRecord)
			}
		}
		row, col := int(u16at(d, 0)), int(u16at(d, 2))

		switch rec.id {
		case recLabelSST:
			if len(d) < 10 {
				return nil, errShortRecord
			}
			i := int(binary.LittleEndian.Uint32(d[6:]))
			if i >= len(sst) {
				return nil, fmt.Errorf("row %d column %d: shared string %d out of range", row, col, i)
			}
			if sst[i] != "" {
				b.set(row, col, StringCell(sst[i]))
			}
		case recLabel:
			s, err := (&biffReader{parts: rec.parts, pos: 6}).shortUnicode()
			if err != nil {
				return nil, err
			}
			if s != "" {
				b.set(row, col, StringCell(s))
			}
		case recNumber:
			if len(d) < 14 {
				return nil, errShortRecord
			}
			b.set(row, col, NumberCell(math.Float64frombits(binary.LittleEndian.Uint64(d[6:]))))
		case recRK:
			if len(d) < 10 {
				return nil, errShortRecord
			}
			b.set(row, col, NumberCell(decodeRK(binary.LittleEndian.Uint32(d[6:]))))
		case recMulRK:
			// rw, colFirst, then (ixfe, rk) pairs, then colLast
			for i, off := 0, 4; off+6 <= len(d)-2; i, off = i+1, off+6 {
				b.set(row, col+i, NumberCell(decodeRK(binary.LittleEndian.Uint32(d[off+2:]))))
			}
		case recBoolErr:
			if len(d) < 8 {
				return nil, errShortRecord
			}
			if d[7] == 0 {
				b.set(row, col, BoolCell(d[6] != 0))
			}
		case recFormula:
			if len(d) < 14 {
				return nil, errShortRecord
			}
			if d[12] != 0xFF || d[13] != 0xFF {
				b.set(row, col, NumberCell(math.Float64frombits(binary.LittleEndian.Uint64(d[6:]))))
				continue
			}
			switch d[6] {
			case 0:
				pendingRow, pendingCol = row, col
			case 1:
				b.set(row, col, BoolCell(d[8] != 0))
			}
		case recString:
			if pendingRow < 0 {
				continue
			}
			s, err := (&biffReader{parts: rec.parts}).shortUnicode()
			if err != nil {
				return nil, err
			}
			if s != "" {
				b.set(pendingRow, pendingCol, StringCell(s))
			}
			pendingRow, pendingCol = -1, -1
		}
	}
	return b.rows, nil
}

func u16at(d []byte, off int) uint16 {
	if off+2 > len(d) {
		return 0
	}
	return binary.LittleEndian.Uint16(d[off:])
}

// decodeRK unpacks the compressed number format of RK and MULRK cells.
func decodeRK(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		v = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

// biffReader reads a record payload that may continue in CONTINUE records.
type biffReader struct {
	parts [][]byte
	part  int
	pos   int
}

func (r *biffReader) bytes(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		if r.part >= len(r.parts) {
			return nil, io.ErrUnexpectedEOF
		}
		cur := r.parts[r.part][r.pos:]
		if len(cur) == 0 {
			r.part, r.pos = r.part+1, 0
			continue
		}
		k := min(n-len(out), len(cur))
		out = append(out, cur[:k]...)
		r.pos += k
	}
	return out, nil
}

func (r *biffReader) u8() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *biffReader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *biffReader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// unicode reads cch characters. When the characters cross into the next
// part, that part starts with a fresh option byte.
func (r *biffReader) unicode(cch int, high bool) (string, error) {
	var sb strings.Builder
	for cch > 0 {
		if r.part >= len(r.parts) {
			return "", io.ErrUnexpectedEOF
		}
		if r.pos == len(r.parts[r.part]) {
			r.part, r.pos = r.part+1, 0
			flags, err := r.u8()
			if err != nil {
				return "", err
			}
			high = flags&0x01 != 0
			continue
		}
		width := 1
		if high {
			width = 2
		}
		avail := (len(r.parts[r.part]) - r.pos) / width
		if avail == 0 {
			return "", errShortRecord
		}
		k := min(cch, avail)
		raw := r.parts[r.part][r.pos : r.pos+k*width]
		r.pos += k * width
		cch -= k
		if high {
			units := make([]uint16, k)
			for i := range units {
				units[i] = binary.LittleEndian.Uint16(raw[2*i:])
			}
			sb.WriteString(string(utf16.Decode(units)))
		} else {
			for _, c := range raw {
				sb.WriteRune(rune(c))
			}
		}
	}
	return sb.String(), nil
}

// shortUnicode reads a string with a 16 bit length and an option byte.
func (r *biffReader) shortUnicode() (string, error) {
	cch, err := r.u16()
	if err != nil {
		return "", err
	}
	flags, err := r.u8()
	if err != nil {
		return "", err
	}
	return r.unicode(int(cch), flags&0x01 != 0)
}

// richString reads a shared string table entry, skipping formatting runs and
// phonetic data.
func (r *biffReader) richString() (string, error) {
	cch, err := r.u16()
	if err != nil {
		return "", err
	}
	flags, err := r.u8()
	if err != nil {
		return "", err
	}
	var runs, ext int
	if flags&0x08 != 0 {
		n, err := r.u16()
		if err != nil {
			return "", err
		}
		runs = int(n)
	}
	if flags&0x04 != 0 {
		n, err := r.u32()
		if err != nil {
			return "", err
		}
		ext = int(n)
	}
	s, err := r.unicode(int(cch), flags&0x01 != 0)
	if err != nil {
		return "", err
	}
	if _, err := r.bytes(4*runs + ext); err != nil {
		return "", err
	}
	return s, nil
}
