package testutil

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/stretchr/testify/require"
)

// BIFF8 record types written by the legacy workbook fixtures.
const (
	BIFFEOF        = 0x000A
	BIFFDateMode   = 0x0022
	BIFFContinue   = 0x003C
	BIFFBoundSheet = 0x0085
	BIFFSST        = 0x00FC
	BIFFLabelSST   = 0x00FD
	BIFFNumber     = 0x0203
	BIFFBoolErr    = 0x0205
	BIFFRK         = 0x027E
	BIFFBOF        = 0x0809
)

var le = binary.LittleEndian

// BIFFRecord frames data as one record.
func BIFFRecord(id uint16, data []byte) []byte {
	out := le.AppendUint16(nil, id)
	out = le.AppendUint16(out, uint16(len(data)))
	return append(out, data...)
}

// BIFFBOFRecord opens a substream: 0x0005 for globals, 0x0010 for a
// worksheet. version is 0x0600 for BIFF8.
func BIFFBOFRecord(version, substream uint16) []byte {
	data := le.AppendUint16(nil, version)
	data = le.AppendUint16(data, substream)
	data = append(data, make([]byte, 12)...)
	return BIFFRecord(BIFFBOF, data)
}

var sheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// BIFFStream renders sheets as a BIFF8 workbook stream. Strings go through
// the shared string table, whole numbers and dates are stored as RK values,
// other floats as NUMBER records. Sheets are written in name order.
func BIFFStream(sheets map[string][][]any, globals ...[]byte) []byte {
	names := make([]string, 0, len(sheets))
	for name := range sheets {
		names = append(names, name)
	}
	slices.Sort(names)

	var sst []string
	intern := func(s string) int {
		if i := slices.Index(sst, s); i >= 0 {
			return i
		}
		sst = append(sst, s)
		return len(sst) - 1
	}

	bodies := make([][]byte, len(names))
	for i, name := range names {
		body := BIFFBOFRecord(0x0600, 0x0010)
		for r, row := range sheets[name] {
			for c, v := range row {
				body = append(body, biffCell(r, c, v, intern)...)
			}
		}
		bodies[i] = append(body, BIFFRecord(BIFFEOF, nil)...)
	}

	var sstData []byte
	sstData = le.AppendUint32(sstData, uint32(len(sst)))
	sstData = le.AppendUint32(sstData, uint32(len(sst)))
	for _, s := range sst {
		sstData = append(sstData, xlUnicode(s)...)
	}

	head := BIFFBOFRecord(0x0600, 0x0005)
	for _, g := range globals {
		head = append(head, g...)
	}
	// the sheet offsets do not change the size of the sheet entries
	size := len(head) + len(BIFFRecord(BIFFSST, sstData)) + 4
	for _, name := range names {
		size += 4 + 8 + len(name)
	}

	out := head
	offset := size
	for i, name := range names {
		data := le.AppendUint32(nil, uint32(offset))
		data = append(data, 0, 0, byte(len(name)), 0)
		data = append(data, name...)
		out = append(out, BIFFRecord(BIFFBoundSheet, data)...)
		offset += len(bodies[i])
	}
	out = append(out, BIFFRecord(BIFFSST, sstData)...)
	out = append(out, BIFFRecord(BIFFEOF, nil)...)
	for _, body := range bodies {
		out = append(out, body...)
	}
	return out
}

func biffCell(row, col int, v any, intern func(string) int) []byte {
	head := le.AppendUint16(nil, uint16(row))
	head = le.AppendUint16(head, uint16(col))
	head = le.AppendUint16(head, 0x0F)

	switch x := v.(type) {
	case string:
		if x == "" {
			return nil
		}
		return BIFFRecord(BIFFLabelSST, le.AppendUint32(head, uint32(intern(x))))
	case bool:
		b := byte(0)
		if x {
			b = 1
		}
		return BIFFRecord(BIFFBoolErr, append(head, b, 0))
	case time.Time:
		return biffNumber(head, math.Floor(x.Sub(sheetEpoch).Hours()/24))
	case int:
		return biffNumber(head, float64(x))
	case float64:
		return biffNumber(head, x)
	}
	return nil
}

func biffNumber(head []byte, f float64) []byte {
	if f == math.Trunc(f) && f >= -(1<<29) && f < 1<<29 {
		rk := uint32(int32(f))<<2 | 0x02
		return BIFFRecord(BIFFRK, le.AppendUint32(head, rk))
	}
	return BIFFRecord(BIFFNumber, le.AppendUint64(head, math.Float64bits(f)))
}

// xlUnicode encodes a shared string: compressed when every rune fits in a
// byte, UTF-16 otherwise.
func xlUnicode(s string) []byte {
	runes := []rune(s)
	wide := false
	for _, r := range runes {
		if r > 0xFF {
			wide = true
		}
	}
	if !wide {
		out := le.AppendUint16(nil, uint16(len(runes)))
		out = append(out, 0)
		for _, r := range runes {
			out = append(out, byte(r))
		}
		return out
	}
	units := utf16.Encode(runes)
	out := le.AppendUint16(nil, uint16(len(units)))
	out = append(out, 1)
	for _, u := range units {
		out = le.AppendUint16(out, u)
	}
	return out
}

// CompoundFile wraps a workbook stream in a version 3 OLE2 compound file:
// header, one FAT sector, one directory sector, then the stream. The stream
// is padded to the mini stream cutoff so it lives in regular sectors.
func CompoundFile(stream []byte) []byte {
	const (
		sector     = 512
		cutoff     = 4096
		freeSect   = 0xFFFFFFFF
		endOfChain = 0xFFFFFFFE
		fatSect    = 0xFFFFFFFD
		noStream   = 0xFFFFFFFF
	)
	if len(stream) < cutoff {
		stream = append(slices.Clone(stream), make([]byte, cutoff-len(stream))...)
	}
	n := (len(stream) + sector - 1) / sector
	if 2+n > sector/4 {
		panic("workbook fixture does not fit one FAT sector")
	}

	header := make([]byte, sector)
	copy(header, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	le.PutUint16(header[24:], 0x003E)
	le.PutUint16(header[26:], 3)
	le.PutUint16(header[28:], 0xFFFE)
	le.PutUint16(header[30:], 9)
	le.PutUint16(header[32:], 6)
	le.PutUint32(header[44:], 1)
	le.PutUint32(header[48:], 1)
	le.PutUint32(header[56:], cutoff)
	le.PutUint32(header[60:], endOfChain)
	le.PutUint32(header[68:], endOfChain)
	for i := range 109 {
		le.PutUint32(header[76+4*i:], freeSect)
	}
	le.PutUint32(header[76:], 0)

	fat := make([]byte, sector)
	for i := range sector / 4 {
		le.PutUint32(fat[4*i:], freeSect)
	}
	le.PutUint32(fat[0:], fatSect)
	le.PutUint32(fat[4:], endOfChain)
	for i := range n {
		next := uint32(3 + i)
		if i == n-1 {
			next = endOfChain
		}
		le.PutUint32(fat[4*(2+i):], next)
	}

	dir := make([]byte, sector)
	entry := func(i int, name string, kind byte, child, start uint32, size int) {
		e := dir[128*i : 128*(i+1)]
		units := utf16.Encode([]rune(name))
		for j, u := range units {
			le.PutUint16(e[2*j:], u)
		}
		if name != "" {
			le.PutUint16(e[64:], uint16(2*(len(units)+1)))
		}
		e[66] = kind
		e[67] = 1
		le.PutUint32(e[68:], noStream)
		le.PutUint32(e[72:], noStream)
		le.PutUint32(e[76:], child)
		le.PutUint32(e[116:], start)
		le.PutUint32(e[120:], uint32(size))
	}
	entry(0, "Root Entry", 5, 1, endOfChain, 0)
	entry(1, "Workbook", 2, noStream, 2, len(stream))
	entry(2, "", 0, noStream, 0, 0)
	entry(3, "", 0, noStream, 0, 0)

	out := append(header, fat...)
	out = append(out, dir...)
	out = append(out, stream...)
	return append(out, make([]byte, n*sector-len(stream))...)
}

// WriteXLS saves sheets as a legacy .xls workbook under dir and returns its
// path.
func WriteXLS(t testing.TB, dir, name string, sheets map[string][][]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, CompoundFile(BIFFStream(sheets)), 0o644))
	return path
}
