package disparity

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

const fieldMagic = "JDF1"

// Encode serializes a field to its binary form: a 12-byte header (magic,
// cols, rows) followed by one record per cell in row-major order.
func Encode(f *Field) []byte {
	var buf bytes.Buffer
	buf.WriteString(fieldMagic)

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:], uint32(f.cols))
	binary.LittleEndian.PutUint32(header[4:], uint32(f.rows))
	buf.Write(header[:])

	var cell [9]byte
	for y := 0; y < f.rows; y++ {
		for x := 0; x < f.cols; x++ {
			dx, dy, valid := f.Get(x, y)
			if valid {
				cell[0] = 1
			} else {
				cell[0] = 0
				dx, dy = 0, 0
			}
			binary.LittleEndian.PutUint32(cell[1:], math.Float32bits(dx))
			binary.LittleEndian.PutUint32(cell[5:], math.Float32bits(dy))
			buf.Write(cell[:])
		}
	}
	return buf.Bytes()
}

// Decode parses a field from its binary form.
func Decode(data []byte) (*Field, error) {
	if len(data) < 12 || string(data[:4]) != fieldMagic {
		return nil, fmt.Errorf("disparity field: bad header")
	}
	cols := int(binary.LittleEndian.Uint32(data[4:]))
	rows := int(binary.LittleEndian.Uint32(data[8:]))
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("disparity field: invalid size %dx%d", cols, rows)
	}
	want := 12 + 9*cols*rows
	if len(data) != want {
		return nil, fmt.Errorf("disparity field: size %d, want %d for %dx%d", len(data), want, cols, rows)
	}

	f := NewField(cols, rows)
	off := 12
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if data[off] == 1 {
				dx := math.Float32frombits(binary.LittleEndian.Uint32(data[off+1:]))
				dy := math.Float32frombits(binary.LittleEndian.Uint32(data[off+5:]))
				f.Set(x, y, dx, dy)
			}
			off += 9
		}
	}
	return f, nil
}

// WriteFile writes a field to disk.
func WriteFile(path string, f *Field) error {
	if err := os.WriteFile(path, Encode(f), 0o644); err != nil {
		return fmt.Errorf("write disparity field %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a field from disk.
func ReadFile(path string) (*Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read disparity field %s: %w", path, err)
	}
	return Decode(data)
}
