package feature

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Binary cache formats. A point file holds one sequence of interest
// points; a match file holds two parallel sequences of equal length.

const (
	pointsMagic  = "JIP1"
	matchesMagic = "JMF1"
)

func appendPoint(buf *bytes.Buffer, p InterestPoint) {
	var scratch [8]byte
	for _, v := range []float64{p.X, p.Y, p.Scale, p.Orientation} {
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(v))
		buf.Write(scratch[:])
	}
	binary.LittleEndian.PutUint32(scratch[:4], uint32(len(p.Descriptor)))
	buf.Write(scratch[:4])
	for _, d := range p.Descriptor {
		binary.LittleEndian.PutUint32(scratch[:4], math.Float32bits(d))
		buf.Write(scratch[:4])
	}
}

func readPoint(data []byte) (InterestPoint, int, error) {
	if len(data) < 36 {
		return InterestPoint{}, 0, fmt.Errorf("interest point record truncated")
	}
	var p InterestPoint
	p.X = math.Float64frombits(binary.LittleEndian.Uint64(data[0:]))
	p.Y = math.Float64frombits(binary.LittleEndian.Uint64(data[8:]))
	p.Scale = math.Float64frombits(binary.LittleEndian.Uint64(data[16:]))
	p.Orientation = math.Float64frombits(binary.LittleEndian.Uint64(data[24:]))
	n := int(binary.LittleEndian.Uint32(data[32:]))
	size := 36 + 4*n
	if n < 0 || len(data) < size {
		return InterestPoint{}, 0, fmt.Errorf("interest point descriptor truncated")
	}
	if n > 0 {
		p.Descriptor = make([]float32, n)
		for i := range p.Descriptor {
			p.Descriptor[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[36+4*i:]))
		}
	}
	return p, size, nil
}

func encodeSequence(buf *bytes.Buffer, points []InterestPoint) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(points)))
	buf.Write(scratch[:])
	for _, p := range points {
		appendPoint(buf, p)
	}
}

func decodeSequence(data []byte) ([]InterestPoint, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("interest point sequence truncated")
	}
	count := int(binary.LittleEndian.Uint32(data))
	// Each record is at least 36 bytes; a count larger than the payload
	// could support is corrupt, so never preallocate past it.
	maxRecords := (len(data) - 4) / 36
	prealloc := count
	if prealloc > maxRecords {
		prealloc = maxRecords
	}
	points := make([]InterestPoint, 0, prealloc)
	off := 4
	for i := 0; i < count; i++ {
		p, size, err := readPoint(data[off:])
		if err != nil {
			return nil, 0, err
		}
		points = append(points, p)
		off += size
	}
	return points, off, nil
}

// EncodePoints serializes an interest point sequence.
func EncodePoints(points []InterestPoint) []byte {
	var buf bytes.Buffer
	buf.WriteString(pointsMagic)
	encodeSequence(&buf, points)
	return buf.Bytes()
}

// DecodePoints parses an interest point sequence.
func DecodePoints(data []byte) ([]InterestPoint, error) {
	if len(data) < 4 || string(data[:4]) != pointsMagic {
		return nil, fmt.Errorf("interest point file: bad header")
	}
	points, _, err := decodeSequence(data[4:])
	return points, err
}

// EncodeMatches serializes two parallel correspondence sequences. The
// lists must be index-aligned and of equal length.
func EncodeMatches(a, b []InterestPoint) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("match lists have unequal lengths %d and %d", len(a), len(b))
	}
	var buf bytes.Buffer
	buf.WriteString(matchesMagic)
	encodeSequence(&buf, a)
	encodeSequence(&buf, b)
	return buf.Bytes(), nil
}

// DecodeMatches parses two parallel correspondence sequences.
func DecodeMatches(data []byte) (a, b []InterestPoint, err error) {
	if len(data) < 4 || string(data[:4]) != matchesMagic {
		return nil, nil, fmt.Errorf("match file: bad header")
	}
	a, n, err := decodeSequence(data[4:])
	if err != nil {
		return nil, nil, err
	}
	b, _, err = decodeSequence(data[4+n:])
	if err != nil {
		return nil, nil, err
	}
	if len(a) != len(b) {
		return nil, nil, fmt.Errorf("match file: unequal lists %d and %d", len(a), len(b))
	}
	return a, b, nil
}
