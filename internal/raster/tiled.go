package raster

import (
	"container/list"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Orbital strips can be far too tall to hold in memory, so intermediate
// rasters are stored in a simple tiled float32 format and read back one
// fixed-size tile at a time through a small LRU cache.

const gridMagic = "JRG1"

// DefaultTileSize is the edge length of grid file tiles.
const DefaultTileSize = 256

// defaultTileBudget is how many decoded tiles a GridImage keeps resident.
const defaultTileBudget = 16

// WriteGridFile writes a raster to the tiled float32 grid format. The
// source is consumed tile by tile, so it may itself be a lazy view.
func WriteGridFile(path string, img Image, tileSize int) error {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create grid file %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, 16)
	copy(header, gridMagic)
	binary.LittleEndian.PutUint32(header[4:], uint32(img.Cols()))
	binary.LittleEndian.PutUint32(header[8:], uint32(img.Rows()))
	binary.LittleEndian.PutUint32(header[12:], uint32(tileSize))
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("write grid header: %w", err)
	}

	buf := make([]byte, 4*tileSize*tileSize)
	tilesX := (img.Cols() + tileSize - 1) / tileSize
	tilesY := (img.Rows() + tileSize - 1) / tileSize
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			// Tiles are always full size; out-of-image cells are zero.
			for i := range buf {
				buf[i] = 0
			}
			x0, y0 := tx*tileSize, ty*tileSize
			for y := 0; y < tileSize && y0+y < img.Rows(); y++ {
				for x := 0; x < tileSize && x0+x < img.Cols(); x++ {
					v := img.At(x0+x, y0+y)
					binary.LittleEndian.PutUint32(buf[4*(y*tileSize+x):], math.Float32bits(v))
				}
			}
			if _, err := f.Write(buf); err != nil {
				return fmt.Errorf("write grid tile (%d,%d): %w", tx, ty, err)
			}
		}
	}
	return nil
}

// GridImage is a disk-backed raster in the tiled grid format. Tiles are
// decoded on demand and held in an LRU cache, so arbitrarily large rasters
// can be scanned with bounded memory.
type GridImage struct {
	f          *os.File
	cols, rows int
	tileSize   int
	tilesX     int
	budget     int
	cached     map[int]*list.Element
	order      *list.List // front = most recently used
}

type gridTile struct {
	index int
	pix   []float32
}

// OpenGridFile opens a tiled grid raster for reading.
func OpenGridFile(path string) (*GridImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid file %s: %w", path, err)
	}
	header := make([]byte, 16)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("read grid header %s: %w", path, err)
	}
	if string(header[:4]) != gridMagic {
		f.Close()
		return nil, fmt.Errorf("grid file %s: bad magic", path)
	}
	cols := int(binary.LittleEndian.Uint32(header[4:]))
	rows := int(binary.LittleEndian.Uint32(header[8:]))
	tileSize := int(binary.LittleEndian.Uint32(header[12:]))
	if cols <= 0 || rows <= 0 || tileSize <= 0 {
		f.Close()
		return nil, fmt.Errorf("grid file %s: invalid dimensions %dx%d tile %d", path, cols, rows, tileSize)
	}
	return &GridImage{
		f:        f,
		cols:     cols,
		rows:     rows,
		tileSize: tileSize,
		tilesX:   (cols + tileSize - 1) / tileSize,
		budget:   defaultTileBudget,
		cached:   map[int]*list.Element{},
		order:    list.New(),
	}, nil
}

// Close releases the underlying file.
func (g *GridImage) Close() error { return g.f.Close() }

// Cols returns the raster width.
func (g *GridImage) Cols() int { return g.cols }

// Rows returns the raster height.
func (g *GridImage) Rows() int { return g.rows }

// At returns the sample at (x, y), faulting in the containing tile if it
// is not resident.
func (g *GridImage) At(x, y int) float32 {
	ts := g.tileSize
	index := (y/ts)*g.tilesX + x/ts
	tile, err := g.tile(index)
	if err != nil {
		// Read errors surface as zero samples; the pipeline treats a
		// truncated grid file as fatal when it is first opened.
		return 0
	}
	return tile.pix[(y%ts)*ts+(x%ts)]
}

func (g *GridImage) tile(index int) (*gridTile, error) {
	if el, ok := g.cached[index]; ok {
		g.order.MoveToFront(el)
		return el.Value.(*gridTile), nil
	}

	ts := g.tileSize
	buf := make([]byte, 4*ts*ts)
	offset := int64(16) + int64(index)*int64(len(buf))
	if _, err := g.f.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("read grid tile %d: %w", index, err)
	}
	pix := make([]float32, ts*ts)
	for i := range pix {
		pix[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}

	tile := &gridTile{index: index, pix: pix}
	g.cached[index] = g.order.PushFront(tile)
	for g.order.Len() > g.budget {
		oldest := g.order.Back()
		g.order.Remove(oldest)
		delete(g.cached, oldest.Value.(*gridTile).index)
	}
	return tile, nil
}
