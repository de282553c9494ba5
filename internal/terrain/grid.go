package terrain

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/topomap/internal/fsutil"
)

// MinGridDim is the smallest row or column count that can be projected.
const MinGridDim = 2

// maxLineBytes bounds a single data row. A 10k-column grid of 6-digit
// elevations fits comfortably.
const maxLineBytes = 16 * 1024 * 1024

// MaxGridCells bounds rows*cols as declared by a header. Larger headers are
// rejected as malformed before any data is read.
const MaxGridCells = 1 << 30

// maxInitialCells caps the up-front allocation; append grows past it.
const maxInitialCells = 1 << 20

// ElevationGrid is a rectangular grid of elevations in meters, stored
// row-major. Row i samples latitude, column j samples longitude.
type ElevationGrid struct {
	Rows       int
	Cols       int
	Elevations []int
}

// NewElevationGrid builds a grid from nested rows, rejecting ragged input.
func NewElevationGrid(rows [][]int) (*ElevationGrid, error) {
	if len(rows) < MinGridDim {
		return nil, &ConfigError{Field: "rows", Msg: fmt.Sprintf("must be >= %d, got %d", MinGridDim, len(rows))}
	}
	cols := len(rows[0])
	if cols < MinGridDim {
		return nil, &ConfigError{Field: "cols", Msg: fmt.Sprintf("must be >= %d, got %d", MinGridDim, cols)}
	}
	g := &ElevationGrid{Rows: len(rows), Cols: cols, Elevations: make([]int, 0, len(rows)*cols)}
	for i, r := range rows {
		if len(r) != cols {
			return nil, formatErrorf(0, "row %d has %d values, want %d", i, len(r), cols)
		}
		g.Elevations = append(g.Elevations, r...)
	}
	return g, nil
}

// Index returns the row-major offset of cell (i, j).
func (g *ElevationGrid) Index(i, j int) int { return i*g.Cols + j }

// At returns the elevation of cell (i, j).
func (g *ElevationGrid) At(i, j int) int { return g.Elevations[i*g.Cols+j] }

// Len is the number of cells.
func (g *ElevationGrid) Len() int { return g.Rows * g.Cols }

// Row returns a view of row i. Callers must not modify it.
func (g *ElevationGrid) Row(i int) []int {
	return g.Elevations[i*g.Cols : (i+1)*g.Cols]
}

// Clone returns a deep copy.
func (g *ElevationGrid) Clone() *ElevationGrid {
	c := *g
	c.Elevations = append([]int(nil), g.Elevations...)
	return &c
}

// MinMax returns the lowest and highest elevation in the grid.
func (g *ElevationGrid) MinMax() (lo, hi int) {
	lo, hi = g.Elevations[0], g.Elevations[0]
	for _, e := range g.Elevations[1:] {
		if e < lo {
			lo = e
		}
		if e > hi {
			hi = e
		}
	}
	return lo, hi
}

// LoadGrid parses a grid whose first line is "<rows> <cols>" followed by
// rows lines of cols whitespace-separated integers.
func LoadGrid(r io.Reader) (*ElevationGrid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, formatErrorf(1, "missing header")
	}
	rows, cols, err := parseHeader(sc.Text())
	if err != nil {
		return nil, err
	}

	g := &ElevationGrid{Rows: rows, Cols: cols, Elevations: make([]int, 0, min(rows*cols, maxInitialCells))}
	line := 1
	for i := 0; i < rows; i++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("read row %d: %w", i, err)
			}
			return nil, formatErrorf(0, "expected %d data rows, got %d", rows, i)
		}
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) != cols {
			return nil, formatErrorf(line, "expected %d values, got %d", cols, len(fields))
		}
		for _, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, formatErrorf(line, "invalid elevation %q", f)
			}
			g.Elevations = append(g.Elevations, v)
		}
	}

	// Trailing blank lines are tolerated; trailing data is not.
	for sc.Scan() {
		line++
		if strings.TrimSpace(sc.Text()) != "" {
			return nil, formatErrorf(line, "unexpected data after %d rows", rows)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trailer: %w", err)
	}
	return g, nil
}

func parseHeader(s string) (rows, cols int, err error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, formatErrorf(1, "header must be \"<rows> <cols>\", got %q", s)
	}
	rows, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, formatErrorf(1, "invalid row count %q", fields[0])
	}
	cols, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, formatErrorf(1, "invalid column count %q", fields[1])
	}
	if rows < MinGridDim {
		return 0, 0, &ConfigError{Field: "rows", Msg: fmt.Sprintf("must be >= %d, got %d", MinGridDim, rows)}
	}
	if cols < MinGridDim {
		return 0, 0, &ConfigError{Field: "cols", Msg: fmt.Sprintf("must be >= %d, got %d", MinGridDim, cols)}
	}
	// Divide instead of multiplying so the check itself cannot overflow.
	if cols > MaxGridCells/rows {
		return 0, 0, formatErrorf(1, "header declares %d x %d cells, limit is %d", rows, cols, MaxGridCells)
	}
	return rows, cols, nil
}

// LoadGridFile opens path through fsys and parses it. Files ending in .gz
// are decompressed on the fly.
func LoadGridFile(fsys fsutil.FileSystem, path string) (*ElevationGrid, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid %q: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip grid %q: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	g, err := LoadGrid(r)
	if err != nil {
		return nil, fmt.Errorf("load grid %q: %w", path, err)
	}
	return g, nil
}
