// Package testutil provides shared test utilities and fixtures.
//
// The fixtures build small elevation grids in the text format the loader
// reads, so tests in different packages agree on the same terrain.
package testutil

import (
	"fmt"
	"strings"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// GridFunc returns the elevation of cell (i, j).
type GridFunc func(i, j int) int

// GridRows evaluates f over a rows x cols grid.
func GridRows(rows, cols int, f GridFunc) [][]int {
	out := make([][]int, rows)
	for i := range out {
		out[i] = make([]int, cols)
		for j := range out[i] {
			out[i][j] = f(i, j)
		}
	}
	return out
}

// GridText renders a grid in loader format: a "<rows> <cols>" header then
// one whitespace-separated line per row.
func GridText(rows, cols int, f GridFunc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %d\n", rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d", f(i, j))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Unique gives every cell a distinct elevation, so no two neighbours are
// equal and no flat region forms.
func Unique(cols int) GridFunc {
	return func(i, j int) int { return 1000 + i*cols + j }
}

// WithPlateau overlays a flat block of height h on base, covering rows
// [r0, r0+n) and columns [c0, c0+m).
func WithPlateau(base GridFunc, r0, c0, n, m, h int) GridFunc {
	return func(i, j int) int {
		if i >= r0 && i < r0+n && j >= c0 && j < c0+m {
			return h
		}
		return base(i, j)
	}
}

// Constant returns h everywhere.
func Constant(h int) GridFunc {
	return func(int, int) int { return h }
}
