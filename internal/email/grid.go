package email

import "math"

// Column widths are accounted in twelfths of the layout width. Resize
// never lets a column shrink below MinColumnUnits; the initial split may
// produce narrower columns when more than four are requested, matching
// the editor's historical behavior.
const (
	GridUnits      = 12
	MinColumnUnits = 3

	// DefaultLayoutColumns is used when a layout drop carries no usable
	// column count.
	DefaultLayoutColumns = 2
)

// SplitColumns produces the initial width partition for n columns:
// floor(GridUnits/n) everywhere, with the remainder handed out one unit
// at a time to the leading columns. n < 1 is treated as 1.
func SplitColumns(n int) []int {
	if n < 1 {
		n = 1
	}
	base := GridUnits / n
	rem := GridUnits % n
	widths := make([]int, n)
	for i := range widths {
		widths[i] = base
		if i < rem {
			widths[i]++
		}
	}
	return widths
}

// ResizeColumns moves the boundary between columns boundary and
// boundary+1 by delta units: positive delta grows the left column and
// shrinks the right by the same amount, so the total never changes. The
// resize is rejected (original slice returned, false) when the boundary
// is out of range or either resulting width would fall below
// MinColumnUnits.
func ResizeColumns(widths []int, boundary, delta int) ([]int, bool) {
	if boundary < 0 || boundary+1 >= len(widths) {
		return widths, false
	}
	if delta == 0 {
		return widths, false
	}
	left := widths[boundary] + delta
	right := widths[boundary+1] - delta
	if left < MinColumnUnits || right < MinColumnUnits {
		return widths, false
	}
	next := append([]int(nil), widths...)
	next[boundary] = left
	next[boundary+1] = right
	return next, true
}

// UnitsForPixelDelta converts a pointer movement in pixels into whole
// grid units for a container of the given width. Gesture code calls this
// with the incremental delta of each pointer event, not the cumulative
// one, so rounding never accumulates drift.
func UnitsForPixelDelta(pixelDelta, containerWidthPx float64) int {
	if containerWidthPx <= 0 {
		return 0
	}
	return int(math.Round(pixelDelta / (containerWidthPx / GridUnits)))
}

// ColumnsValid reports whether widths is a legal partition: non-empty and
// summing to GridUnits. It does not require the per-column minimum, which
// only binds resize operations.
func ColumnsValid(widths []int) bool {
	if len(widths) == 0 {
		return false
	}
	sum := 0
	for _, w := range widths {
		if w < 1 {
			return false
		}
		sum += w
	}
	return sum == GridUnits
}
