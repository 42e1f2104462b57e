package email

import (
	"reflect"
	"testing"
)

func TestSplitColumnsDistributesRemainderToLeadingColumns(t *testing.T) {
	cases := []struct {
		n    int
		want []int
	}{
		{1, []int{12}},
		{2, []int{6, 6}},
		{3, []int{4, 4, 4}},
		{4, []int{3, 3, 3, 3}},
		{5, []int{3, 3, 2, 2, 2}},
		{0, []int{12}},
		{-3, []int{12}},
	}
	for _, tc := range cases {
		got := SplitColumns(tc.n)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitColumns(%d) = %v, want %v", tc.n, got, tc.want)
		}
		sum := 0
		for _, w := range got {
			sum += w
		}
		if sum != GridUnits {
			t.Errorf("SplitColumns(%d) sums to %d", tc.n, sum)
		}
	}
}

func TestResizeColumnsMovesBoundary(t *testing.T) {
	widths := []int{4, 4, 4}
	got, ok := ResizeColumns(widths, 0, 1)
	if !ok {
		t.Fatal("expected resize to be accepted")
	}
	if want := []int{5, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	// Input slice is never mutated.
	if want := []int{4, 4, 4}; !reflect.DeepEqual(widths, want) {
		t.Fatalf("input mutated: %v", widths)
	}
}

func TestResizeColumnsRejectsBelowMinimum(t *testing.T) {
	widths := []int{6, 6}
	got, ok := ResizeColumns(widths, 0, -4)
	if ok {
		t.Fatal("resize to [2,10] must be rejected")
	}
	if !reflect.DeepEqual(got, []int{6, 6}) {
		t.Fatalf("rejected resize changed widths: %v", got)
	}

	if _, ok := ResizeColumns([]int{4, 4, 4}, 0, 2); ok {
		t.Fatal("resize to [6,2,4] must be rejected")
	}
}

func TestResizeColumnsRejectsBadBoundary(t *testing.T) {
	widths := []int{6, 6}
	if _, ok := ResizeColumns(widths, 1, 1); ok {
		t.Fatal("boundary past the last column pair must be rejected")
	}
	if _, ok := ResizeColumns(widths, -1, 1); ok {
		t.Fatal("negative boundary must be rejected")
	}
	if _, ok := ResizeColumns(widths, 0, 0); ok {
		t.Fatal("zero delta is a no-op")
	}
}

func TestResizeColumnsPreservesTotal(t *testing.T) {
	widths := SplitColumns(3)
	for _, delta := range []int{1, -1, 2, 3} {
		next, ok := ResizeColumns(widths, 1, delta)
		if !ok {
			continue
		}
		sum := 0
		for _, w := range next {
			sum += w
		}
		if sum != GridUnits {
			t.Errorf("delta %d: widths %v sum to %d", delta, next, sum)
		}
	}
}

func TestUnitsForPixelDelta(t *testing.T) {
	// 600px container: one unit is 50px.
	if got := UnitsForPixelDelta(50, 600); got != 1 {
		t.Errorf("50px/600px = %d units, want 1", got)
	}
	if got := UnitsForPixelDelta(-120, 600); got != -2 {
		t.Errorf("-120px/600px = %d units, want -2", got)
	}
	if got := UnitsForPixelDelta(20, 600); got != 0 {
		t.Errorf("20px/600px = %d units, want 0", got)
	}
	if got := UnitsForPixelDelta(100, 0); got != 0 {
		t.Errorf("zero container width must yield 0, got %d", got)
	}
}

func TestColumnsValid(t *testing.T) {
	if !ColumnsValid([]int{5, 3, 4}) {
		t.Error("[5,3,4] should be valid")
	}
	if ColumnsValid([]int{6, 5}) {
		t.Error("[6,5] sums to 11, should be invalid")
	}
	if ColumnsValid(nil) {
		t.Error("empty partition should be invalid")
	}
	if ColumnsValid([]int{12, 0}) {
		t.Error("zero-width column should be invalid")
	}
}
