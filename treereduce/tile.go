package treereduce

import "math"

// TileSpec is the two-level factorization of a reduced extent: the extent is
// padded to PaddedTotal and reinterpreted as Outer x Inner tiles.
type TileSpec struct {
	Outer       int
	Inner       int
	PaddedTotal int
}

// IsSplit reports whether the spec describes a real split; {1, n, n} means
// the extent is left whole.
func (t TileSpec) IsSplit() bool {
	return t.Outer > 1
}

// SplitExtent factorizes a reduced extent n into near-square Outer x Inner
// tiles covering it with minimal padding. When n divides evenly by the
// rounded-up square root both factors are exact and PaddedTotal == n;
// otherwise both factors are the rounded-up square root and the difference is
// padding. Extents under minTileWidth squared are not worth splitting and
// yield {1, n, n}.
//
// Pure and deterministic: the same n always yields the same spec.
func SplitExtent(n, minTileWidth int) TileSpec {
	if n < minTileWidth*minTileWidth {
		return TileSpec{Outer: 1, Inner: n, PaddedTotal: n}
	}
	width := int(math.Ceil(math.Sqrt(float64(n))))
	if n%width == 0 {
		return TileSpec{Outer: n / width, Inner: width, PaddedTotal: n}
	}
	return TileSpec{Outer: width, Inner: width, PaddedTotal: width * width}
}
