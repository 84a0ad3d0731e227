// Package shapes defines the Shape type used to describe values of the HLO graph:
// an element data type (dtype), dimensions and a physical layout.
//
// The layout is the "minor-to-major" axis permutation of XLA: Layout[0] is the
// fastest-varying (minor-most) axis in memory. A nil Layout means the default
// layout, the descending permutation {rank-1, ..., 1, 0} (row-major).
//
// Shapes can also be tuples (e.g., the result of a variadic reduce), in which
// case TupleShapes holds the element shapes.
package shapes

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hlo/internal/utils"
	"github.com/pkg/errors"
)

// Shape of a value: a dtype plus dimensions plus an optional explicit layout,
// or a tuple of shapes.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int

	// Layout is the minor-to-major axis order. Empty means the default
	// (descending) layout.
	Layout []int

	// TupleShapes is non-nil for tuple shapes; DType and Dimensions are then unused.
	TupleShapes []Shape
}

// Make creates a Shape with the default layout. No dimensions means a scalar.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	return Shape{DType: dtype, Dimensions: dimensions}
}

// MakeWithLayout creates a Shape with an explicit minor-to-major layout.
// The layout must be a permutation of the axes.
func MakeWithLayout(dtype dtypes.DType, dimensions, layout []int) (Shape, error) {
	s := Shape{DType: dtype, Dimensions: dimensions, Layout: layout}
	if !isPermutation(layout, len(dimensions)) {
		return Invalid(), errors.Errorf("layout %v is not a permutation of the %d axes", layout, len(dimensions))
	}
	return s, nil
}

// MakeTuple creates a tuple shape with the given element shapes.
func MakeTuple(elements []Shape) Shape {
	return Shape{DType: dtypes.InvalidDType, TupleShapes: slices.Clone(elements)}
}

// Invalid returns an invalid shape.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether the shape is valid.
func (s Shape) Ok() bool {
	return s.DType != dtypes.InvalidDType || s.IsTuple()
}

// IsTuple returns whether the shape is a tuple shape.
func (s Shape) IsTuple() bool {
	return s.TupleShapes != nil
}

// IsScalar returns whether the shape is a scalar (rank 0, not a tuple).
func (s Shape) IsScalar() bool {
	return !s.IsTuple() && len(s.Dimensions) == 0
}

// Rank of the shape. Tuples have no rank.
func (s Shape) Rank() int {
	return len(s.Dimensions)
}

// Size is the number of elements of the shape (the product of its dimensions).
func (s Shape) Size() int {
	size := 1
	for _, dim := range s.Dimensions {
		size *= dim
	}
	return size
}

// Memory returns the number of bytes needed to store the shape's data.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Clone makes a deep copy of the shape.
func (s Shape) Clone() Shape {
	c := Shape{
		DType:      s.DType,
		Dimensions: slices.Clone(s.Dimensions),
		Layout:     slices.Clone(s.Layout),
	}
	if s.IsTuple() {
		c.TupleShapes = make([]Shape, len(s.TupleShapes))
		for i, element := range s.TupleShapes {
			c.TupleShapes[i] = element.Clone()
		}
	}
	return c
}

// Equal compares dtype and dimensions (element shapes for tuples), ignoring layout.
func (s Shape) Equal(other Shape) bool {
	if s.IsTuple() != other.IsTuple() {
		return false
	}
	if s.IsTuple() {
		if len(s.TupleShapes) != len(other.TupleShapes) {
			return false
		}
		for i, element := range s.TupleShapes {
			if !element.Equal(other.TupleShapes[i]) {
				return false
			}
		}
		return true
	}
	return s.DType == other.DType && slices.Equal(s.Dimensions, other.Dimensions)
}

// EqualWithLayout compares like Equal and additionally requires the same
// physical layout (minor-to-major order).
func (s Shape) EqualWithLayout(other Shape) bool {
	if !s.Equal(other) {
		return false
	}
	if s.IsTuple() {
		for i, element := range s.TupleShapes {
			if !element.EqualWithLayout(other.TupleShapes[i]) {
				return false
			}
		}
		return true
	}
	return slices.Equal(s.LayoutOrDefault(), other.LayoutOrDefault())
}

// DefaultLayout returns the default (descending) minor-to-major order for a rank.
func DefaultLayout(rank int) []int {
	layout := make([]int, rank)
	for i := range layout {
		layout[i] = rank - 1 - i
	}
	return layout
}

// LayoutOrDefault returns the shape's layout, substituting the default layout
// when none is set explicitly.
func (s Shape) LayoutOrDefault() []int {
	if s.Layout != nil {
		return s.Layout
	}
	return DefaultLayout(s.Rank())
}

// HasDefaultLayout returns whether the shape's physical layout is the default
// descending minor-to-major order.
func (s Shape) HasDefaultLayout() bool {
	if s.Layout == nil {
		return true
	}
	return slices.Equal(s.Layout, DefaultLayout(s.Rank()))
}

// WithLayout returns a copy of the shape with the given minor-to-major layout.
func (s Shape) WithLayout(layout []int) (Shape, error) {
	if s.IsTuple() {
		return Invalid(), errors.New("cannot set the layout of a tuple shape")
	}
	if !isPermutation(layout, s.Rank()) {
		return Invalid(), errors.Errorf("layout %v is not a permutation of the %d axes of shape %s", layout, s.Rank(), s)
	}
	c := s.Clone()
	c.Layout = slices.Clone(layout)
	return c, nil
}

func isPermutation(layout []int, rank int) bool {
	if layout == nil {
		return true
	}
	if len(layout) != rank {
		return false
	}
	seen := utils.MakeSet[int](rank)
	for _, axis := range layout {
		if axis < 0 || axis >= rank || seen.Has(axis) {
			return false
		}
		seen.Insert(axis)
	}
	return true
}

// String renders the shape in HLO text format, e.g. "f32[2,4]{1,0}" or
// "(f32[2]{0}, u32[2]{0})" for tuples. Scalars render without layout: "f32[]".
func (s Shape) String() string {
	if s.IsTuple() {
		parts := make([]string, len(s.TupleShapes))
		for i, element := range s.TupleShapes {
			parts[i] = element.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	var b strings.Builder
	b.WriteString(utils.DTypeToHLO(s.DType))
	b.WriteByte('[')
	for i, dim := range s.Dimensions {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(dim))
	}
	b.WriteByte(']')
	if s.Rank() > 0 {
		b.WriteByte('{')
		for i, axis := range s.LayoutOrDefault() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(axis))
		}
		b.WriteByte('}')
	}
	return b.String()
}

// GoString implements fmt.GoStringer for friendlier %#v output.
func (s Shape) GoString() string {
	return fmt.Sprintf("shapes.Shape(%s)", s)
}
