package hlo

import (
	"fmt"
	"math"
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hlo/types/shapes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Literal holds a concrete tensor value: the shape plus a flat slice of the
// dtype's Go type in row-major (default layout) order.
//
// It is used for constants in the graph and for the buffers of the interp
// package.
type Literal struct {
	shape shapes.Shape
	flat  any
}

// dtypeOfValue returns the dtype of a scalar Go value, with explicit support
// for float16.Float16 half-precision values.
func dtypeOfValue(value any) dtypes.DType {
	if _, ok := value.(float16.Float16); ok {
		return dtypes.F16
	}
	return dtypes.FromAny(value)
}

// NewScalarLiteral creates a scalar literal from a plain Go value.
func NewScalarLiteral(value any) (*Literal, error) {
	dtype := dtypeOfValue(value)
	if dtype == dtypes.InvalidDType {
		return nil, errors.Errorf("unsupported scalar literal type %T", value)
	}
	flat := reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(value)), 1, 1)
	flat.Index(0).Set(reflect.ValueOf(value))
	return &Literal{
		shape: shapes.Make(dtype),
		flat:  flat.Interface(),
	}, nil
}

// NewLiteralFromFlat creates a literal from a flat slice with the raw values in
// row-major order and the dimensions of the shape.
func NewLiteralFromFlat(flat any, dimensions ...int) (*Literal, error) {
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice {
		return nil, errors.Errorf("NewLiteralFromFlat expects a slice, got %T", flat)
	}
	var dtype dtypes.DType
	if flatV.Type().Elem() == reflect.TypeOf(float16.Float16(0)) {
		dtype = dtypes.F16
	} else {
		dtype = dtypes.FromGoType(flatV.Type().Elem())
	}
	if dtype == dtypes.InvalidDType {
		return nil, errors.Errorf("unsupported flat values type %T -- expected a slice of a basic data type", flat)
	}
	shape := shapes.Make(dtype, dimensions...)
	if shape.Size() != flatV.Len() {
		return nil, errors.Errorf("flat values size %d doesn't match shape size %d (%s)", flatV.Len(), shape.Size(), shape)
	}
	return &Literal{shape: shape, flat: flat}, nil
}

// NewLiteralFromShape creates a zero-initialized literal of the given
// (non-tuple) shape.
func NewLiteralFromShape(shape shapes.Shape) (*Literal, error) {
	if !shape.Ok() || shape.IsTuple() {
		return nil, errors.Errorf("NewLiteralFromShape requires a valid non-tuple shape, got %s", shape)
	}
	goType := shape.DType.GoType()
	if shape.DType == dtypes.F16 {
		goType = reflect.TypeOf(float16.Float16(0))
	}
	if goType == nil {
		return nil, errors.Errorf("dtype %s has no Go equivalent type", shape.DType)
	}
	flat := reflect.MakeSlice(reflect.SliceOf(goType), shape.Size(), shape.Size())
	return &Literal{shape: shape, flat: flat.Interface()}, nil
}

// Shape of the literal.
func (l *Literal) Shape() shapes.Shape {
	return l.shape
}

// Flat returns the underlying flat slice, in row-major order.
func (l *Literal) Flat() any {
	return l.flat
}

// IsScalar returns whether the literal holds a single scalar value.
func (l *Literal) IsScalar() bool {
	return l.shape.IsScalar()
}

// ScalarValue returns the value of a scalar literal.
func (l *Literal) ScalarValue() any {
	return reflect.ValueOf(l.flat).Index(0).Interface()
}

// WithLayout returns a copy of the literal re-labeled with the given layout.
// The flat data is not moved; only the declared layout changes.
func (l *Literal) WithLayout(layout []int) (*Literal, error) {
	shape, err := l.shape.WithLayout(layout)
	if err != nil {
		return nil, err
	}
	return &Literal{shape: shape, flat: l.flat}, nil
}

// Equal reports whether two literals have the same shape (including layout)
// and bit-identical contents.
func (l *Literal) Equal(other *Literal) bool {
	if other == nil {
		return false
	}
	return l.shape.EqualWithLayout(other.shape) && reflect.DeepEqual(l.flat, other.flat)
}

// valueString renders the value for HLO text: scalars inline, tensors elided.
func (l *Literal) valueString() string {
	if !l.IsScalar() {
		return "{...}"
	}
	value := l.ScalarValue()
	if f16, ok := value.(float16.Float16); ok {
		value = f16.Float32()
	}
	switch v := value.(type) {
	case float32:
		return formatFloat(float64(v))
	case float64:
		return formatFloat(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%d", v)
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%g", f)
}
