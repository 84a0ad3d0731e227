// Package interp is a reference evaluator for hlo modules.
//
// It executes the entry computation instruction by instruction on Literal
// buffers, always in row-major element order, so results are reproducible
// bit-for-bit across runs. It exists to check graph rewrites numerically, not
// to be fast: reductions with a non-trivial combiner fall back to evaluating
// the combiner computation per element pair.
package interp

import (
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hlo"
	"github.com/gomlx/hlo/internal/optypes"
	"github.com/gomlx/hlo/shapeinference"
	"github.com/gomlx/hlo/types"
	"github.com/gomlx/hlo/types/shapes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// value is an evaluated buffer: a flat row-major element slice, or the element
// values of a tuple.
type value struct {
	shape shapes.Shape
	elems []any
	tuple []*value
}

func fromLiteral(l *hlo.Literal) *value {
	flat := reflect.ValueOf(l.Flat())
	elems := make([]any, flat.Len())
	for i := range elems {
		elems[i] = flat.Index(i).Interface()
	}
	return &value{shape: l.Shape().Clone(), elems: elems}
}

func (v *value) toLiteral() (*hlo.Literal, error) {
	literal, err := hlo.NewLiteralFromShape(v.shape)
	if err != nil {
		return nil, err
	}
	flat := reflect.ValueOf(literal.Flat())
	for i, elem := range v.elems {
		flat.Index(i).Set(reflect.ValueOf(elem))
	}
	return literal, nil
}

func scalarValue(dtype shapes.Shape, elem any) *value {
	return &value{shape: dtype.Clone(), elems: []any{elem}}
}

// Run executes the module's entry computation on the given arguments.
//
// It returns one literal per output: the elements of a tuple-rooted entry, or
// a single literal otherwise.
func Run(m *hlo.Module, args []*hlo.Literal) ([]*hlo.Literal, error) {
	entry := m.EntryComputation()
	if entry == nil {
		return nil, errors.Errorf("module %q has no entry computation", m.Name())
	}
	argValues := make([]*value, len(args))
	for i, arg := range args {
		argValues[i] = fromLiteral(arg)
	}
	outputs, err := runComputation(entry, argValues)
	if err != nil {
		return nil, errors.WithMessagef(err, "while evaluating module %q", m.Name())
	}
	literals := make([]*hlo.Literal, len(outputs))
	for i, output := range outputs {
		literals[i], err = output.toLiteral()
		if err != nil {
			return nil, err
		}
	}
	return literals, nil
}

// runComputation evaluates a computation on the given arguments and returns
// its outputs: the elements of a Tuple root, otherwise the single root value.
func runComputation(c *hlo.Computation, args []*value) ([]*value, error) {
	if c.Root() == nil {
		return nil, errors.Errorf("computation %q has no root", c.Name())
	}
	if len(args) != c.NumParameters() {
		return nil, errors.Errorf("computation %q takes %d parameters, got %d arguments",
			c.Name(), c.NumParameters(), len(args))
	}
	for i, param := range c.Parameters() {
		if !param.Shape().Equal(args[i].shape) {
			return nil, errors.Errorf("computation %q parameter #%d is %s, got argument %s",
				c.Name(), i, param.Shape(), args[i].shape)
		}
	}
	e := &evaluator{comp: c, args: args, memo: make(map[hlo.InstrID]*value)}
	root, err := e.eval(c.Root())
	if err != nil {
		return nil, errors.WithMessagef(err, "in computation %q", c.Name())
	}
	if root.tuple != nil {
		return root.tuple, nil
	}
	return []*value{root}, nil
}

type evaluator struct {
	comp *hlo.Computation
	args []*value
	memo map[hlo.InstrID]*value
}

func (e *evaluator) eval(instr *hlo.Instruction) (*value, error) {
	if v, found := e.memo[instr.ID()]; found {
		return v, nil
	}
	operands := make([]*value, len(instr.Operands()))
	for i, operand := range instr.Operands() {
		var err error
		operands[i], err = e.eval(operand)
		if err != nil {
			return nil, err
		}
	}
	v, err := e.evalOp(instr, operands)
	if err != nil {
		return nil, errors.WithMessagef(err, "while evaluating %s", instr)
	}
	e.memo[instr.ID()] = v
	return v, nil
}

func (e *evaluator) evalOp(instr *hlo.Instruction, operands []*value) (*value, error) {
	shape := instr.Shape()
	switch instr.OpType() {
	case optypes.Parameter:
		return e.args[instr.ParameterNumber()], nil

	case optypes.Constant:
		return fromLiteral(instr.Literal()), nil

	case optypes.Iota:
		return evalIota(shape, instr.IotaAxis())

	case optypes.Pad:
		return evalPad(shape, operands[0], operands[1], instr.PadLow())

	case optypes.Bitcast, optypes.Reshape:
		return &value{shape: shape.Clone(), elems: operands[0].elems}, nil

	case optypes.Reduce:
		return evalReduce(instr, operands)

	case optypes.GetTupleElement:
		return operands[0].tuple[instr.TupleIndex()], nil

	case optypes.Tuple:
		return &value{shape: shape.Clone(), tuple: operands}, nil

	case optypes.Fusion:
		outputs, err := runComputation(instr.CalledComputation(), operands)
		if err != nil {
			return nil, err
		}
		if len(outputs) == 1 {
			return outputs[0], nil
		}
		return &value{shape: shape.Clone(), tuple: outputs}, nil

	case optypes.Add, optypes.Multiply, optypes.Maximum, optypes.Minimum:
		return evalBinary(instr.OpType(), shape, operands[0], operands[1])

	case optypes.Compare:
		return evalCompare(instr.ComparisonDirection(), shape, operands[0], operands[1])

	case optypes.Select:
		return evalSelect(shape, operands[0], operands[1], operands[2])
	}
	return nil, errors.Errorf("operation %s is not supported by the evaluator", instr.OpType())
}

func evalIota(shape shapes.Shape, axis int) (*value, error) {
	size := shape.Size()
	elems := make([]any, size)
	axisStrides := strides(shape.Dimensions)
	dim := shape.Dimensions[axis]
	for flat := range size {
		coord := (flat / axisStrides[axis]) % dim
		elem, err := scalarFromInt(shape.DType, coord)
		if err != nil {
			return nil, err
		}
		elems[flat] = elem
	}
	return &value{shape: shape.Clone(), elems: elems}, nil
}

// evalPad fills a fresh output buffer, copying the input elements shifted by
// the low bounds. The high bounds are already baked into the output shape.
func evalPad(shape shapes.Shape, x, fill *value, low []int) (*value, error) {
	inDims := x.shape.Dimensions
	outDims := shape.Dimensions
	inStrides := strides(inDims)
	outSize := shape.Size()
	elems := make([]any, outSize)
	fillElem := fill.elems[0]
	coords := make([]int, len(outDims))
	outStrides := strides(outDims)
	for flat := range outSize {
		unravel(flat, outStrides, coords)
		inFlat := 0
		inside := true
		for axis, coord := range coords {
			src := coord - low[axis]
			if src < 0 || src >= inDims[axis] {
				inside = false
				break
			}
			inFlat += src * inStrides[axis]
		}
		if inside {
			elems[flat] = x.elems[inFlat]
		} else {
			elems[flat] = fillElem
		}
	}
	return &value{shape: shape.Clone(), elems: elems}, nil
}

func evalReduce(instr *hlo.Instruction, operands []*value) (*value, error) {
	numReductions := len(operands) / 2
	inputs := operands[:numReductions]
	inits := operands[numReductions:]
	combiner := instr.CalledComputation()

	inDims := inputs[0].shape.Dimensions
	inStrides := strides(inDims)
	reduced := make(map[int]bool, len(instr.Axes()))
	for _, axis := range instr.Axes() {
		reduced[axis] = true
	}
	keptDims := make([]int, 0, len(inDims))
	for axis, dim := range inDims {
		if !reduced[axis] {
			keptDims = append(keptDims, dim)
		}
	}
	keptStrides := strides(keptDims)

	outShape := instr.Shape()
	outShapes := []shapes.Shape{outShape}
	if outShape.IsTuple() {
		outShapes = outShape.TupleShapes
	}
	outSize := outShapes[0].Size()
	accs := make([][]any, numReductions)
	for i := range accs {
		accs[i] = make([]any, outSize)
		for j := range accs[i] {
			accs[i][j] = inits[i].elems[0]
		}
	}

	fastOp, fast := singleBinaryCombiner(combiner)
	fast = fast && numReductions == 1

	inSize := inputs[0].shape.Size()
	coords := make([]int, len(inDims))
	combinerArgs := make([]*value, 2*numReductions)
	for flat := range inSize {
		unravel(flat, inStrides, coords)
		outFlat := 0
		kept := 0
		for axis, coord := range coords {
			if reduced[axis] {
				continue
			}
			outFlat += coord * keptStrides[kept]
			kept++
		}
		if fast {
			acc, err := applyBinary(fastOp, accs[0][outFlat], inputs[0].elems[flat])
			if err != nil {
				return nil, err
			}
			accs[0][outFlat] = acc
			continue
		}
		for i := range numReductions {
			combinerArgs[i] = scalarValue(combiner.Parameters()[i].Shape(), accs[i][outFlat])
			combinerArgs[numReductions+i] = scalarValue(
				combiner.Parameters()[numReductions+i].Shape(), inputs[i].elems[flat])
		}
		outputs, err := runComputation(combiner, combinerArgs)
		if err != nil {
			return nil, err
		}
		for i := range numReductions {
			accs[i][outFlat] = outputs[i].elems[0]
		}
	}

	if !outShape.IsTuple() {
		return &value{shape: outShape.Clone(), elems: accs[0]}, nil
	}
	tuple := make([]*value, numReductions)
	for i := range tuple {
		tuple[i] = &value{shape: outShapes[i].Clone(), elems: accs[i]}
	}
	return &value{shape: outShape.Clone(), tuple: tuple}, nil
}

// singleBinaryCombiner detects a combiner whose body is a single elementwise
// binary operation over its two parameters, in order. Such reductions are
// accumulated directly, without interpreting the combiner per element.
func singleBinaryCombiner(c *hlo.Computation) (optypes.OpType, bool) {
	if c.NumParameters() != 2 {
		return optypes.Invalid, false
	}
	root := c.Root()
	if root == nil || !shapeinference.BinaryOperations.Has(root.OpType()) {
		return optypes.Invalid, false
	}
	params := c.Parameters()
	operands := root.Operands()
	if len(operands) != 2 || operands[0] != params[0] || operands[1] != params[1] {
		return optypes.Invalid, false
	}
	return root.OpType(), true
}

func evalBinary(op optypes.OpType, shape shapes.Shape, lhs, rhs *value) (*value, error) {
	elems := make([]any, len(lhs.elems))
	for i := range elems {
		elem, err := applyBinary(op, lhs.elems[i], rhs.elems[i])
		if err != nil {
			return nil, err
		}
		elems[i] = elem
	}
	return &value{shape: shape.Clone(), elems: elems}, nil
}

func evalCompare(direction types.ComparisonDirection, shape shapes.Shape, lhs, rhs *value) (*value, error) {
	elems := make([]any, len(lhs.elems))
	for i := range elems {
		result, err := compareScalars(direction, lhs.elems[i], rhs.elems[i])
		if err != nil {
			return nil, err
		}
		elems[i] = result
	}
	return &value{shape: shape.Clone(), elems: elems}, nil
}

func evalSelect(shape shapes.Shape, pred, onTrue, onFalse *value) (*value, error) {
	elems := make([]any, len(onTrue.elems))
	for i := range elems {
		p := pred.elems[0]
		if len(pred.elems) > 1 {
			p = pred.elems[i]
		}
		condition, ok := p.(bool)
		if !ok {
			return nil, errors.Errorf("select condition must be boolean, got %T", p)
		}
		if condition {
			elems[i] = onTrue.elems[i]
		} else {
			elems[i] = onFalse.elems[i]
		}
	}
	return &value{shape: shape.Clone(), elems: elems}, nil
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func binaryNumber[T number](op optypes.OpType, a, b T) T {
	switch op {
	case optypes.Add:
		return a + b
	case optypes.Multiply:
		return a * b
	case optypes.Maximum:
		if a > b {
			return a
		}
		return b
	case optypes.Minimum:
		if a < b {
			return a
		}
		return b
	}
	return a
}

func applyBinary(op optypes.OpType, a, b any) (any, error) {
	switch x := a.(type) {
	case float32:
		return binaryNumber(op, x, b.(float32)), nil
	case float64:
		return binaryNumber(op, x, b.(float64)), nil
	case float16.Float16:
		return float16.Fromfloat32(binaryNumber(op, x.Float32(), b.(float16.Float16).Float32())), nil
	case int8:
		return binaryNumber(op, x, b.(int8)), nil
	case int16:
		return binaryNumber(op, x, b.(int16)), nil
	case int32:
		return binaryNumber(op, x, b.(int32)), nil
	case int64:
		return binaryNumber(op, x, b.(int64)), nil
	case uint8:
		return binaryNumber(op, x, b.(uint8)), nil
	case uint16:
		return binaryNumber(op, x, b.(uint16)), nil
	case uint32:
		return binaryNumber(op, x, b.(uint32)), nil
	case uint64:
		return binaryNumber(op, x, b.(uint64)), nil
	}
	return nil, errors.Errorf("unsupported scalar type %T for %s", a, op)
}

func compareNumber[T number](direction types.ComparisonDirection, a, b T) bool {
	switch direction {
	case types.CompareEQ:
		return a == b
	case types.CompareGE:
		return a >= b
	case types.CompareGT:
		return a > b
	case types.CompareLE:
		return a <= b
	case types.CompareLT:
		return a < b
	case types.CompareNE:
		return a != b
	}
	return false
}

func compareScalars(direction types.ComparisonDirection, a, b any) (bool, error) {
	switch x := a.(type) {
	case float32:
		return compareNumber(direction, x, b.(float32)), nil
	case float64:
		return compareNumber(direction, x, b.(float64)), nil
	case float16.Float16:
		return compareNumber(direction, x.Float32(), b.(float16.Float16).Float32()), nil
	case int8:
		return compareNumber(direction, x, b.(int8)), nil
	case int16:
		return compareNumber(direction, x, b.(int16)), nil
	case int32:
		return compareNumber(direction, x, b.(int32)), nil
	case int64:
		return compareNumber(direction, x, b.(int64)), nil
	case uint8:
		return compareNumber(direction, x, b.(uint8)), nil
	case uint16:
		return compareNumber(direction, x, b.(uint16)), nil
	case uint32:
		return compareNumber(direction, x, b.(uint32)), nil
	case uint64:
		return compareNumber(direction, x, b.(uint64)), nil
	case bool:
		y := b.(bool)
		switch direction {
		case types.CompareEQ:
			return x == y, nil
		case types.CompareNE:
			return x != y, nil
		}
		return false, errors.Errorf("comparison direction %s is not defined for booleans", direction.ToHLO())
	}
	return false, errors.Errorf("unsupported scalar type %T for compare", a)
}

func scalarFromInt(dtype dtypes.DType, i int) (any, error) {
	switch dtype {
	case dtypes.F32:
		return float32(i), nil
	case dtypes.F64:
		return float64(i), nil
	case dtypes.F16:
		return float16.Fromfloat32(float32(i)), nil
	case dtypes.S32:
		return int32(i), nil
	case dtypes.S64:
		return int64(i), nil
	case dtypes.U32:
		return uint32(i), nil
	case dtypes.U64:
		return uint64(i), nil
	}
	return nil, errors.Errorf("iota is not supported for dtype %s", dtype)
}

// strides returns the row-major strides of dims.
func strides(dims []int) []int {
	s := make([]int, len(dims))
	acc := 1
	for i := len(dims) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= dims[i]
	}
	return s
}

// unravel decomposes a flat row-major index into per-axis coordinates.
func unravel(flat int, strides []int, coords []int) {
	for i, stride := range strides {
		coords[i] = flat / stride
		flat %= stride
	}
}
