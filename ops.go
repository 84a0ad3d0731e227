package hlo

import (
	"slices"

	"github.com/gomlx/hlo/internal/optypes"
	"github.com/gomlx/hlo/shapeinference"
	"github.com/gomlx/hlo/types"
	"github.com/gomlx/hlo/types/shapes"
	"github.com/pkg/errors"
)

// Parameter creates a new input parameter for the computation.
//
// The order matters: during execution the arguments must be given in the same
// order the parameters were created. The name is passed through
// NormalizeIdentifier and must be unique in the computation.
func (c *Computation) Parameter(name string, shape shapes.Shape) (*Instruction, error) {
	if !shape.Ok() {
		return nil, errors.Errorf("invalid shape %s for parameter %q", shape, name)
	}
	instr := &Instruction{
		comp:            c,
		opType:          optypes.Parameter,
		name:            c.uniquifyName(NormalizeIdentifier(name)),
		shape:           shape.Clone(),
		parameterNumber: len(c.parameters),
	}
	c.registerInstruction(instr)
	c.parameters = append(c.parameters, instr)
	return instr, nil
}

// Constant creates a constant instruction from a literal.
func (c *Computation) Constant(literal *Literal) (*Instruction, error) {
	if literal == nil {
		return nil, errors.New("Constant requires a non-nil literal")
	}
	instr := c.newInstruction(optypes.Constant, literal.Shape())
	instr.literal = literal
	return instr, nil
}

// ConstantFromScalar creates a scalar constant from a plain Go value.
func (c *Computation) ConstantFromScalar(value any) (*Instruction, error) {
	literal, err := NewScalarLiteral(value)
	if err != nil {
		return nil, err
	}
	return c.Constant(literal)
}

// Iota creates a value of the given shape with the coordinate along the given
// axis at each position. So Iota([2,2], 1) is [[0 1][0 1]], while Iota([2,2], 0)
// is [[0 0][1 1]].
func (c *Computation) Iota(shape shapes.Shape, axis int) (*Instruction, error) {
	adjustedAxis, err := shapeinference.Iota(shape, axis)
	if err != nil {
		return nil, errors.WithMessagef(err, "Iota axis is invalid for shape %s", shape)
	}
	instr := c.newInstruction(optypes.Iota, shape.Clone())
	instr.iotaAxis = adjustedAxis
	return instr, nil
}

// Pad extends x at the start (low) and end (high) of arbitrary axes, filling
// the new elements with the fill value, which must be a scalar of the same
// dtype as x. Negative bounds trim elements instead.
func (c *Computation) Pad(x, fill *Instruction, low, high []int) (*Instruction, error) {
	op := optypes.Pad
	if err := c.checkOwnership(op, x, fill); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.Pad(x.shape, fill.shape, low, high)
	if err != nil {
		return nil, err
	}
	instr := c.newInstruction(op, outputShape, x, fill)
	instr.padLow = slices.Clone(low)
	instr.padHigh = slices.Clone(high)
	return instr, nil
}

// Bitcast reinterprets x as the target shape without moving data: a shape-only
// operation, only legal when the element count and the physical byte order are
// unchanged, which restricts it to default-layout shapes.
func (c *Computation) Bitcast(x *Instruction, target shapes.Shape) (*Instruction, error) {
	op := optypes.Bitcast
	if err := c.checkOwnership(op, x); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.Bitcast(x.shape, target)
	if err != nil {
		return nil, err
	}
	return c.newInstruction(op, outputShape, x), nil
}

// Reshape changes x to the target dimensions, copying data if the physical
// layout requires it. Prefer Bitcast when the layouts allow.
func (c *Computation) Reshape(x *Instruction, target shapes.Shape) (*Instruction, error) {
	op := optypes.Reshape
	if err := c.checkOwnership(op, x); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.Reshape(x.shape, target)
	if err != nil {
		return nil, err
	}
	return c.newInstruction(op, outputShape, x), nil
}

// Reduce collapses the given axes of the inputs via repeated application of
// the combiner computation, starting from the per-input initial values
// (the combiner's identity, e.g. 0 for a sum, 1 for a product).
//
// The combiner must be a computation of the same module with 2*len(inputs)
// scalar parameters -- the accumulator scalars followed by the current-element
// scalars, pairwise per input -- and len(inputs) scalar outputs. It is
// referenced by handle: several reduce instructions can share one combiner.
//
// With a single input the result has the input's shape minus the reduced axes;
// with multiple inputs the result is a tuple, unpacked with GetTupleElement.
func (c *Computation) Reduce(inputs, initialValues []*Instruction, combiner *Computation, axes ...int) (*Instruction, error) {
	op := optypes.Reduce
	if err := c.checkOwnership(op, inputs...); err != nil {
		return nil, err
	}
	if err := c.checkOwnership(op, initialValues...); err != nil {
		return nil, err
	}
	if combiner == nil || combiner.mod != c.mod {
		return nil, errors.Errorf("cannot add operation %s to computation %q: the combiner is not a computation of the same module",
			op, c.name)
	}
	if combiner.root == nil {
		return nil, errors.Errorf("cannot add operation %s to computation %q: the combiner %q has no root",
			op, c.name, combiner.name)
	}

	combinerInputs := make([]shapes.Shape, 0, combiner.NumParameters())
	for _, param := range combiner.parameters {
		combinerInputs = append(combinerInputs, param.shape)
	}
	adjustedAxes := slices.Clone(axes)
	outputShapes, err := shapeinference.Reduce(
		instructionsToShapes(inputs), instructionsToShapes(initialValues),
		combinerInputs, combiner.outputShapes(),
		adjustedAxes)
	if err != nil {
		return nil, err
	}
	outputShape := outputShapes[0]
	if len(outputShapes) > 1 {
		outputShape = shapes.MakeTuple(outputShapes)
	}
	allInputs := append(slices.Clone(inputs), initialValues...)
	instr := c.newInstruction(op, outputShape, allInputs...)
	instr.axes = adjustedAxes
	instr.called = combiner
	return instr, nil
}

// GetTupleElement extracts the index-th element of a tuple-shaped value, e.g.
// one output stream of a variadic reduce.
func (c *Computation) GetTupleElement(x *Instruction, index int) (*Instruction, error) {
	op := optypes.GetTupleElement
	if err := c.checkOwnership(op, x); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.GetTupleElement(x.shape, index)
	if err != nil {
		return nil, err
	}
	instr := c.newInstruction(op, outputShape, x)
	instr.tupleIndex = index
	return instr, nil
}

// Tuple packs the given values into one tuple-shaped value.
func (c *Computation) Tuple(elements ...*Instruction) (*Instruction, error) {
	op := optypes.Tuple
	if len(elements) == 0 {
		return nil, errors.New("Tuple requires at least one element")
	}
	if err := c.checkOwnership(op, elements...); err != nil {
		return nil, err
	}
	return c.newInstruction(op, shapes.MakeTuple(instructionsToShapes(elements)), elements...), nil
}

// Fusion wraps a sub-computation as a single fused execution unit: operands
// are bound to the fused computation's parameters in order, and the result is
// the fused computation's output.
//
// The kind tags how the unit consumes data: FusionInput for whole-array
// consuming fusions (ending in a reduce), FusionLoop for elementwise ones.
func (c *Computation) Fusion(kind types.FusionKind, fused *Computation, operands ...*Instruction) (*Instruction, error) {
	op := optypes.Fusion
	if err := c.checkOwnership(op, operands...); err != nil {
		return nil, err
	}
	if fused == nil || fused.mod != c.mod {
		return nil, errors.Errorf("cannot add operation %s to computation %q: the fused computation is not part of the same module",
			op, c.name)
	}
	if fused.root == nil {
		return nil, errors.Errorf("cannot add operation %s to computation %q: the fused computation %q has no root",
			op, c.name, fused.name)
	}
	if len(operands) != fused.NumParameters() {
		return nil, errors.Errorf("cannot add operation %s to computation %q: %d operands for %d parameters of the fused computation %q",
			op, c.name, len(operands), fused.NumParameters(), fused.name)
	}
	for i, operand := range operands {
		if !operand.shape.Equal(fused.parameters[i].shape) {
			return nil, errors.Errorf("cannot add operation %s to computation %q: operand #%d has shape %s, but the fused computation %q expects %s",
				op, c.name, i, operand.shape, fused.name, fused.parameters[i].shape)
		}
	}
	instr := c.newInstruction(op, fused.root.shape.Clone(), operands...)
	instr.fusionKind = kind
	instr.called = fused
	return instr, nil
}

// binaryOp adds a new elementwise binary operation to the computation.
func (c *Computation) binaryOp(op optypes.OpType, lhs, rhs *Instruction) (*Instruction, error) {
	if err := c.checkOwnership(op, lhs, rhs); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.BinaryOp(op, lhs.shape, rhs.shape)
	if err != nil {
		return nil, err
	}
	return c.newInstruction(op, outputShape, lhs, rhs), nil
}

// Add implements the corresponding standard binary operation.
func (c *Computation) Add(lhs, rhs *Instruction) (*Instruction, error) {
	return c.binaryOp(optypes.Add, lhs, rhs)
}

// Multiply implements the corresponding standard binary operation.
func (c *Computation) Multiply(lhs, rhs *Instruction) (*Instruction, error) {
	return c.binaryOp(optypes.Multiply, lhs, rhs)
}

// Maximum implements the corresponding standard binary operation.
func (c *Computation) Maximum(lhs, rhs *Instruction) (*Instruction, error) {
	return c.binaryOp(optypes.Maximum, lhs, rhs)
}

// Minimum implements the corresponding standard binary operation.
func (c *Computation) Minimum(lhs, rhs *Instruction) (*Instruction, error) {
	return c.binaryOp(optypes.Minimum, lhs, rhs)
}

// Compare performs the elementwise comparison in the given direction,
// returning a boolean (pred) value.
func (c *Computation) Compare(lhs, rhs *Instruction, direction types.ComparisonDirection) (*Instruction, error) {
	op := optypes.Compare
	if err := c.checkOwnership(op, lhs, rhs); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.Compare(lhs.shape, rhs.shape, direction)
	if err != nil {
		return nil, err
	}
	instr := c.newInstruction(op, outputShape, lhs, rhs)
	instr.direction = direction
	return instr, nil
}

// Select takes elementwise values from onTrue or onFalse depending on pred,
// which must be boolean, scalar or of the same dimensions as the branches.
func (c *Computation) Select(pred, onTrue, onFalse *Instruction) (*Instruction, error) {
	op := optypes.Select
	if err := c.checkOwnership(op, pred, onTrue, onFalse); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.Select(pred.shape, onTrue.shape, onFalse.shape)
	if err != nil {
		return nil, err
	}
	return c.newInstruction(op, outputShape, pred, onTrue, onFalse), nil
}

func instructionsToShapes(instructions []*Instruction) []shapes.Shape {
	s := make([]shapes.Shape, len(instructions))
	for i, instr := range instructions {
		s[i] = instr.shape
	}
	return s
}
