// Package shapeinference calculates the output shapes of the operations of the
// hlo package, and validates their inputs.
//
// All functions are pure: (input shapes, attributes) -> (output shape, error).
// They carry no graph state, so they are independently testable.
package shapeinference

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hlo/internal/optypes"
	"github.com/gomlx/hlo/internal/utils"
	"github.com/gomlx/hlo/types"
	"github.com/gomlx/hlo/types/shapes"
	"github.com/pkg/errors"
)

// BinaryOperations is the set of scalar/elementwise binary ops used to build
// reduction combiners.
var BinaryOperations = utils.SetWith(
	optypes.Add,
	optypes.Multiply,
	optypes.Maximum,
	optypes.Minimum,
)

// AdjustAxisToRank converts a possibly negative axis (counting from the end) to
// the corresponding positive axis, validating it against the rank.
func AdjustAxisToRank(axis, rank int) (int, error) {
	if axis < -rank || axis >= rank {
		return -1, errors.Errorf("axis %d is out of range for the rank %d", axis, rank)
	}
	if axis < 0 {
		axis += rank
	}
	return axis, nil
}

// BinaryOp checks the validity of a binary operation and returns the output
// shape, which is the same as the (identically shaped) operands.
func BinaryOp(op optypes.OpType, lhs, rhs shapes.Shape) (output shapes.Shape, err error) {
	if !BinaryOperations.Has(op) {
		return shapes.Invalid(), errors.Errorf("operation %s is not in the BinaryOperations set, cannot process it with BinaryOp", op)
	}
	if !lhs.Ok() || !rhs.Ok() || lhs.IsTuple() || rhs.IsTuple() {
		return shapes.Invalid(), errors.Errorf("invalid shapes %s and %s for BinaryOp %s", lhs, rhs, op)
	}
	if lhs.DType != rhs.DType {
		return shapes.Invalid(), errors.Errorf("data types for %s must match, got %s and %s", op, lhs, rhs)
	}
	if !slices.Equal(lhs.Dimensions, rhs.Dimensions) {
		return shapes.Invalid(), errors.Errorf("dimensions for %s must match, got %s and %s", op, lhs, rhs)
	}
	return lhs.Clone(), nil
}

// Compare returns the output shape of a comparison: the operands' shape with a
// boolean (pred) dtype.
func Compare(lhs, rhs shapes.Shape, direction types.ComparisonDirection) (output shapes.Shape, err error) {
	if !lhs.Ok() || !rhs.Ok() || lhs.IsTuple() || rhs.IsTuple() {
		return shapes.Invalid(), errors.Errorf("invalid shapes %s and %s for Compare", lhs, rhs)
	}
	if lhs.DType != rhs.DType {
		return shapes.Invalid(), errors.Errorf("data types for Compare must match, got %s and %s", lhs, rhs)
	}
	if !slices.Equal(lhs.Dimensions, rhs.Dimensions) {
		return shapes.Invalid(), errors.Errorf("dimensions for Compare must match, got %s and %s", lhs, rhs)
	}
	if direction < types.CompareEQ || direction > types.CompareNE {
		return shapes.Invalid(), errors.Errorf("invalid comparison direction %d for Compare", direction)
	}
	output = lhs.Clone()
	output.DType = dtypes.Bool
	return output, nil
}

// Select checks pred/onTrue/onFalse and returns the output shape.
// The pred must be boolean, scalar or of the same dimensions as the branches.
func Select(pred, onTrue, onFalse shapes.Shape) (output shapes.Shape, err error) {
	if pred.DType != dtypes.Bool {
		return shapes.Invalid(), errors.Errorf("Select requires a boolean (pred) condition, got %s", pred)
	}
	if onTrue.DType != onFalse.DType || !slices.Equal(onTrue.Dimensions, onFalse.Dimensions) {
		return shapes.Invalid(), errors.Errorf("Select requires both branches to have the same shape, got %s and %s", onTrue, onFalse)
	}
	if !pred.IsScalar() && !slices.Equal(pred.Dimensions, onTrue.Dimensions) {
		return shapes.Invalid(), errors.Errorf("Select condition must be a scalar or match the branches, got pred=%s and branches=%s", pred, onTrue)
	}
	return onTrue.Clone(), nil
}

// Iota validates the shape and axis of an iota operation. The output shape is
// the given shape itself.
func Iota(shape shapes.Shape, axis int) (adjustedAxis int, err error) {
	if !shape.Ok() || shape.IsTuple() {
		return -1, errors.Errorf("invalid shape %s for Iota", shape)
	}
	if shape.IsScalar() {
		return -1, errors.New("Iota requires a non-scalar shape")
	}
	if !shape.DType.IsFloat() && !shape.DType.IsInt() {
		return -1, errors.Errorf("Iota requires a numeric dtype, got %s", shape)
	}
	return AdjustAxisToRank(axis, shape.Rank())
}

// Pad computes the output shape of a pad operation with the given low (start)
// and high (end) edge padding per axis. Interior padding is not supported by
// the hlo package's Pad op.
//
// Negative padding values trim elements instead.
func Pad(x, fill shapes.Shape, low, high []int) (output shapes.Shape, err error) {
	if !x.Ok() || !fill.Ok() || x.IsTuple() {
		return shapes.Invalid(), errors.Errorf("Pad: invalid input shapes %s and %s", x, fill)
	}
	if x.DType != fill.DType {
		return shapes.Invalid(), errors.Errorf("Pad: operand (%s) and padding value (%s) must have the same dtype", x, fill)
	}
	if !fill.IsScalar() {
		return shapes.Invalid(), errors.Errorf("Pad: padding value (%s) must be a scalar", fill)
	}
	rank := x.Rank()
	if len(low) != rank || len(high) != rank {
		return shapes.Invalid(), errors.Errorf("Pad: number of padding values (%d low, %d high) must match input rank %d",
			len(low), len(high), rank)
	}
	outputDims := make([]int, rank)
	for axis := range rank {
		outputDims[axis] = low[axis] + x.Dimensions[axis] + high[axis]
		if outputDims[axis] < 0 {
			return shapes.Invalid(), errors.Errorf("Pad: axis %d would have negative dimension %d after padding", axis, outputDims[axis])
		}
	}
	return shapes.Make(x.DType, outputDims...), nil
}

// Reshape validates a (copying) reshape of x to the target dimensions: the
// dtype and total element count must be preserved.
func Reshape(x, target shapes.Shape) (output shapes.Shape, err error) {
	if !x.Ok() || !target.Ok() || x.IsTuple() || target.IsTuple() {
		return shapes.Invalid(), errors.Errorf("Reshape: invalid shapes %s and %s", x, target)
	}
	if x.DType != target.DType {
		return shapes.Invalid(), errors.Errorf("Reshape: operand and target must have the same dtype, got %s and %s", x, target)
	}
	if x.Size() != target.Size() {
		return shapes.Invalid(), errors.Errorf("Reshape: element count must be preserved, got %s (%d elements) to %s (%d elements)",
			x, x.Size(), target, target.Size())
	}
	return target.Clone(), nil
}

// Bitcast validates a shape-only reinterpretation of x as target: no data is
// moved, so besides preserving dtype and element count, both shapes must be
// physically contiguous in the default layout -- only then is the flat byte
// order of the two shapes identical.
func Bitcast(x, target shapes.Shape) (output shapes.Shape, err error) {
	output, err = Reshape(x, target)
	if err != nil {
		return shapes.Invalid(), errors.WithMessage(err, "Bitcast")
	}
	if !x.HasDefaultLayout() {
		return shapes.Invalid(), errors.Errorf("Bitcast: operand %s does not have the default layout, its physical order would change", x)
	}
	if !target.HasDefaultLayout() {
		return shapes.Invalid(), errors.Errorf("Bitcast: target %s does not have the default layout, its physical order would change", target)
	}
	return output, nil
}

// GetTupleElement returns the shape of the index-th element of a tuple-shaped value.
func GetTupleElement(x shapes.Shape, index int) (output shapes.Shape, err error) {
	if !x.IsTuple() {
		return shapes.Invalid(), errors.Errorf("GetTupleElement requires a tuple-shaped operand, got %s", x)
	}
	if index < 0 || index >= len(x.TupleShapes) {
		return shapes.Invalid(), errors.Errorf("GetTupleElement index %d out of range for tuple %s", index, x)
	}
	return x.TupleShapes[index].Clone(), nil
}

// Reduce computes the output shapes of a (possibly variadic) reduce.
//
// inputs are the operand shapes (all with the same dimensions), initialValues
// the per-operand identity scalars, reductionInputs/reductionOutputs the
// scalar signature of the combiner computation, and axes the set of reduced
// axes (unordered, negative values count from the end).
//
// It also has a side effect on axes: negative axes are converted to their
// corresponding positive axes.
//
// It returns one output shape per operand; callers wrap them in a tuple shape
// when there is more than one.
func Reduce(inputs, initialValues, reductionInputs, reductionOutputs []shapes.Shape, axes []int) (outputs []shapes.Shape, err error) {
	numReductions := len(inputs)
	if numReductions == 0 {
		return nil, errors.New("Reduce requires at least one input")
	}
	if len(initialValues) != numReductions {
		return nil, errors.Errorf("Reduce requires the same number of initial values as inputs, got %d initial values and %d inputs",
			len(initialValues), len(inputs))
	}
	baseDimensions := inputs[0].Dimensions
	for i, input := range inputs {
		if input.DType != initialValues[i].DType {
			return nil, errors.Errorf("Reduce requires the same dtype for initial values and inputs, got %s and %s for input #%d",
				initialValues[i].DType, input.DType, i)
		}
		if !initialValues[i].IsScalar() {
			return nil, errors.Errorf("Reduce initial values must be scalars, got %s for input #%d", initialValues[i], i)
		}
		if !slices.Equal(input.Dimensions, baseDimensions) {
			return nil, errors.Errorf("Reduce requires the same shape (dimensions only) for all inputs, got %s and %s for inputs #0 and #%d",
				inputs[0], input, i)
		}
	}

	// Check that the combiner signature matches: pairwise accumulator/current
	// scalars per operand.
	if len(reductionInputs) != 2*numReductions {
		return nil, errors.Errorf("the combiner for the Reduce operation must have 2 inputs for each operand, but it has %d inputs for 2*%d=%d operands",
			len(reductionInputs), numReductions, 2*numReductions)
	}
	if len(reductionOutputs) != numReductions {
		return nil, errors.Errorf("the combiner for the Reduce operation must have 1 output for each operand, but it has %d outputs for %d operands",
			len(reductionOutputs), numReductions)
	}
	for i := range numReductions {
		if reductionInputs[i].DType != reductionInputs[i+numReductions].DType || reductionInputs[i].DType != reductionOutputs[i].DType {
			return nil, errors.Errorf("Reduce requires the same dtype for lhs[i], rhs[i] inputs and output[i], got lhs[%d]=%s and rhs[%d+%d]=%s and output[%d]=%s",
				i, reductionInputs[i], i, numReductions, reductionInputs[i+numReductions], i, reductionOutputs[i])
		}
		if !reductionInputs[i].IsScalar() || !reductionOutputs[i].IsScalar() {
			return nil, errors.Errorf("Reduce combiner parameters and outputs must be scalars, got input=%s and output=%s for operand #%d",
				reductionInputs[i], reductionOutputs[i], i)
		}
		if inputs[i].DType != reductionInputs[i].DType {
			return nil, errors.Errorf("Reduce input #%d has dtype %s, but the combiner expects %s",
				i, inputs[i].DType, reductionInputs[i].DType)
		}
	}

	// Check the axes are valid.
	rank := inputs[0].Rank()
	if len(axes) == 0 {
		return nil, errors.New("Reduce requires at least one axis to reduce")
	}
	if len(axes) > rank {
		return nil, errors.Errorf("input for Reduce has rank=%d, but %d axes for reduction were given", rank, len(axes))
	}
	axesSet := utils.MakeSet[int]()
	for i, axis := range axes {
		adjustedAxis, err := AdjustAxisToRank(axis, rank)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid value for axes[%d]=%d for Reduce, inputs[0].shape=%s",
				i, axis, inputs[0])
		}
		if axesSet.Has(adjustedAxis) {
			return nil, errors.Errorf("duplicate value for axes[%d]=%d for Reduce, axes=%v",
				i, axis, axes)
		}
		axesSet.Insert(adjustedAxis)
		axes[i] = adjustedAxis
	}

	// Build the output shapes: the reduced axes disappear.
	reducedDims := slices.Clone(inputs[0].Dimensions)
	var toAxis int
	for axis, dim := range reducedDims {
		if axesSet.Has(axis) {
			continue
		}
		reducedDims[toAxis] = dim
		toAxis++
	}
	reducedDims = reducedDims[:toAxis]
	outputs = make([]shapes.Shape, numReductions)
	for i, outputBase := range reductionOutputs {
		outputs[i] = shapes.Make(outputBase.DType, slices.Clone(reducedDims)...)
	}
	return outputs, nil
}
