package hlo

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gomlx/hlo/internal/optypes"
	"github.com/gomlx/hlo/types"
	"github.com/gomlx/hlo/types/shapes"
)

// InstrID is a stable handle for an Instruction within its Computation.
type InstrID int

// InvalidInstrID indicates an instruction that failed to be created.
const InvalidInstrID = InstrID(-1)

// Instruction is one node of the computation graph: an operation, its operands
// (references into the same Computation's arena) and its output shape.
//
// Instructions are created through the Computation op methods (Pad, Reduce,
// etc.) and are immutable afterwards, except for the layout override used by
// graph rewrites to pin a declared output layout.
type Instruction struct {
	id     InstrID
	comp   *Computation
	opType optypes.OpType
	name   string

	operands []*Instruction
	shape    shapes.Shape

	// Per-op attributes. Only the fields relevant to opType are set.
	literal         *Literal
	parameterNumber int
	iotaAxis        int
	padLow, padHigh []int
	axes            []int
	tupleIndex      int
	direction       types.ComparisonDirection
	called          *Computation
	fusionKind      types.FusionKind
}

// ID returns the instruction's stable handle within its computation.
func (in *Instruction) ID() InstrID { return in.id }

// Computation that owns this instruction.
func (in *Instruction) Computation() *Computation { return in.comp }

// OpType of the instruction.
func (in *Instruction) OpType() optypes.OpType { return in.opType }

// Name of the instruction, unique within its computation.
func (in *Instruction) Name() string { return in.name }

// Shape of the instruction's output.
func (in *Instruction) Shape() shapes.Shape { return in.shape }

// Operands of the instruction.
func (in *Instruction) Operands() []*Instruction { return in.operands }

// Literal value, set for Constant instructions.
func (in *Instruction) Literal() *Literal { return in.literal }

// ParameterNumber, set for Parameter instructions.
func (in *Instruction) ParameterNumber() int { return in.parameterNumber }

// IotaAxis, set for Iota instructions.
func (in *Instruction) IotaAxis() int { return in.iotaAxis }

// PadLow returns the per-axis low (start) padding, set for Pad instructions.
func (in *Instruction) PadLow() []int { return in.padLow }

// PadHigh returns the per-axis high (end) padding, set for Pad instructions.
func (in *Instruction) PadHigh() []int { return in.padHigh }

// Axes returns the reduced axes, set for Reduce instructions.
func (in *Instruction) Axes() []int { return in.axes }

// TupleIndex, set for GetTupleElement instructions.
func (in *Instruction) TupleIndex() int { return in.tupleIndex }

// ComparisonDirection, set for Compare instructions.
func (in *Instruction) ComparisonDirection() types.ComparisonDirection { return in.direction }

// CalledComputation returns the interned sub-computation handle: the combiner
// for Reduce instructions, the fused body for Fusion instructions.
func (in *Instruction) CalledComputation() *Computation { return in.called }

// FusionKind, set for Fusion instructions.
func (in *Instruction) FusionKind() types.FusionKind { return in.fusionKind }

// WithName renames the instruction. The name is passed through
// NormalizeIdentifier and uniquified within the computation.
// It returns the instruction to allow chaining.
func (in *Instruction) WithName(name string) *Instruction {
	in.name = in.comp.uniquifyName(NormalizeIdentifier(name))
	return in
}

// OverrideLayout pins the declared minor-to-major layout of the instruction's
// output shape, without changing dimensions. Used by rewrites that must
// preserve the layout the replaced instruction declared.
func (in *Instruction) OverrideLayout(shape shapes.Shape) error {
	if !in.shape.Equal(shape) {
		return fmt.Errorf("cannot override layout of %%%s: shape %s differs from %s in dtype or dimensions",
			in.name, in.shape, shape)
	}
	in.shape = shape.Clone()
	return nil
}

// String implements fmt.Stringer, returning "%name".
func (in *Instruction) String() string {
	return "%" + in.name
}

// Write renders the instruction as one line of HLO text, e.g.:
//
//	%reduce.1 = f32[224]{0} reduce(%bitcast, %zero), dimensions={1}, to_apply=%add
func (in *Instruction) Write(writer io.Writer, indentation string, isRoot bool) error {
	var err error
	w := func(format string, args ...any) {
		if err != nil {
			// No op if an error was encountered earlier
			return
		}
		_, err = fmt.Fprintf(writer, format, args...)
	}

	w("%s", indentation)
	if isRoot {
		w("ROOT ")
	}
	w("%%%s = %s %s(", in.name, in.shape, in.opType.ToHLO())
	switch in.opType {
	case optypes.Parameter:
		w("%d", in.parameterNumber)
	case optypes.Constant:
		w("%s", in.literal.valueString())
	default:
		for i, operand := range in.operands {
			if i > 0 {
				w(", ")
			}
			w("%%%s", operand.name)
		}
	}
	w(")")

	switch in.opType {
	case optypes.Iota:
		w(", iota_dimension=%d", in.iotaAxis)
	case optypes.Pad:
		w(", padding=%s", paddingConfigString(in.padLow, in.padHigh))
	case optypes.Reduce:
		w(", dimensions={%s}, to_apply=%%%s", intsToString(in.axes), in.called.Name())
	case optypes.GetTupleElement:
		w(", index=%d", in.tupleIndex)
	case optypes.Compare:
		w(", direction=%s", in.direction.ToHLO())
	case optypes.Fusion:
		w(", kind=%s, calls=%%%s", in.fusionKind.ToHLO(), in.called.Name())
	}
	return err
}

// paddingConfigString renders the per-axis "low_high" padding bounds joined by
// "x", e.g. "0_0x0_489" for a rank-2 pad on the last axis.
func paddingConfigString(low, high []int) string {
	parts := make([]string, len(low))
	for axis := range low {
		parts[axis] = fmt.Sprintf("%d_%d", low[axis], high[axis])
	}
	return strings.Join(parts, "x")
}

func intsToString(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
