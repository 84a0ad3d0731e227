package treereduce

import (
	"fmt"

	"github.com/gomlx/hlo"
	"github.com/gomlx/hlo/internal/optypes"
	"github.com/gomlx/hlo/types"
)

// fuseInnerStage groups the inner reduction stage with the pad and bitcast
// chains feeding it (and any single-consumer iota generating an index
// operand) into one input-style fusion, so the padded arrays are never
// materialized. Constants are cloned into the fused computation; anything
// else a chain reaches becomes a fusion parameter. The combiner keeps being
// referenced by handle, never copied.
//
// Grouping is an optimization: when there is no pad or bitcast to absorb
// (the batch-only split) the stage is left as is.
func (r *Rewriter) fuseInnerStage(comp *hlo.Computation, inner *hlo.Instruction) error {
	operands := inner.Operands()
	numReductions := len(operands) / 2
	absorbs := false
	for _, op := range operands[:numReductions] {
		if t := op.OpType(); t == optypes.Pad || t == optypes.Bitcast {
			absorbs = true
			break
		}
	}
	if !absorbs {
		return nil
	}

	fused := comp.Module().NewComputation("fused_computation")
	imported := make(map[*hlo.Instruction]*hlo.Instruction)
	var externals []*hlo.Instruction
	var importValue func(v *hlo.Instruction) (*hlo.Instruction, error)
	importValue = func(v *hlo.Instruction) (*hlo.Instruction, error) {
		if clone, found := imported[v]; found {
			return clone, nil
		}
		var clone *hlo.Instruction
		var err error
		switch v.OpType() {
		case optypes.Constant:
			clone, err = fused.Constant(v.Literal())
		case optypes.Iota:
			if len(comp.UsersOf(v)) == 1 {
				clone, err = fused.Iota(v.Shape(), v.IotaAxis())
			}
		case optypes.Pad:
			var x, fill *hlo.Instruction
			if x, err = importValue(v.Operands()[0]); err != nil {
				return nil, err
			}
			if fill, err = importValue(v.Operands()[1]); err != nil {
				return nil, err
			}
			clone, err = fused.Pad(x, fill, v.PadLow(), v.PadHigh())
		case optypes.Bitcast:
			var x *hlo.Instruction
			if x, err = importValue(v.Operands()[0]); err != nil {
				return nil, err
			}
			clone, err = fused.Bitcast(x, v.Shape())
		}
		if err != nil {
			return nil, err
		}
		if clone == nil {
			clone, err = fused.Parameter(fmt.Sprintf("param_%d", len(externals)), v.Shape())
			if err != nil {
				return nil, err
			}
			externals = append(externals, v)
		}
		imported[v] = clone
		return clone, nil
	}

	fusedOperands := make([]*hlo.Instruction, len(operands))
	for i, operand := range operands {
		clone, err := importValue(operand)
		if err != nil {
			return err
		}
		fusedOperands[i] = clone
	}
	root, err := fused.Reduce(
		fusedOperands[:numReductions], fusedOperands[numReductions:],
		inner.CalledComputation(), inner.Axes()...)
	if err != nil {
		return err
	}
	if err = fused.SetRoot(root); err != nil {
		return err
	}
	fusion, err := comp.Fusion(types.FusionInput, fused, externals...)
	if err != nil {
		return err
	}
	return comp.ReplaceInstruction(inner, fusion)
}
