package treereduce

import (
	"slices"

	"github.com/gomlx/hlo"
	"github.com/gomlx/hlo/types/shapes"
)

// emitTiled builds the tiled replacement subgraph next to the original
// reduce: per operand an optional run-merging bitcast, an identity-value pad
// and the tile-splitting bitcast, then two reduction stages (three when the
// batch axis gets its own stage). It returns the final stage and the inner
// (first) stage; the caller splices the final stage in.
func (r *Rewriter) emitTiled(comp *hlo.Computation, reduce *hlo.Instruction, a analysis) (final, inner *hlo.Instruction, err error) {
	numReductions := len(reduce.Operands()) / 2
	dataOps := reduce.Operands()[:numReductions]
	initOps := reduce.Operands()[numReductions:]
	combiner := reduce.CalledComputation()

	pre := a.dims[:a.runStart]
	post := a.dims[a.runEnd+1:]
	axisPos := a.runStart
	padding := a.tile.PaddedTotal - a.n

	stage1Inputs := make([]*hlo.Instruction, numReductions)
	for i, op := range dataOps {
		src := op
		dtype := op.Shape().DType
		if a.runEnd > a.runStart {
			merged := shapes.Make(dtype, slices.Concat(pre, []int{a.n}, post)...)
			if src, err = comp.Bitcast(src, merged); err != nil {
				return nil, nil, err
			}
		}
		if padding > 0 {
			low := make([]int, len(pre)+1+len(post))
			high := make([]int, len(low))
			high[axisPos] = padding
			if src, err = comp.Pad(src, initOps[i], low, high); err != nil {
				return nil, nil, err
			}
		}
		split := shapes.Make(dtype, slices.Concat(pre, []int{a.tile.Outer, a.tile.Inner}, post)...)
		if src, err = comp.Bitcast(src, split); err != nil {
			return nil, nil, err
		}
		stage1Inputs[i] = src
	}

	// Row reductions reduce the inner (minor) tile factor first, folding a
	// fitting batch axis into the same stage; column reductions reduce the
	// outer (major) factor first, which keeps the minor axis intact.
	var stage1Axes []int
	if a.orient == rowReduction {
		stage1Axes = []int{axisPos + 1}
		if a.batched && a.batchFits {
			stage1Axes = append(stage1Axes, 0)
		}
	} else {
		stage1Axes = []int{axisPos}
	}
	stage1, err := comp.Reduce(stage1Inputs, initOps, combiner, stage1Axes...)
	if err != nil {
		return nil, nil, err
	}
	inner = stage1

	stage2Inputs, err := unpack(comp, stage1, numReductions)
	if err != nil {
		return nil, nil, err
	}
	stage2Axis := axisPos
	if a.orient == rowReduction {
		stage2Axis = stage2Inputs[0].Shape().Rank() - 1
	}
	stage2, err := comp.Reduce(stage2Inputs, initOps, combiner, stage2Axis)
	if err != nil {
		return nil, nil, err
	}
	final = stage2

	if a.batched && !a.batchFits {
		stage3Inputs, err := unpack(comp, stage2, numReductions)
		if err != nil {
			return nil, nil, err
		}
		final, err = comp.Reduce(stage3Inputs, initOps, combiner, 0)
		if err != nil {
			return nil, nil, err
		}
	}
	return final, inner, nil
}

// emitBatchOnly splits a reduction whose run fits in one stage but whose
// batch axis does not: stage 1 reduces the run, stage 2 the batch axis. No
// padding or tiling is involved.
func (r *Rewriter) emitBatchOnly(comp *hlo.Computation, reduce *hlo.Instruction, a analysis) (final, inner *hlo.Instruction, err error) {
	numReductions := len(reduce.Operands()) / 2
	dataOps := reduce.Operands()[:numReductions]
	initOps := reduce.Operands()[numReductions:]
	combiner := reduce.CalledComputation()

	runAxes := make([]int, 0, a.runEnd-a.runStart+1)
	for axis := a.runStart; axis <= a.runEnd; axis++ {
		runAxes = append(runAxes, axis)
	}
	stage1, err := comp.Reduce(dataOps, initOps, combiner, runAxes...)
	if err != nil {
		return nil, nil, err
	}
	stage2Inputs, err := unpack(comp, stage1, numReductions)
	if err != nil {
		return nil, nil, err
	}
	final, err = comp.Reduce(stage2Inputs, initOps, combiner, 0)
	if err != nil {
		return nil, nil, err
	}
	return final, stage1, nil
}

// unpack returns the per-operand streams of a reduction stage: the stage
// itself for a single operand, get-tuple-element extractions otherwise.
func unpack(comp *hlo.Computation, stage *hlo.Instruction, numReductions int) ([]*hlo.Instruction, error) {
	if numReductions == 1 {
		return []*hlo.Instruction{stage}, nil
	}
	streams := make([]*hlo.Instruction, numReductions)
	for i := range streams {
		gte, err := comp.GetTupleElement(stage, i)
		if err != nil {
			return nil, err
		}
		streams[i] = gte
	}
	return streams, nil
}
