package interp

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hlo"
	"github.com/gomlx/hlo/types"
	"github.com/gomlx/hlo/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func must[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

func addCombiner(m *hlo.Module) *hlo.Computation {
	c := m.NewComputation("add")
	x := must(c.Parameter("x", shapes.Make(dtypes.F32)))
	y := must(c.Parameter("y", shapes.Make(dtypes.F32)))
	if err := c.SetRoot(must(c.Add(x, y))); err != nil {
		panic(err)
	}
	return c
}

func TestRun_SumReduce(t *testing.T) {
	m := hlo.NewModule("sum")
	add := addCombiner(m)
	entry := m.NewComputation("main")
	input := must(entry.Parameter("input", shapes.Make(dtypes.F32, 2, 3)))
	zero := must(entry.ConstantFromScalar(float32(0)))
	reduce := must(entry.Reduce([]*hlo.Instruction{input}, []*hlo.Instruction{zero}, add, 1))
	require.NoError(t, entry.SetRoot(reduce))
	require.NoError(t, m.SetEntry(entry))

	arg := must(hlo.NewLiteralFromFlat([]float32{1, 2, 3, 10, 20, 30}, 2, 3))
	outputs := must(Run(m, []*hlo.Literal{arg}))
	require.Len(t, outputs, 1)
	assert.Equal(t, []float32{6, 60}, outputs[0].Flat())
}

func TestRun_PadAndBitcast(t *testing.T) {
	m := hlo.NewModule("pad")
	entry := m.NewComputation("main")
	input := must(entry.Parameter("input", shapes.Make(dtypes.F32, 3)))
	fill := must(entry.ConstantFromScalar(float32(-1)))
	padded := must(entry.Pad(input, fill, []int{1}, []int{2}))
	tiled := must(entry.Bitcast(padded, shapes.Make(dtypes.F32, 2, 3)))
	require.NoError(t, entry.SetRoot(tiled))
	require.NoError(t, m.SetEntry(entry))

	arg := must(hlo.NewLiteralFromFlat([]float32{5, 6, 7}, 3))
	outputs := must(Run(m, []*hlo.Literal{arg}))
	assert.Equal(t, "f32[2,3]{1,0}", outputs[0].Shape().String())
	assert.Equal(t, []float32{-1, 5, 6, 7, -1, -1}, outputs[0].Flat())
}

func TestRun_Iota(t *testing.T) {
	m := hlo.NewModule("iota")
	entry := m.NewComputation("main")
	iota := must(entry.Iota(shapes.Make(dtypes.U32, 2, 3), 1))
	require.NoError(t, entry.SetRoot(iota))
	require.NoError(t, m.SetEntry(entry))

	outputs := must(Run(m, nil))
	assert.Equal(t, []uint32{0, 1, 2, 0, 1, 2}, outputs[0].Flat())

	m2 := hlo.NewModule("iota_major")
	entry2 := m2.NewComputation("main")
	iota2 := must(entry2.Iota(shapes.Make(dtypes.S32, 2, 3), 0))
	require.NoError(t, entry2.SetRoot(iota2))
	require.NoError(t, m2.SetEntry(entry2))

	outputs2 := must(Run(m2, nil))
	assert.Equal(t, []int32{0, 0, 0, 1, 1, 1}, outputs2[0].Flat())
}

func TestRun_VariadicArgmax(t *testing.T) {
	m := hlo.NewModule("argmax")
	combiner := m.NewComputation("argmax")
	scalarF32 := shapes.Make(dtypes.F32)
	scalarU32 := shapes.Make(dtypes.U32)
	accValue := must(combiner.Parameter("acc_value", scalarF32))
	accIndex := must(combiner.Parameter("acc_index", scalarU32))
	curValue := must(combiner.Parameter("cur_value", scalarF32))
	curIndex := must(combiner.Parameter("cur_index", scalarU32))
	pred := must(combiner.Compare(accValue, curValue, types.CompareGE))
	bestValue := must(combiner.Select(pred, accValue, curValue))
	bestIndex := must(combiner.Select(pred, accIndex, curIndex))
	require.NoError(t, combiner.SetRoot(must(combiner.Tuple(bestValue, bestIndex))))

	entry := m.NewComputation("main")
	input := must(entry.Parameter("input", shapes.Make(dtypes.F32, 2, 4)))
	iota := must(entry.Iota(shapes.Make(dtypes.U32, 2, 4), 1))
	initValue := must(entry.Constant(must(hlo.NewScalarLiteral(dtypes.F32.LowestValue()))))
	initIndex := must(entry.ConstantFromScalar(uint32(0)))
	reduce := must(entry.Reduce(
		[]*hlo.Instruction{input, iota}, []*hlo.Instruction{initValue, initIndex},
		combiner, 1))
	require.NoError(t, entry.SetRoot(reduce))
	require.NoError(t, m.SetEntry(entry))

	arg := must(hlo.NewLiteralFromFlat([]float32{1, 9, 3, 2, 7, 0, 8, 5}, 2, 4))
	outputs := must(Run(m, []*hlo.Literal{arg}))
	require.Len(t, outputs, 2)
	assert.Equal(t, []float32{9, 8}, outputs[0].Flat())
	assert.Equal(t, []uint32{1, 2}, outputs[1].Flat())
}

func TestRun_Fusion(t *testing.T) {
	m := hlo.NewModule("fusion")
	add := addCombiner(m)
	fused := m.NewComputation("fused_computation")
	fusedParam := must(fused.Parameter("param_0", shapes.Make(dtypes.F32, 3)))
	fusedZero := must(fused.ConstantFromScalar(float32(0)))
	fusedPad := must(fused.Pad(fusedParam, fusedZero, []int{0}, []int{1}))
	require.NoError(t, fused.SetRoot(
		must(fused.Reduce([]*hlo.Instruction{fusedPad}, []*hlo.Instruction{fusedZero}, add, 0))))

	entry := m.NewComputation("main")
	input := must(entry.Parameter("input", shapes.Make(dtypes.F32, 3)))
	fusion := must(entry.Fusion(types.FusionInput, fused, input))
	require.NoError(t, entry.SetRoot(fusion))
	require.NoError(t, m.SetEntry(entry))

	arg := must(hlo.NewLiteralFromFlat([]float32{1, 2, 3}, 3))
	outputs := must(Run(m, []*hlo.Literal{arg}))
	assert.Equal(t, []float32{6}, outputs[0].Flat())
}

func TestRun_Errors(t *testing.T) {
	m := hlo.NewModule("broken")
	entry := m.NewComputation("main")
	input := must(entry.Parameter("input", shapes.Make(dtypes.F32, 3)))
	require.NoError(t, entry.SetRoot(input))
	require.NoError(t, m.SetEntry(entry))

	_, err := Run(m, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameters")

	wrongShape := must(hlo.NewLiteralFromFlat([]float32{1, 2}, 2))
	_, err = Run(m, []*hlo.Literal{wrongShape})
	require.Error(t, err)
}
