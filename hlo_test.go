package hlo

import (
	"fmt"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
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

// addCombiner creates a scalar f32 sum combiner in the module.
func addCombiner(m *Module) *Computation {
	c := m.NewComputation("add")
	x := must(c.Parameter("x", shapes.Make(dtypes.F32)))
	y := must(c.Parameter("y", shapes.Make(dtypes.F32)))
	sum := must(c.Add(x, y))
	if err := c.SetRoot(sum); err != nil {
		panic(err)
	}
	return c
}

func TestModule(t *testing.T) {
	t.Run("sum reduction", func(t *testing.T) {
		m := NewModule("sum_example")
		add := addCombiner(m)
		entry := m.NewComputation("main")
		input := must(entry.Parameter("input", shapes.Make(dtypes.F32, 8)))
		zero := must(entry.ConstantFromScalar(float32(0)))
		reduce := must(entry.Reduce([]*Instruction{input}, []*Instruction{zero}, add, 0))
		require.NoError(t, entry.SetRoot(reduce))
		require.NoError(t, m.SetEntry(entry))
		program := string(must(m.Build()))
		fmt.Printf("%s program:\n%s", t.Name(), program)

		assert.Contains(t, program, "HloModule sum_example")
		assert.Contains(t, program,
			`%add (x: f32[], y: f32[]) -> f32[] {
  %x = f32[] parameter(0)
  %y = f32[] parameter(1)
  ROOT %add = f32[] add(%x, %y)
}`)
		assert.Contains(t, program,
			`ENTRY %main (input: f32[8]{0}) -> f32[] {
  %input = f32[8]{0} parameter(0)
  %constant = f32[] constant(0)
  ROOT %reduce = f32[] reduce(%input, %constant), dimensions={0}, to_apply=%add
}`)
	})

	t.Run("pad and bitcast", func(t *testing.T) {
		m := NewModule("pad_example")
		entry := m.NewComputation("main")
		input := must(entry.Parameter("input", shapes.Make(dtypes.F32, 10)))
		zero := must(entry.ConstantFromScalar(float32(0)))
		padded := must(entry.Pad(input, zero, []int{0}, []int{6}))
		tiled := must(entry.Bitcast(padded, shapes.Make(dtypes.F32, 4, 4)))
		require.NoError(t, entry.SetRoot(tiled))
		require.NoError(t, m.SetEntry(entry))
		program := string(must(m.Build()))

		assert.Contains(t, program, `%pad = f32[16]{0} pad(%input, %constant), padding=0_6`)
		assert.Contains(t, program, `ROOT %bitcast = f32[4,4]{1,0} bitcast(%pad)`)
	})

	t.Run("variadic reduce", func(t *testing.T) {
		m := NewModule("argmax_example")
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
		root := must(combiner.Tuple(bestValue, bestIndex))
		require.NoError(t, combiner.SetRoot(root))

		entry := m.NewComputation("main")
		input := must(entry.Parameter("input", shapes.Make(dtypes.F32, 3, 8)))
		iota := must(entry.Iota(shapes.Make(dtypes.U32, 3, 8), 1))
		initValue := must(entry.ConstantFromScalar(float32(0)))
		initIndex := must(entry.ConstantFromScalar(uint32(0)))
		reduce := must(entry.Reduce(
			[]*Instruction{input, iota}, []*Instruction{initValue, initIndex},
			combiner, 1))
		index := must(entry.GetTupleElement(reduce, 1))
		require.NoError(t, entry.SetRoot(index))
		require.NoError(t, m.SetEntry(entry))
		program := string(must(m.Build()))
		fmt.Printf("%s program:\n%s", t.Name(), program)

		assert.Contains(t, program, `%compare = pred[] compare(%acc_value, %cur_value), direction=GE`)
		assert.Contains(t, program, `ROOT %tuple = (f32[], u32[]) tuple(%select, %select.1)`)
		assert.Contains(t, program, `%iota = u32[3,8]{1,0} iota(), iota_dimension=1`)
		assert.Contains(t, program,
			`%reduce = (f32[3]{0}, u32[3]{0}) reduce(%input, %iota, %constant, %constant.1), dimensions={1}, to_apply=%argmax`)
		assert.Contains(t, program, `ROOT %get-tuple-element = u32[3]{0} get-tuple-element(%reduce), index=1`)
	})

	t.Run("fusion", func(t *testing.T) {
		m := NewModule("fusion_example")
		add := addCombiner(m)
		fused := m.NewComputation("fused_computation")
		fusedParam := must(fused.Parameter("param_0", shapes.Make(dtypes.F32, 10)))
		fusedZero := must(fused.ConstantFromScalar(float32(0)))
		fusedPad := must(fused.Pad(fusedParam, fusedZero, []int{0}, []int{6}))
		fusedRoot := must(fused.Reduce([]*Instruction{fusedPad}, []*Instruction{fusedZero}, add, 0))
		require.NoError(t, fused.SetRoot(fusedRoot))

		entry := m.NewComputation("main")
		input := must(entry.Parameter("input", shapes.Make(dtypes.F32, 10)))
		fusion := must(entry.Fusion(types.FusionInput, fused, input))
		require.NoError(t, entry.SetRoot(fusion))
		require.NoError(t, m.SetEntry(entry))
		program := string(must(m.Build()))

		assert.Contains(t, program, `ROOT %fusion = f32[] fusion(%input), kind=kInput, calls=%fused_computation`)
	})
}

func TestReplaceInstruction(t *testing.T) {
	m := NewModule("replace_example")
	add := addCombiner(m)
	entry := m.NewComputation("main")
	input := must(entry.Parameter("input", shapes.Make(dtypes.F32, 16)))
	zero := must(entry.ConstantFromScalar(float32(0)))
	reduce := must(entry.Reduce([]*Instruction{input}, []*Instruction{zero}, add, 0))
	require.NoError(t, entry.SetRoot(reduce))
	require.NoError(t, m.SetEntry(entry))

	// Splice a two-stage version in place of the one-shot reduce.
	tiled := must(entry.Bitcast(input, shapes.Make(dtypes.F32, 4, 4)))
	inner := must(entry.Reduce([]*Instruction{tiled}, []*Instruction{zero}, add, 1))
	outer := must(entry.Reduce([]*Instruction{inner}, []*Instruction{zero}, add, 0))
	require.NoError(t, entry.ReplaceInstruction(reduce, outer))
	require.Equal(t, outer, entry.Root())

	program := string(must(m.Build()))
	fmt.Printf("%s program:\n%s", t.Name(), program)
	assert.Contains(t, program, `%reduce.1 = f32[4]{0} reduce(%bitcast, %constant), dimensions={1}, to_apply=%add`)
	assert.Contains(t, program, `ROOT %reduce.2 = f32[] reduce(%reduce.1, %constant), dimensions={0}, to_apply=%add`)
	// The replaced instruction is unreachable and no longer rendered.
	assert.NotContains(t, program, `dimensions={0}, to_apply=%add
  ROOT`)
	assert.NotContains(t, program, ` %reduce = `)

	users := entry.UsersOf(inner)
	require.Len(t, users, 1)
	assert.Equal(t, outer, users[0])
}

func TestModule_Errors(t *testing.T) {
	t.Run("no entry", func(t *testing.T) {
		m := NewModule("broken")
		c := m.NewComputation("main")
		one := must(c.ConstantFromScalar(float32(1)))
		require.NoError(t, c.SetRoot(one))
		_, err := m.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entry computation")
	})

	t.Run("cross computation operands", func(t *testing.T) {
		m := NewModule("broken")
		c1 := m.NewComputation("a")
		c2 := m.NewComputation("b")
		x := must(c1.ConstantFromScalar(float32(1)))
		y := must(c2.ConstantFromScalar(float32(2)))
		_, err := c1.Add(x, y)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "belongs to computation")
	})

	t.Run("replace with different shape", func(t *testing.T) {
		m := NewModule("broken")
		c := m.NewComputation("main")
		input := must(c.Parameter("input", shapes.Make(dtypes.F32, 4)))
		other := must(c.ConstantFromScalar(float32(0)))
		err := c.ReplaceInstruction(input, other)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "differs")
	})
}

func TestLiteral(t *testing.T) {
	scalar := must(NewScalarLiteral(float32(3.5)))
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, float32(3.5), scalar.ScalarValue())
	assert.Equal(t, "3.5", scalar.valueString())

	flat := must(NewLiteralFromFlat([]float32{1, 2, 3, 4, 5, 6}, 2, 3))
	assert.Equal(t, "f32[2,3]{1,0}", flat.Shape().String())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, flat.Flat())

	zeros := must(NewLiteralFromShape(shapes.Make(dtypes.F32, 2, 2)))
	assert.Equal(t, []float32{0, 0, 0, 0}, zeros.Flat())
	assert.True(t, zeros.Equal(must(NewLiteralFromFlat([]float32{0, 0, 0, 0}, 2, 2))))
	assert.False(t, zeros.Equal(flat))
}
