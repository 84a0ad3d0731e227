package hlo

import (
	"fmt"
	"io"

	"github.com/gomlx/hlo/internal/optypes"
	"github.com/gomlx/hlo/internal/utils"
	"github.com/gomlx/hlo/types/shapes"
	"github.com/pkg/errors"
)

// Computation holds a DAG of instructions in an arena: instructions are
// appended in creation order and addressed by stable InstrID handles, so
// operand references always remain valid, including across graph rewrites.
//
// A computation can be the module's entry, a reduction combiner or a fusion
// body. Combiners and fusion bodies are referenced by handle from the
// instructions that call them; they are interned in the Module, never copied.
type Computation struct {
	mod  *Module
	name string

	// instructions is the arena; an instruction's id is its index here.
	instructions []*Instruction

	// parameters, in parameter-number order. They are also in instructions.
	parameters []*Instruction

	root *Instruction

	// nameCounts tracks instruction base names to keep names unique.
	nameCounts map[string]int
}

// Module that owns this computation.
func (c *Computation) Module() *Module { return c.mod }

// Name of the computation, unique within its module.
func (c *Computation) Name() string { return c.name }

// Instructions returns the computation's arena, in creation (id) order.
// Instructions made unreachable by a rewrite remain in the arena but are not
// rendered or executed.
func (c *Computation) Instructions() []*Instruction { return c.instructions }

// InstructionByID returns the instruction with the given stable handle, or nil
// for InvalidInstrID.
func (c *Computation) InstructionByID(id InstrID) *Instruction {
	if id == InvalidInstrID {
		return nil
	}
	return c.instructions[id]
}

// Parameters returns the computation's parameters in parameter-number order.
func (c *Computation) Parameters() []*Instruction { return c.parameters }

// NumParameters returns how many parameters the computation declares.
func (c *Computation) NumParameters() int { return len(c.parameters) }

// Root returns the computation's root (output) instruction, or nil if not set.
func (c *Computation) Root() *Instruction { return c.root }

// SetRoot defines the computation's output.
func (c *Computation) SetRoot(instr *Instruction) error {
	if instr.comp != c {
		return errors.Errorf("cannot set %%%s as root of computation %q: it belongs to computation %q",
			instr.name, c.name, instr.comp.name)
	}
	c.root = instr
	return nil
}

// registerInstruction appends the instruction to the arena and assigns its id.
func (c *Computation) registerInstruction(instr *Instruction) InstrID {
	id := InstrID(len(c.instructions))
	instr.id = id
	c.instructions = append(c.instructions, instr)
	return id
}

// uniquifyName returns base the first time it is seen, and "base.N" afterwards.
func (c *Computation) uniquifyName(base string) string {
	if c.nameCounts == nil {
		c.nameCounts = make(map[string]int)
	}
	count := c.nameCounts[base]
	c.nameCounts[base]++
	if count == 0 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, count)
}

// newInstruction creates an instruction with the default name for its op and
// registers it in the arena.
func (c *Computation) newInstruction(opType optypes.OpType, shape shapes.Shape, operands ...*Instruction) *Instruction {
	instr := &Instruction{
		comp:     c,
		opType:   opType,
		name:     c.uniquifyName(opType.ToHLO()),
		operands: operands,
		shape:    shape,
	}
	c.registerInstruction(instr)
	return instr
}

// checkOwnership returns an error if any of the given instructions belongs to
// a different computation.
func (c *Computation) checkOwnership(opType optypes.OpType, operands ...*Instruction) error {
	for i, operand := range operands {
		if operand == nil {
			return errors.Errorf("cannot add operation %s to computation %q: operand #%d is nil", opType, c.name, i)
		}
		if operand.comp != c {
			return errors.Errorf("cannot add operation %s to computation %q: operand #%d (%%%s) belongs to computation %q",
				opType, c.name, i, operand.name, operand.comp.name)
		}
	}
	return nil
}

// outputShapes returns the computation's output shapes: the operand shapes of
// a Tuple root, otherwise the root's single shape.
func (c *Computation) outputShapes() []shapes.Shape {
	if c.root == nil {
		return nil
	}
	if c.root.opType == optypes.Tuple {
		outputs := make([]shapes.Shape, len(c.root.operands))
		for i, operand := range c.root.operands {
			outputs[i] = operand.shape
		}
		return outputs
	}
	return []shapes.Shape{c.root.shape}
}

// ReplaceInstruction retargets every use of old (operand references and the
// root) to newInstr, in one pass. The replacement must preserve dtype and
// dimensions; layout may differ (see Instruction.OverrideLayout). old remains
// in the arena but becomes unreachable.
func (c *Computation) ReplaceInstruction(old, newInstr *Instruction) error {
	if old.comp != c || newInstr.comp != c {
		return errors.Errorf("ReplaceInstruction: both instructions must belong to computation %q", c.name)
	}
	if !old.shape.Equal(newInstr.shape) {
		return errors.Errorf("ReplaceInstruction: shape of %%%s (%s) differs from %%%s (%s) in dtype or dimensions",
			newInstr.name, newInstr.shape, old.name, old.shape)
	}
	for _, instr := range c.instructions {
		if instr == newInstr {
			continue
		}
		for i, operand := range instr.operands {
			if operand == old {
				instr.operands[i] = newInstr
			}
		}
	}
	if c.root == old {
		c.root = newInstr
	}
	return nil
}

// reachable returns the set of instruction ids reachable from the root (plus
// all parameters). With no root set, every instruction is considered reachable.
func (c *Computation) reachable() utils.Set[InstrID] {
	set := utils.MakeSet[InstrID](len(c.instructions))
	if c.root == nil {
		for _, instr := range c.instructions {
			set.Insert(instr.id)
		}
		return set
	}
	for _, param := range c.parameters {
		set.Insert(param.id)
	}
	var visit func(instr *Instruction)
	visit = func(instr *Instruction) {
		if set.Has(instr.id) {
			return
		}
		set.Insert(instr.id)
		for _, operand := range instr.operands {
			visit(operand)
		}
	}
	visit(c.root)
	return set
}

// UsersOf returns the instructions that take instr as an operand, considering
// only instructions reachable from the root.
func (c *Computation) UsersOf(instr *Instruction) []*Instruction {
	reachable := c.reachable()
	var users []*Instruction
	for _, candidate := range c.instructions {
		if !reachable.Has(candidate.id) {
			continue
		}
		for _, operand := range candidate.operands {
			if operand == instr {
				users = append(users, candidate)
				break
			}
		}
	}
	return users
}

// renderOrder returns the reachable instructions with every operand ordered
// before its users: parameters first, then a post-order walk from the root.
// With no root set, the arena (creation) order is used.
func (c *Computation) renderOrder() []*Instruction {
	if c.root == nil {
		return c.instructions
	}
	visited := utils.MakeSet[InstrID](len(c.instructions))
	order := make([]*Instruction, 0, len(c.instructions))
	var visit func(instr *Instruction)
	visit = func(instr *Instruction) {
		if visited.Has(instr.id) {
			return
		}
		visited.Insert(instr.id)
		for _, operand := range instr.operands {
			visit(operand)
		}
		order = append(order, instr)
	}
	for _, param := range c.parameters {
		visit(param)
	}
	visit(c.root)
	return order
}

// Write renders the computation as HLO text with the given indentation.
// Only parameters and instructions reachable from the root are rendered,
// operands before users.
func (c *Computation) Write(writer io.Writer, indentation string, isEntry bool) error {
	var err error
	w := func(format string, args ...any) {
		if err != nil {
			// No op if an error was encountered earlier
			return
		}
		_, err = fmt.Fprintf(writer, format, args...)
	}

	if isEntry {
		w("%sENTRY ", indentation)
	} else {
		w("%s", indentation)
	}
	w("%%%s (", c.name)
	for i, param := range c.parameters {
		if i > 0 {
			w(", ")
		}
		w("%s: %s", param.name, param.shape)
	}
	w(")")
	if c.root != nil {
		w(" -> %s", c.root.shape)
	}
	w(" {\n")

	nextIndent := indentation + IndentationStep
	for _, instr := range c.renderOrder() {
		if err != nil {
			break
		}
		err = instr.Write(writer, nextIndent, instr == c.root)
		w("\n")
	}
	w("%s}", indentation)
	return err
}
