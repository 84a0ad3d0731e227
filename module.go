package hlo

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Module is the unit of compilation: a set of computations plus a designated
// entry computation. Sub-computations (combiners, fusion bodies) live next to
// the entry and are shared by handle.
type Module struct {
	name string

	computations []*Computation
	entry        *Computation

	// nameCounts tracks computation base names to keep names unique.
	nameCounts map[string]int
}

// NewModule creates an empty module holding a computation graph in construction.
//
// Create computations with Module.NewComputation, designate the entry one with
// Module.SetEntry, and render the module with Module.Build or Module.Write.
func NewModule(name string) *Module {
	return &Module{
		name:       NormalizeIdentifier(name),
		nameCounts: make(map[string]int),
	}
}

// Name of the module.
func (m *Module) Name() string { return m.name }

// NewComputation creates a computation and adds it to the module. The name is
// normalized and uniquified within the module.
func (m *Module) NewComputation(name string) *Computation {
	name = NormalizeIdentifier(name)
	count := m.nameCounts[name]
	m.nameCounts[name]++
	if count > 0 {
		name = fmt.Sprintf("%s.%d", name, count)
	}
	c := &Computation{
		mod:  m,
		name: name,
	}
	m.computations = append(m.computations, c)
	return c
}

// SetEntry designates the module's entry computation.
func (m *Module) SetEntry(c *Computation) error {
	if c.mod != m {
		return errors.Errorf("computation %q belongs to a different module", c.name)
	}
	m.entry = c
	return nil
}

// EntryComputation returns the module's entry computation, or nil if not set.
func (m *Module) EntryComputation() *Computation { return m.entry }

// Computations returns all computations of the module, in creation order.
func (m *Module) Computations() []*Computation { return m.computations }

const IndentationStep = "  "

// Write the module as HLO text to the given writer.
//
// It will write incomplete modules (without an entry or without roots) without
// an error, to help debugging. See Module.Build to check and output the module.
func (m *Module) Write(writer io.Writer) error {
	var err error
	w := func(format string, args ...any) {
		if err != nil {
			// No op if an error was encountered earlier
			return
		}
		_, err = fmt.Fprintf(writer, format, args...)
	}

	w("HloModule %s\n", m.name)
	for _, c := range m.computations {
		if c == m.entry {
			continue
		}
		w("\n")
		if err != nil {
			return err
		}
		err = c.Write(writer, "", false)
		w("\n")
	}
	if m.entry != nil {
		w("\n")
		if err != nil {
			return err
		}
		err = m.entry.Write(writer, "", true)
		w("\n")
	}
	return err
}

// Build checks the validity of the module and renders it as HLO text.
//
// If you want the output of an incomplete module (without the checking), use
// Module.Write instead.
func (m *Module) Build() ([]byte, error) {
	if m.entry == nil {
		return nil, errors.New("module must have an entry computation")
	}
	for _, c := range m.computations {
		if len(c.instructions) == 0 {
			return nil, errors.Errorf("computation %q has no instructions", c.name)
		}
		if c.root == nil {
			return nil, errors.Errorf("computation %q has no root", c.name)
		}
	}
	var buf bytes.Buffer
	if err := m.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String renders the module as HLO text, ignoring errors. For debugging.
func (m *Module) String() string {
	var buf bytes.Buffer
	_ = m.Write(&buf)
	return buf.String()
}
