package tracing

import (
	"sync"

	"github.com/sarchlab/akita-mos/cpu"
	"github.com/sarchlab/akita-mos/sim/hooking"
)

// CountTracer counts how many times each hook position is reached and how
// many instructions of each opcode retire.
type CountTracer struct {
	lock        sync.Mutex
	posNames    []string
	posCount    map[string]uint64
	opcodeCount map[cpu.Opcode]uint64
	reasonCount map[cpu.ErrorCode]uint64
}

// NewCountTracer creates a new CountTracer.
func NewCountTracer() *CountTracer {
	return &CountTracer{
		posCount:    make(map[string]uint64),
		opcodeCount: make(map[cpu.Opcode]uint64),
		reasonCount: make(map[cpu.ErrorCode]uint64),
	}
}

// Func counts the event.
func (t *CountTracer) Func(ctx hooking.HookCtx) {
	t.lock.Lock()
	defer t.lock.Unlock()

	name := ctx.Pos.Name
	if _, ok := t.posCount[name]; !ok {
		t.posNames = append(t.posNames, name)
	}
	t.posCount[name]++

	switch ctx.Pos {
	case cpu.HookPosInstructionRetire:
		t.opcodeCount[ctx.Detail.(cpu.Instruction).Opcode]++
	case cpu.HookPosTermination:
		t.reasonCount[ctx.Detail.(cpu.Record).Reason]++
	}
}

// PosNames returns the names of the positions seen, in order of first
// appearance.
func (t *CountTracer) PosNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.posNames...)
}

// Count returns the number of times the position was reached.
func (t *CountTracer) Count(pos *hooking.HookPos) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.posCount[pos.Name]
}

// OpcodeCount returns the number of retired instructions with the opcode.
func (t *CountTracer) OpcodeCount(op cpu.Opcode) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.opcodeCount[op]
}

// ReasonCount returns the number of jobs that terminated for the reason.
func (t *CountTracer) ReasonCount(reason cpu.ErrorCode) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.reasonCount[reason]
}
