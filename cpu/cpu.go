// Package cpu implements the processor of the machine: the register file,
// the quota tracker, the interrupt controller, demand paging, and the
// fetch-decode-execute loop that ties them together.
package cpu

import (
	"fmt"
	"log"
	"strings"

	"github.com/sarchlab/akita-mos/mem/vm"
	"github.com/sarchlab/akita-mos/mem/vm/addresstranslator"
	"github.com/sarchlab/akita-mos/memory"
	"github.com/sarchlab/akita-mos/sim/hooking"
	"github.com/sarchlab/akita-mos/sim/naming"
)

// Comp is the processor. It runs one job at a time, from the first
// instruction until the interrupt controller terminates the job.
type Comp struct {
	naming.NamedBase
	hooking.HookableBase

	storage    *memory.Storage
	translator *addresstranslator.Translator
	controller *Controller

	Registers
	pcb    PCB
	ptr    int
	input  InputReader
	output OutputSink

	terminated bool
	record     Record
	err        error
}

// Run executes the process until it terminates. The returned error is only
// set if the output sink fails; faults of the job are reported in the record.
func (c *Comp) Run(p Process) (Record, error) {
	c.load(p)
	c.invokeHook(HookPosJobStart, nil)

	for !c.terminated && c.err == nil {
		c.step()
	}

	return c.record, c.err
}

// State returns a snapshot of the processor.
func (c *Comp) State() State {
	return State{
		Registers:  c.Registers,
		PCB:        c.pcb,
		PTR:        c.ptr,
		Terminated: c.terminated,
	}
}

func (c *Comp) load(p Process) {
	c.Registers.Reset()
	c.IC = p.IC
	c.pcb = p.PCB
	c.ptr = p.PTR
	c.input = p.Input
	c.output = p.Output
	c.terminated = false
	c.record = Record{}
	c.err = nil
}

func (c *Comp) step() {
	pAddr, fault := c.translator.Translate(c.ptr, c.IC)
	if fault != vm.FaultNone {
		c.raiseFault(fault, Access{Kind: AccessFetch, VAddr: c.IC})
		return
	}

	c.IR = c.mustRead(pAddr)
	c.IC++
	c.invokeHook(HookPosInstructionFetch, nil)

	inst := Decode(c.IR)

	pending := Interrupts{}
	if !inst.IsHalt() && !inst.HasNumericOperand() {
		pending.PI = PIOperand
	}

	if c.pcb.IsTimeExpired() {
		pending.TI = TITimeLimit
	}

	if pending.Any() {
		c.masterMode(&pending, FaultContext{})
		return
	}

	if inst.IsHalt() {
		c.masterMode(&Interrupts{SI: SIHalt}, FaultContext{})
		return
	}

	pAddr, ok := c.translateOperand(inst)
	if !ok {
		return
	}

	c.execute(inst, pAddr)
}

// translateOperand returns false if the cycle must be abandoned.
func (c *Comp) translateOperand(inst Instruction) (int, bool) {
	pAddr, fault := c.translator.Translate(c.ptr, inst.Operand)
	if fault == vm.FaultNone {
		return pAddr, true
	}

	access := Access{
		Kind:   AccessOperand,
		Opcode: inst.Opcode,
		VAddr:  inst.Operand,
	}

	c.raiseFault(fault, access)
	if c.terminated || !access.IsDemandPageable() {
		return 0, false
	}

	pAddr, fault = c.translator.Translate(c.ptr, inst.Operand)
	if fault != vm.FaultNone {
		log.Panicf("address %d still faults (%s) after page fault handling",
			inst.Operand, fault)
	}

	return pAddr, true
}

func (c *Comp) execute(inst Instruction, pAddr int) {
	switch inst.Opcode {
	case OpLoad:
		c.R = c.mustRead(pAddr)
	case OpStore:
		c.mustWrite(pAddr, c.R)
	case OpCompare:
		c.C = c.R == c.mustRead(pAddr)
	case OpBranch:
		if c.C {
			c.IC = inst.Operand
		}
	case OpGetData:
		if !c.getData(pAddr) {
			return
		}
	case OpPutData:
		if !c.putData(pAddr) {
			return
		}
	default:
		c.masterMode(&Interrupts{PI: PIOperationCode}, FaultContext{})
		return
	}

	c.pcb.ChargeInstruction()
	c.invokeHook(HookPosInstructionRetire, inst)
}

func (c *Comp) getData(pAddr int) bool {
	card, ok := c.input.ReadCard()
	if !ok {
		c.masterMode(&Interrupts{SI: SIOutOfData}, FaultContext{})
		return false
	}

	blockBytes := c.storage.PageSize() * memory.WordSize
	if len(card) > blockBytes {
		card = card[:blockBytes]
	}

	if err := c.storage.WriteBytes(pAddr, []byte(card)); err != nil {
		c.masterMode(&Interrupts{PI: PIOperand}, FaultContext{})
		return false
	}

	c.masterMode(&Interrupts{SI: SIAcknowledge}, FaultContext{})

	return true
}

func (c *Comp) putData(pAddr int) bool {
	c.pcb.ChargeOutputLine()
	if c.pcb.IsLineExceeded() {
		c.masterMode(&Interrupts{SI: SILineLimit}, FaultContext{})
		return false
	}

	words, err := c.storage.ReadBlock(pAddr, c.storage.PageSize())
	if err != nil {
		c.masterMode(&Interrupts{PI: PIOperand}, FaultContext{})
		return false
	}

	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(w.String())
	}

	line := sb.String()
	if err := c.output.WriteLine(line); err != nil {
		c.err = fmt.Errorf("job %d: writing output: %w", c.pcb.JobID, err)
		return false
	}

	c.invokeHook(HookPosOutputLine, line)
	c.masterMode(&Interrupts{SI: SIAcknowledge}, FaultContext{})

	return true
}

func (c *Comp) raiseFault(fault vm.Fault, access Access) {
	pending := Interrupts{PI: PIFromFault(fault)}
	c.masterMode(&pending, FaultContext{
		PTR:    c.ptr,
		PCB:    &c.pcb,
		Access: access,
	})
}

// masterMode hands the pending interrupts to the controller until all of
// them are handled or the job is terminated.
func (c *Comp) masterMode(pending *Interrupts, ctx FaultContext) {
	for pending.Any() && !c.terminated {
		outcome := c.controller.Dispatch(pending, ctx)

		if outcome.Resolution != nil {
			c.invokeHook(HookPosPageFault, *outcome.Resolution)
		}

		if outcome.Terminated {
			c.terminate(outcome.Reason)
		}
	}
}

func (c *Comp) terminate(reason ErrorCode) {
	c.terminated = true
	c.record = Record{
		JobID:  c.pcb.JobID,
		Reason: reason,
		IC:     c.IC,
		IR:     c.IR,
		C:      c.C,
		R:      c.R,
		TTL:    c.pcb.TTL,
		TTC:    c.pcb.TTC,
		TLL:    c.pcb.TLL,
		LLC:    c.pcb.LLC,
	}

	c.invokeHook(HookPosTermination, c.record)
}

func (c *Comp) mustRead(pAddr int) memory.Word {
	w, err := c.storage.Read(pAddr)
	if err != nil {
		log.Panicf("translated address %d cannot be read: %v", pAddr, err)
	}

	return w
}

func (c *Comp) mustWrite(pAddr int, w memory.Word) {
	err := c.storage.Write(pAddr, w)
	if err != nil {
		log.Panicf("translated address %d cannot be written: %v", pAddr, err)
	}
}

func (c *Comp) invokeHook(pos *hooking.HookPos, detail interface{}) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   c.State(),
		Detail: detail,
	})
}
