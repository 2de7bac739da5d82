package cpu

import (
	"errors"
	"log"

	"github.com/sarchlab/akita-mos/mem/vm"
	"github.com/sarchlab/akita-mos/mem/vm/mmu"
	"github.com/sarchlab/akita-mos/memory"
)

// AccessKind tells why the processor is translating an address.
type AccessKind int

// Kinds of accesses.
const (
	AccessFetch AccessKind = iota
	AccessOperand
)

// An Access describes a memory access that may fault.
type Access struct {
	Kind   AccessKind
	Opcode Opcode
	VAddr  int
}

// IsDemandPageable tells if a page fault on the access can be resolved.
// Instruction fetches never are.
func (a Access) IsDemandPageable() bool {
	return a.Kind == AccessOperand && a.Opcode.IsDemandPageable()
}

// FaultContext carries the state of the faulting job.
type FaultContext struct {
	PTR    int
	PCB    *PCB
	Access Access
}

// PageFaultResolution records which frame backs a faulted page.
type PageFaultResolution struct {
	VAddr int
	Page  int
	Frame int
}

// A FrameAllocator hands out free physical frames.
type FrameAllocator interface {
	Allocate() (int, error)
}

// FaultHandler performs demand paging.
type FaultHandler struct {
	storage   *memory.Storage
	allocator FrameAllocator
}

// NewFaultHandler creates a fault handler that installs frames from the
// allocator into page tables in the storage.
func NewFaultHandler(
	storage *memory.Storage,
	allocator FrameAllocator,
) *FaultHandler {
	return &FaultHandler{
		storage:   storage,
		allocator: allocator,
	}
}

// Resolve maps the faulting page to a new frame if the access is eligible.
// A resolved fault costs one unit of time.
func (h *FaultHandler) Resolve(ctx FaultContext) Outcome {
	if !ctx.Access.IsDemandPageable() {
		return terminateWith(InvalidPageFault)
	}

	frame, err := h.allocator.Allocate()
	if errors.Is(err, mmu.ErrNoFreeFrame) {
		return terminateWith(MemoryExhausted)
	}

	if err != nil {
		log.Panicf("cannot allocate frame: %v", err)
	}

	pt := vm.NewPageTable(h.storage, ctx.PTR)
	page := ctx.Access.VAddr / h.storage.PageSize()

	err = pt.Install(page, frame)
	if err != nil {
		log.Panicf("cannot install frame %d for page %d: %v",
			frame, page, err)
	}

	ctx.PCB.ChargeInstruction()

	return Outcome{
		Resolution: &PageFaultResolution{
			VAddr: ctx.Access.VAddr,
			Page:  page,
			Frame: frame,
		},
	}
}
