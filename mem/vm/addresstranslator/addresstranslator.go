// Package addresstranslator maps the virtual addresses of a job to physical
// addresses through the page table of the job.
package addresstranslator

import (
	"github.com/sarchlab/akita-mos/mem/vm"
	"github.com/sarchlab/akita-mos/memory"
)

// Translator walks the page table that the page table register points to.
// It never writes the storage. Every failed translation is reported as a
// fault classification and it is up to the caller to decide what to do.
type Translator struct {
	storage *memory.Storage
}

// New creates a Translator that reads page tables from the storage.
func New(storage *memory.Storage) *Translator {
	return &Translator{storage: storage}
}

// Translate converts a virtual address of the job whose page table starts at
// ptr. The physical address is only meaningful when the fault is FaultNone.
func (t *Translator) Translate(ptr, vAddr int) (int, vm.Fault) {
	if vAddr < 0 || vAddr >= vm.VirtualAddressSpace {
		return 0, vm.FaultOperand
	}

	pageSize := t.storage.PageSize()
	pt := vm.NewPageTable(t.storage, ptr)

	pte, err := pt.Lookup(vAddr / pageSize)
	if err != nil {
		return 0, vm.FaultOperand
	}

	if !pte.Mapped {
		return 0, vm.FaultPage
	}

	return pte.Frame*pageSize + vAddr%pageSize, vm.FaultNone
}

// PageOf returns the virtual page that contains an address.
func (t *Translator) PageOf(vAddr int) int {
	return vAddr / t.storage.PageSize()
}
