package cpu

import "github.com/sarchlab/akita-mos/memory"

// Registers is the register and flag file of the processor.
type Registers struct {
	// IR holds the last fetched instruction.
	IR memory.Word

	// R is the general purpose register.
	R memory.Word

	// C is the comparison flag, set by CR and read by BT.
	C bool

	// IC is the virtual address of the next instruction.
	IC int
}

// Reset clears all registers.
func (r *Registers) Reset() {
	*r = Registers{}
}
