package cpu

import "github.com/sarchlab/akita-mos/memory"

// An Opcode is the two-character operation field of an instruction.
type Opcode string

// The recognized operation codes.
const (
	OpLoad    Opcode = "LR"
	OpStore   Opcode = "SR"
	OpCompare Opcode = "CR"
	OpBranch  Opcode = "BT"
	OpGetData Opcode = "GD"
	OpPutData Opcode = "PD"
	OpHalt    Opcode = "H"
)

const haltPrefix = 'H'

// IsDemandPageable tells if a page fault on the operand of the operation can
// be resolved by allocating a frame. Only the operations that write user data
// qualify.
func (op Opcode) IsDemandPageable() bool {
	return op == OpGetData || op == OpStore
}

// An Instruction is a decoded instruction word.
type Instruction struct {
	Opcode Opcode

	// Operand is the virtual address in the last two characters. It is only
	// meaningful when HasNumericOperand returns true.
	Operand int

	numeric bool
}

// Decode splits an instruction word into its fields. Any word whose first
// character is H is a halt, regardless of the remaining characters.
func Decode(w memory.Word) Instruction {
	if w[0] == haltPrefix {
		return Instruction{Opcode: OpHalt}
	}

	inst := Instruction{
		Opcode: Opcode(w[0:2]),
	}

	if isDigit(w[2]) && isDigit(w[3]) {
		inst.Operand = int(w[2]-'0')*10 + int(w[3]-'0')
		inst.numeric = true
	}

	return inst
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// IsHalt tells if the instruction stops the job.
func (i Instruction) IsHalt() bool {
	return i.Opcode == OpHalt
}

// HasNumericOperand tells if both operand characters are digits.
func (i Instruction) HasNumericOperand() bool {
	return i.numeric
}
