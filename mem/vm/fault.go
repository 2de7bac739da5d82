package vm

// A Fault classifies the outcome of an address translation.
type Fault int

// Translation outcomes.
const (
	// FaultNone means the translation produced a physical address.
	FaultNone Fault = iota

	// FaultOperand means the virtual address is outside the address space
	// or its page table entry is malformed.
	FaultOperand

	// FaultPage means the page table entry is unmapped. The fault can be
	// resolved by demand paging.
	FaultPage
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultOperand:
		return "operand"
	case FaultPage:
		return "page"
	default:
		return "unknown"
	}
}
