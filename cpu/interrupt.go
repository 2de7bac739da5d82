package cpu

import (
	"log"

	"github.com/sarchlab/akita-mos/mem/vm"
)

// ProgramInterrupt is raised by faults in the instruction being executed.
type ProgramInterrupt int

// Program interrupt values.
const (
	PINone ProgramInterrupt = iota
	PIOperationCode
	PIOperand
	PIPageFault
)

// TimerInterrupt is raised when the job runs out of time.
type TimerInterrupt int

// Timer interrupt values. The value 1 is unused.
const (
	TINone      TimerInterrupt = 0
	TITimeLimit TimerInterrupt = 2
)

// SystemInterrupt is raised by service requests of the job.
type SystemInterrupt int

// System interrupt values.
const (
	SINone SystemInterrupt = iota
	// SIAcknowledge reports a completed read or write.
	SIAcknowledge
	// SILineLimit reports that the line quota has been crossed.
	SILineLimit
	// SIHalt reports a halt instruction.
	SIHalt
	// SIOutOfData reports a read with no data card left.
	SIOutOfData
)

// Interrupts holds the pending value of each interrupt line. The zero value
// has nothing pending. At most one value per line can be pending.
type Interrupts struct {
	PI ProgramInterrupt
	TI TimerInterrupt
	SI SystemInterrupt
}

// Any tells if some line is pending.
func (i Interrupts) Any() bool {
	return i.PI != PINone || i.TI != TINone || i.SI != SINone
}

// PIFromFault converts a translation fault into a program interrupt.
func PIFromFault(f vm.Fault) ProgramInterrupt {
	switch f {
	case vm.FaultNone:
		return PINone
	case vm.FaultOperand:
		return PIOperand
	case vm.FaultPage:
		return PIPageFault
	default:
		log.Panicf("unknown fault %d", f)
	}

	return PINone
}

// An Outcome is the decision the interrupt controller made.
type Outcome struct {
	Terminated bool
	Reason     ErrorCode

	// Resolution is set if a page fault was resolved.
	Resolution *PageFaultResolution
}

func terminateWith(reason ErrorCode) Outcome {
	return Outcome{Terminated: true, Reason: reason}
}

// A PageFaultResolver resolves valid page faults.
type PageFaultResolver interface {
	Resolve(ctx FaultContext) Outcome
}

// Controller is the master mode of the machine. It turns pending interrupts
// into terminations, fault resolutions, or resumption.
type Controller struct {
	resolver PageFaultResolver
}

// NewController creates a Controller that uses the resolver for page faults.
func NewController(resolver PageFaultResolver) *Controller {
	return &Controller{resolver: resolver}
}

// Dispatch acts on the pending line with the highest priority and clears it.
// The timer line dominates the system line, which dominates the program line.
// Lower priority lines stay pending.
func (c *Controller) Dispatch(pending *Interrupts, ctx FaultContext) Outcome {
	switch {
	case pending.TI != TINone:
		return c.dispatchTimer(pending)
	case pending.SI != SINone:
		return c.dispatchSystem(pending)
	case pending.PI != PINone:
		return c.dispatchProgram(pending, ctx)
	}

	return Outcome{}
}

func (c *Controller) dispatchTimer(pending *Interrupts) Outcome {
	ti := pending.TI
	pending.TI = TINone

	if ti != TITimeLimit {
		log.Panicf("unknown timer interrupt %d", ti)
	}

	return terminateWith(TimeLimitExceeded)
}

func (c *Controller) dispatchSystem(pending *Interrupts) Outcome {
	si := pending.SI
	pending.SI = SINone

	switch si {
	case SIAcknowledge:
		return Outcome{}
	case SILineLimit:
		return terminateWith(LineLimitExceeded)
	case SIHalt:
		return terminateWith(NoError)
	case SIOutOfData:
		return terminateWith(OutOfData)
	default:
		log.Panicf("unknown system interrupt %d", si)
	}

	return Outcome{}
}

func (c *Controller) dispatchProgram(
	pending *Interrupts,
	ctx FaultContext,
) Outcome {
	pi := pending.PI
	pending.PI = PINone

	switch pi {
	case PIOperationCode:
		return terminateWith(OperationCodeError)
	case PIOperand:
		return terminateWith(OperandError)
	case PIPageFault:
		return c.resolver.Resolve(ctx)
	default:
		log.Panicf("unknown program interrupt %d", pi)
	}

	return Outcome{}
}
