package cpu

import "github.com/sarchlab/akita-mos/sim/hooking"

// Hook positions of the processor. The Item of the hook context is always
// the State of the processor at that point.
var (
	// HookPosJobStart is invoked before the first instruction of a job.
	HookPosJobStart = &hooking.HookPos{Name: "JobStart"}

	// HookPosInstructionFetch is invoked after an instruction is fetched.
	HookPosInstructionFetch = &hooking.HookPos{Name: "InstructionFetch"}

	// HookPosInstructionRetire is invoked after an instruction completes and
	// is charged. The Detail is the Instruction.
	HookPosInstructionRetire = &hooking.HookPos{Name: "InstructionRetire"}

	// HookPosPageFault is invoked after a page fault is resolved. The Detail
	// is the PageFaultResolution.
	HookPosPageFault = &hooking.HookPos{Name: "PageFault"}

	// HookPosOutputLine is invoked after a line is printed. The Detail is
	// the line.
	HookPosOutputLine = &hooking.HookPos{Name: "OutputLine"}

	// HookPosTermination is invoked when the job terminates. The Detail is
	// the Record.
	HookPosTermination = &hooking.HookPos{Name: "Termination"}
)
