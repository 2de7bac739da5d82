package cpu

import "github.com/sarchlab/akita-mos/memory"

// An InputReader serves the data cards of a job.
type InputReader interface {
	// ReadCard returns the next data card. The bool is false once the data
	// section of the job is exhausted.
	ReadCard() (string, bool)
}

// An OutputSink receives the lines printed by a job.
type OutputSink interface {
	WriteLine(line string) error
}

// A Process is a job that has been placed in memory and is ready to run.
type Process struct {
	PCB PCB

	// PTR is the page table register, the address of the first entry of
	// the page table of the job.
	PTR int

	// IC is the virtual address of the first instruction.
	IC int

	Input  InputReader
	Output OutputSink
}

// A Record summarizes how a job terminated.
type Record struct {
	JobID  int
	Reason ErrorCode

	IC int
	IR memory.Word
	C  bool
	R  memory.Word

	TTL int
	TTC int
	TLL int
	LLC int
}

// State is a snapshot of the processor.
type State struct {
	Registers
	PCB        PCB
	PTR        int
	Terminated bool
}
