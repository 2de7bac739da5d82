// Package batch runs the jobs of a card deck one after another on a single
// machine.
package batch

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/akita-mos/cpu"
	"github.com/sarchlab/akita-mos/job"
	"github.com/sarchlab/akita-mos/mem/vm"
	"github.com/sarchlab/akita-mos/mem/vm/mmu"
	"github.com/sarchlab/akita-mos/memory"
)

// ErrProgramTooLarge is returned when a job has more program cards than its
// page table has entries.
var ErrProgramTooLarge = errors.New("program does not fit in the address space")

// A JobSource provides the jobs of a batch. It returns io.EOF when no job is
// left.
type JobSource interface {
	Next() (*job.Job, error)
}

// Result is the outcome of one job. Err is set only if the job could not be
// loaded or its output could not be written.
type Result struct {
	Job    *job.Job
	Record cpu.Record
	Err    error
}

// Runner loads jobs into memory and runs them on the processor.
type Runner struct {
	storage   *memory.Storage
	allocator *mmu.FrameAllocator
	cpu       *cpu.Comp
	sink      job.Sink
	logger    logrus.FieldLogger
}

// CPU returns the processor that runs the jobs.
func (r *Runner) CPU() *cpu.Comp {
	return r.cpu
}

// Storage returns the main memory of the machine.
func (r *Runner) Storage() *memory.Storage {
	return r.storage
}

// RunAll runs every job of the source. A job that fails to load does not stop
// the batch. Malformed decks and output errors do.
func (r *Runner) RunAll(source JobSource) ([]Result, error) {
	var results []Result

	for {
		j, err := source.Next()
		if errors.Is(err, io.EOF) {
			return results, nil
		}

		if err != nil {
			return results, fmt.Errorf("reading job: %w", err)
		}

		record, err := r.RunJob(j)
		results = append(results, Result{Job: j, Record: record, Err: err})

		if err != nil && !errors.Is(err, ErrProgramTooLarge) {
			return results, err
		}
	}
}

// RunJob loads a single job, runs it to termination, and writes its
// termination record to the sink.
func (r *Runner) RunJob(j *job.Job) (cpu.Record, error) {
	logger := r.logger.WithField("job", j.ID)

	ptr, err := r.load(j)
	if errors.Is(err, mmu.ErrNoFreeFrame) {
		logger.Warn("memory exhausted while loading")

		record := cpu.Record{
			JobID:  j.ID,
			Reason: cpu.MemoryExhausted,
			TTL:    j.TTL,
			TLL:    j.TLL,
		}

		return record, r.sink.WriteTermination(record)
	}

	if err != nil {
		logger.WithError(err).Error("job skipped")
		return cpu.Record{JobID: j.ID}, fmt.Errorf("job %d: %w", j.ID, err)
	}

	logger.WithFields(logrus.Fields{
		"ptr":   ptr,
		"pages": len(j.Program),
	}).Info("job loaded")

	record, err := r.cpu.Run(cpu.Process{
		PCB:    cpu.NewPCB(j.ID, j.TTL, j.TLL),
		PTR:    ptr,
		IC:     0,
		Input:  j.Input(),
		Output: r.sink,
	})
	if err != nil {
		return record, err
	}

	logger.WithFields(logrus.Fields{
		"reason": record.Reason.String(),
		"ttc":    record.TTC,
		"llc":    record.LLC,
	}).Info("job terminated")

	if err := r.sink.WriteTermination(record); err != nil {
		return record, fmt.Errorf("job %d: writing termination: %w", j.ID, err)
	}

	return record, nil
}

// load places the page table and the program of the job in a cleared memory
// and returns the page table register.
func (r *Runner) load(j *job.Job) (int, error) {
	r.storage.Reset()
	r.allocator.Reset()

	ptFrame, err := r.allocator.Allocate()
	if err != nil {
		return 0, err
	}

	ptr := r.storage.FrameBase(ptFrame)
	pt := vm.NewPageTable(r.storage, ptr)
	pt.Clear()

	if len(j.Program) > pt.NumEntries() {
		return 0, fmt.Errorf("%w: %d cards, %d pages",
			ErrProgramTooLarge, len(j.Program), pt.NumEntries())
	}

	cardBytes := r.storage.PageSize() * memory.WordSize

	for _, card := range j.Program {
		page, _ := pt.NextUnmapped()

		frame, err := r.allocator.Allocate()
		if err != nil {
			return 0, err
		}

		if err := pt.Install(page, frame); err != nil {
			return 0, err
		}

		if len(card) > cardBytes {
			card = card[:cardBytes]
		}

		err = r.storage.WriteBytes(r.storage.FrameBase(frame), []byte(card))
		if err != nil {
			return 0, err
		}
	}

	return ptr, nil
}
