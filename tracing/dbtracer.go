package tracing

import (
	"sync"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/akita-mos/cpu"
	"github.com/sarchlab/akita-mos/datarecording"
	"github.com/sarchlab/akita-mos/sim/hooking"
	"github.com/sarchlab/akita-mos/sim/id"
)

// Table names used by the DBTracer.
const (
	EventTableName = "mos_events"
	JobTableName   = "mos_jobs"
)

type eventTableEntry struct {
	ID     string
	Seq    int
	JobID  int
	Kind   string
	IC     int
	IR     string
	VAddr  int
	Frame  int
	Detail string
}

type jobTableEntry struct {
	ID      string
	JobID   int
	Code    int
	Message string
	IC      int
	IR      string
	C       bool
	R       string
	TTL     int
	TTC     int
	TLL     int
	LLC     int
}

// DBTracer stores processor events into a data recorder. Every hook position
// except instruction fetch becomes a row of the event table, and each
// termination also becomes a row of the job table.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder
	idGen   id.IDGenerator
	seq     int
}

// NewDBTracer creates a new DBTracer. It creates its tables in the recorder
// and flushes it when the program exits.
func NewDBTracer(
	dataRecorder datarecording.DataRecorder,
	idGen id.IDGenerator,
) *DBTracer {
	dataRecorder.CreateTable(EventTableName, eventTableEntry{})
	dataRecorder.CreateTable(JobTableName, jobTableEntry{})

	t := &DBTracer{
		backend: dataRecorder,
		idGen:   idGen,
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// Func records the event.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos == cpu.HookPosInstructionFetch {
		return
	}

	state, ok := ctx.Item.(cpu.State)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	entry := eventTableEntry{
		ID:    t.idGen.Generate(),
		Seq:   t.seq,
		JobID: state.PCB.JobID,
		Kind:  ctx.Pos.Name,
		IC:    state.IC,
		IR:    state.IR.String(),
		VAddr: -1,
		Frame: -1,
	}

	switch ctx.Pos {
	case cpu.HookPosInstructionRetire:
		inst := ctx.Detail.(cpu.Instruction)
		entry.VAddr = inst.Operand
		entry.Detail = string(inst.Opcode)
	case cpu.HookPosPageFault:
		res := ctx.Detail.(cpu.PageFaultResolution)
		entry.VAddr = res.VAddr
		entry.Frame = res.Frame
	case cpu.HookPosOutputLine:
		entry.Detail = ctx.Detail.(string)
	case cpu.HookPosTermination:
		record := ctx.Detail.(cpu.Record)
		entry.Detail = record.Reason.String()
		t.writeJob(record)
	}

	t.backend.InsertData(EventTableName, entry)
}

func (t *DBTracer) writeJob(r cpu.Record) {
	t.backend.InsertData(JobTableName, jobTableEntry{
		ID:      t.idGen.Generate(),
		JobID:   r.JobID,
		Code:    int(r.Reason),
		Message: r.Reason.Message(),
		IC:      r.IC,
		IR:      r.IR.String(),
		C:       r.C,
		R:       r.R.String(),
		TTL:     r.TTL,
		TTC:     r.TTC,
		TLL:     r.TLL,
		LLC:     r.LLC,
	})
}

// Terminate flushes the recorder.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.backend.Flush()
}
