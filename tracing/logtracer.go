package tracing

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/akita-mos/cpu"
	"github.com/sarchlab/akita-mos/sim/hooking"
)

// LogTracer writes processor events as structured log entries. Job start,
// page faults, and terminations are logged at info level. Instructions and
// output lines are logged at debug level.
type LogTracer struct {
	logger logrus.FieldLogger
}

// NewLogTracer creates a LogTracer that writes to logger.
func NewLogTracer(logger logrus.FieldLogger) *LogTracer {
	return &LogTracer{logger: logger}
}

// Func logs the event at the hook position.
func (t *LogTracer) Func(ctx hooking.HookCtx) {
	state, ok := ctx.Item.(cpu.State)
	if !ok {
		return
	}

	entry := t.logger.WithFields(logrus.Fields{
		"job": state.PCB.JobID,
		"ic":  state.IC,
		"ir":  state.IR.String(),
	})

	switch ctx.Pos {
	case cpu.HookPosJobStart:
		entry.WithFields(logrus.Fields{
			"ptr": state.PTR,
			"ttl": state.PCB.TTL,
			"tll": state.PCB.TLL,
		}).Info("job started")
	case cpu.HookPosInstructionFetch:
		entry.Debug("CPU Step")
	case cpu.HookPosInstructionRetire:
		inst := ctx.Detail.(cpu.Instruction)
		entry.WithFields(logrus.Fields{
			"op": string(inst.Opcode),
			"va": inst.Operand,
		}).Debug("instruction retired")
	case cpu.HookPosPageFault:
		res := ctx.Detail.(cpu.PageFaultResolution)
		entry.WithFields(logrus.Fields{
			"va":    res.VAddr,
			"page":  res.Page,
			"frame": res.Frame,
		}).Info("page fault resolved")
	case cpu.HookPosOutputLine:
		entry.WithField("line", ctx.Detail.(string)).Debug("line printed")
	case cpu.HookPosTermination:
		record := ctx.Detail.(cpu.Record)
		entry.WithFields(logrus.Fields{
			"reason": record.Reason.String(),
			"code":   int(record.Reason),
			"ttc":    record.TTC,
			"llc":    record.LLC,
		}).Info("job terminated")
	}
}
