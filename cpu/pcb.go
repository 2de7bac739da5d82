package cpu

// PCB is the process control block of a job. It carries the quotas of the
// job and the counters charged against them.
type PCB struct {
	JobID int

	// TTL is the total time limit, in executed instructions.
	TTL int
	// TTC is the total time counter.
	TTC int

	// TLL is the total line limit.
	TLL int
	// LLC is the line limit counter.
	LLC int
}

// NewPCB creates a PCB with zeroed counters.
func NewPCB(jobID, ttl, tll int) PCB {
	return PCB{
		JobID: jobID,
		TTL:   ttl,
		TLL:   tll,
	}
}

// ChargeInstruction accounts one unit of time.
func (p *PCB) ChargeInstruction() {
	p.TTC++
}

// ChargeOutputLine accounts one line of output. The counter moves before the
// line is written, so the line that crosses the limit is never emitted.
func (p *PCB) ChargeOutputLine() {
	p.LLC++
}

// IsTimeExpired tells if the job has used up its time.
func (p *PCB) IsTimeExpired() bool {
	return p.TTC >= p.TTL
}

// IsLineExceeded tells if the job has printed more lines than allowed.
func (p *PCB) IsLineExceeded() bool {
	return p.LLC > p.TLL
}
