package job

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/akita-mos/cpu"
)

// A Sink receives the printed lines and the termination record of each job.
type Sink interface {
	cpu.OutputSink
	WriteTermination(record cpu.Record) error
}

// TextSink writes the line printer format.
type TextSink struct {
	w *bufio.Writer
}

// NewTextSink creates a sink that writes to w. Call Flush when done.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: bufio.NewWriter(w)}
}

// WriteLine prints a line of program output.
func (s *TextSink) WriteLine(line string) error {
	_, err := fmt.Fprintln(s.w, line)
	return err
}

// WriteTermination prints two blank lines and the termination record. The
// register dump is omitted for normal terminations.
func (s *TextSink) WriteTermination(r cpu.Record) error {
	if _, err := fmt.Fprint(s.w, "\n\n"); err != nil {
		return err
	}

	if r.Reason.IsNormal() {
		_, err := fmt.Fprintf(s.w, "Terminated Normally. %s\n",
			r.Reason.Message())
		return err
	}

	_, err := fmt.Fprintf(s.w,
		"%d - %s\n"+
			"IC=%d, IR=%s, C=%d, R=%s, TTL=%d, TTC=%d, TLL=%d, LLC=%d\n",
		int(r.Reason), r.Reason.Message(),
		r.IC, r.IR, boolToInt(r.C), r.R, r.TTL, r.TTC, r.TLL, r.LLC)

	return err
}

// Flush writes buffered output to the underlying writer.
func (s *TextSink) Flush() error {
	return s.w.Flush()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
