package batch

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/akita-mos/cpu"
	"github.com/sarchlab/akita-mos/job"
	"github.com/sarchlab/akita-mos/mem/vm"
	"github.com/sarchlab/akita-mos/memory"
	"github.com/sarchlab/akita-mos/sim/hooking"
)

// firstFree always picks the lowest numbered free frame.
type firstFree struct{}

func (firstFree) Intn(int) int { return 0 }

var _ = Describe("Runner", func() {
	var (
		out     *bytes.Buffer
		sink    *job.TextSink
		logHook *logtest.Hook
		builder Builder
	)

	BeforeEach(func() {
		out = new(bytes.Buffer)
		sink = job.NewTextSink(out)

		var logger *logrus.Logger
		logger, logHook = logtest.NewNullLogger()
		logger.SetLevel(logrus.InfoLevel)

		builder = MakeBuilder().
			WithFrameSource(firstFree{}).
			WithSink(sink).
			WithLogger(logger)
	})

	runDeck := func(r *Runner, deck string) []Result {
		results, err := r.RunAll(job.NewLoader(strings.NewReader(deck)))
		Expect(err).NotTo(HaveOccurred())
		Expect(sink.Flush()).To(Succeed())

		return results
	}

	It("should run every job of a deck", func() {
		deck := "$AMJ000100050005\nGD10PD10H\n$DTA\nTEST\n$END0001\n" +
			"$AMJ000200050005\nXX00H\n$DTA\n$END0002\n"

		results := runDeck(builder.Build("Batch"), deck)

		Expect(results).To(HaveLen(2))
		Expect(results[0].Record.Reason).To(Equal(cpu.NoError))
		Expect(results[1].Record.Reason).To(Equal(cpu.OperationCodeError))
		Expect(out.String()).To(Equal(
			"TEST\n\n\nTerminated Normally. No Error\n" +
				"\n\n4 - Operation Code Error\n" +
				"IC=1, IR=XX00, C=0, R=, TTL=5, TTC=0, TLL=5, LLC=0\n"))
	})

	It("should map program cards to consecutive pages", func() {
		r := builder.Build("Batch")

		record, err := r.RunJob(&job.Job{
			ID: 1, TTL: 5, TLL: 5,
			Program: []string{"H", "H"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(record.Reason).To(Equal(cpu.NoError))

		pt := vm.NewPageTable(r.Storage(), 0)
		Expect(pt.Lookup(0)).To(Equal(vm.MappedTo(1)))
		Expect(pt.Lookup(1)).To(Equal(vm.MappedTo(2)))
		Expect(pt.Lookup(2)).To(Equal(vm.Unmapped))

		w, err := r.Storage().Read(20)
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(memory.MakeWord("H")))
	})

	It("should not leak memory between jobs", func() {
		r := builder.Build("Batch")

		_, err := r.RunJob(&job.Job{
			ID: 1, TTL: 5, TLL: 5,
			Program: []string{"GD50H"},
			Data:    []string{"LEFTOVER"},
		})
		Expect(err).NotTo(HaveOccurred())

		record, err := r.RunJob(&job.Job{
			ID: 2, TTL: 5, TLL: 5,
			Program: []string{"LR50H"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(record.Reason).To(Equal(cpu.InvalidPageFault))
	})

	It("should terminate with memory exhausted if frames run out", func() {
		r := builder.WithMemory(30, 10).Build("Batch")

		results := runDeck(r,
			"$AMJ000100050005\nH\nH\nH\n$DTA\n$END0001\n"+
				"$AMJ000200050005\nH\n$DTA\n$END0002\n")

		Expect(results).To(HaveLen(2))
		Expect(results[0].Err).NotTo(HaveOccurred())
		Expect(results[0].Record.Reason).To(Equal(cpu.MemoryExhausted))
		Expect(results[1].Record.Reason).To(Equal(cpu.NoError))
		Expect(out.String()).To(HavePrefix(
			"\n\n7 - Memory Exhausted\n" +
				"IC=0, IR=, C=0, R=, TTL=5, TTC=0, TLL=5, LLC=0\n"))
	})

	It("should skip a program that does not fit and continue", func() {
		r := builder.Build("Batch")

		var deck strings.Builder
		deck.WriteString("$AMJ000100050005\n")
		for i := 0; i < 11; i++ {
			deck.WriteString("H\n")
		}
		deck.WriteString("$DTA\n$END0001\n$AMJ000200050005\nH\n$DTA\n$END0002\n")

		results := runDeck(r, deck.String())

		Expect(results).To(HaveLen(2))
		Expect(results[0].Err).To(MatchError(ErrProgramTooLarge))
		Expect(results[1].Err).NotTo(HaveOccurred())
		Expect(results[1].Record.Reason).To(Equal(cpu.NoError))
		Expect(out.String()).To(Equal("\n\nTerminated Normally. No Error\n"))
	})

	It("should stop at a malformed deck", func() {
		r := builder.Build("Batch")

		results, err := r.RunAll(job.NewLoader(strings.NewReader(
			"$AMJ000100050005\nH\n$DTA\n$END0001\n$AMJ00\n")))

		Expect(err).To(MatchError(job.ErrMalformedCard))
		Expect(results).To(HaveLen(1))
	})

	It("should log job notices", func() {
		r := builder.Build("Batch")

		_, err := r.RunJob(&job.Job{ID: 7, TTL: 5, TLL: 5, Program: []string{"H"}})
		Expect(err).NotTo(HaveOccurred())

		Expect(logHook.Entries).To(HaveLen(2))
		Expect(logHook.Entries[0].Message).To(Equal("job loaded"))
		Expect(logHook.Entries[0].Data).To(HaveKeyWithValue("job", 7))
		Expect(logHook.Entries[0].Data).To(HaveKeyWithValue("ptr", 0))
		Expect(logHook.LastEntry().Message).To(Equal("job terminated"))
	})

	It("should invoke hooks for each job", func() {
		var reasons []cpu.ErrorCode
		r := builder.WithHooks(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == cpu.HookPosTermination {
				reasons = append(reasons, ctx.Detail.(cpu.Record).Reason)
			}
		})).Build("Batch")

		runDeck(r, "$AMJ000100050005\nH\n$DTA\n$END0001\n"+
			"$AMJ000200050005\nGD10\n$DTA\n$END0002\n")

		Expect(reasons).To(Equal([]cpu.ErrorCode{cpu.NoError, cpu.OutOfData}))
	})

	Context("when the sink fails", func() {
		var mockCtrl *gomock.Controller

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should stop the batch", func() {
			failing := NewMockSink(mockCtrl)
			failing.EXPECT().
				WriteTermination(gomock.Any()).
				Return(errors.New("paper jam"))

			r := builder.WithSink(failing).Build("Batch")

			results, err := r.RunAll(job.NewLoader(strings.NewReader(
				"$AMJ000100050005\nH\n$DTA\n$END0001\n" +
					"$AMJ000200050005\nH\n$DTA\n$END0002\n")))

			Expect(err).To(MatchError(ContainSubstring("paper jam")))
			Expect(results).To(HaveLen(1))
		})
	})
})
