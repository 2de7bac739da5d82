package mmu

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/akita-mos/memory"
)

var _ = Describe("FrameAllocator", func() {
	var (
		mockCtrl  *gomock.Controller
		source    *MockFrameSource
		storage   *memory.Storage
		allocator *FrameAllocator
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		source = NewMockFrameSource(mockCtrl)
		storage = memory.NewStorage(
			memory.DefaultCapacity, memory.DefaultPageSize)
		allocator = MakeBuilder().
			WithStorage(storage).
			WithFrameSource(source).
			Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should pick among all frames when memory is empty", func() {
		source.EXPECT().Intn(30).Return(12)

		frame, err := allocator.Allocate()

		Expect(err).NotTo(HaveOccurred())
		Expect(frame).To(Equal(12))
		Expect(allocator.IsReserved(12)).To(BeTrue())
	})

	It("should skip reserved frames", func() {
		source.EXPECT().Intn(30).Return(0)
		source.EXPECT().Intn(29).Return(0)

		first, _ := allocator.Allocate()
		second, _ := allocator.Allocate()

		Expect(first).To(Equal(0))
		Expect(second).To(Equal(1))
	})

	It("should skip frames whose first word is in use", func() {
		Expect(storage.Write(0, memory.MakeWord("X"))).To(Succeed())
		source.EXPECT().Intn(29).Return(0)

		frame, err := allocator.Allocate()

		Expect(err).NotTo(HaveOccurred())
		Expect(frame).To(Equal(1))
	})

	It("should fail when no frame is left", func() {
		source.EXPECT().Intn(gomock.Any()).Return(0).Times(30)
		for i := 0; i < 30; i++ {
			_, err := allocator.Allocate()
			Expect(err).NotTo(HaveOccurred())
		}

		_, err := allocator.Allocate()

		Expect(err).To(MatchError(ErrNoFreeFrame))
		Expect(allocator.NumFree()).To(Equal(0))
	})

	It("should release reservations on reset", func() {
		source.EXPECT().Intn(30).Return(3)
		_, _ = allocator.Allocate()

		allocator.Reset()

		Expect(allocator.IsReserved(3)).To(BeFalse())
		Expect(allocator.NumFree()).To(Equal(30))
	})

	It("should panic if the source is out of range", func() {
		source.EXPECT().Intn(30).Return(30)

		Expect(func() { _, _ = allocator.Allocate() }).To(Panic())
	})

	It("should give distinct frames with the default source", func() {
		allocator = MakeBuilder().WithStorage(storage).WithSeed(7).Build()

		seen := map[int]bool{}
		for i := 0; i < 30; i++ {
			frame, err := allocator.Allocate()
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).NotTo(HaveKey(frame))
			seen[frame] = true
		}
	})
})
