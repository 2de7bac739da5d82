package addresstranslator

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita-mos/mem/vm"
	"github.com/sarchlab/akita-mos/memory"
)

var _ = Describe("Translator", func() {
	var (
		storage    *memory.Storage
		pt         *vm.PageTable
		translator *Translator
	)

	const ptr = 120

	BeforeEach(func() {
		storage = memory.NewStorage(
			memory.DefaultCapacity, memory.DefaultPageSize)
		pt = vm.NewPageTable(storage, ptr)
		pt.Clear()
		translator = New(storage)
	})

	It("should translate every address of a mapped page", func() {
		Expect(pt.Install(0, 5)).To(Succeed())
		Expect(pt.Install(4, 22)).To(Succeed())

		for v := 0; v < 10; v++ {
			pa, fault := translator.Translate(ptr, v)
			Expect(fault).To(Equal(vm.FaultNone))
			Expect(pa).To(Equal(50 + v))
		}

		for v := 40; v < 50; v++ {
			pa, fault := translator.Translate(ptr, v)
			Expect(fault).To(Equal(vm.FaultNone))
			Expect(pa).To(Equal(220 + v%10))
		}
	})

	It("should report a page fault for unmapped pages", func() {
		before := make([]memory.Word, storage.Capacity())
		for i := range before {
			before[i], _ = storage.Read(i)
		}

		for v := 0; v < vm.VirtualAddressSpace; v++ {
			_, fault := translator.Translate(ptr, v)
			Expect(fault).To(Equal(vm.FaultPage))
		}

		for i := range before {
			w, _ := storage.Read(i)
			Expect(w).To(Equal(before[i]))
		}
	})

	DescribeTable("should report an operand fault outside the address space",
		func(v int) {
			Expect(pt.Install(0, 5)).To(Succeed())

			_, fault := translator.Translate(ptr, v)
			Expect(fault).To(Equal(vm.FaultOperand))
		},
		Entry("negative", -1),
		Entry("upper bound", 100),
		Entry("far away", 250),
	)

	It("should report an operand fault for malformed entries", func() {
		Expect(storage.Write(ptr+3, memory.MakeWord("AB"))).To(Succeed())

		_, fault := translator.Translate(ptr, 35)
		Expect(fault).To(Equal(vm.FaultOperand))
	})

	It("should report an operand fault for frames beyond the storage", func() {
		Expect(storage.Write(ptr+3, memory.MakeWord("99"))).To(Succeed())

		_, fault := translator.Translate(ptr, 35)
		Expect(fault).To(Equal(vm.FaultOperand))
	})

	It("should tell the page of an address", func() {
		Expect(translator.PageOf(47)).To(Equal(4))
	})
})
