package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHook struct {
	positions []string
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos.Name)
}

var _ = Describe("HookableBase", func() {
	var (
		base *HookableBase
		pos  = &HookPos{Name: "Step"}
	)

	BeforeEach(func() {
		base = &HookableBase{}
	})

	It("should invoke hooks in registration order", func() {
		order := []int{}
		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, 1) }))
		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, 2) }))

		base.InvokeHook(HookCtx{Pos: pos})

		Expect(order).To(Equal([]int{1, 2}))
		Expect(base.NumHooks()).To(Equal(2))
	})

	It("should pass the context to the hook", func() {
		hook := &recordingHook{}
		base.AcceptHook(hook)

		base.InvokeHook(HookCtx{Pos: pos, Item: 42})

		Expect(hook.positions).To(Equal([]string{"Step"}))
		Expect(base.Hooks()).To(ConsistOf(hook))
	})

	It("should reject the same hook twice", func() {
		hook := &recordingHook{}
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
	})
})
