// Package tracing observes the processor through its hooks and turns the
// events into logs, counters, and database records.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/akita-mos/sim/hooking"
	"github.com/sarchlab/akita-mos/sim/naming"
)

// NamedHookable is a named component that accepts hooks.
type NamedHookable interface {
	naming.Named
	hooking.Hookable
}

// CollectTrace lets the tracer collect events from a domain. A tracer can
// only be attached to a domain once.
func CollectTrace(domain NamedHookable, tracer hooking.Hook) {
	for _, hook := range domain.Hooks() {
		if _, ok := hook.(hooking.HookFunc); ok {
			continue
		}

		if hook == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(tracer)
}
