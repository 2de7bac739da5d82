package cpu

import (
	"github.com/sarchlab/akita-mos/mem/vm/addresstranslator"
	"github.com/sarchlab/akita-mos/memory"
	"github.com/sarchlab/akita-mos/sim/naming"
)

// A Builder can build processors.
type Builder struct {
	storage   *memory.Storage
	allocator FrameAllocator
	resolver  PageFaultResolver
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithStorage sets the main memory of the processor.
func (b Builder) WithStorage(storage *memory.Storage) Builder {
	b.storage = storage
	return b
}

// WithFrameAllocator sets the allocator used for demand paging.
func (b Builder) WithFrameAllocator(allocator FrameAllocator) Builder {
	b.allocator = allocator
	return b
}

// WithPageFaultResolver replaces the default fault handler.
func (b Builder) WithPageFaultResolver(resolver PageFaultResolver) Builder {
	b.resolver = resolver
	return b
}

// Build creates a processor with the given name.
func (b Builder) Build(name string) *Comp {
	if b.storage == nil {
		panic("processor requires a storage")
	}

	resolver := b.resolver
	if resolver == nil {
		if b.allocator == nil {
			panic("processor requires a frame allocator")
		}

		resolver = NewFaultHandler(b.storage, b.allocator)
	}

	return &Comp{
		NamedBase:  naming.MakeNamedBase(name),
		storage:    b.storage,
		translator: addresstranslator.New(b.storage),
		controller: NewController(resolver),
	}
}
