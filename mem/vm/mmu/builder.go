package mmu

import (
	"github.com/sarchlab/akita-mos/memory"
)

// A Builder can build frame allocators.
type Builder struct {
	storage *memory.Storage
	source  FrameSource
	seed    int64
}

// MakeBuilder creates a new builder
func MakeBuilder() Builder {
	return Builder{
		seed: 1,
	}
}

// WithStorage sets the storage whose frames are allocated.
func (b Builder) WithStorage(storage *memory.Storage) Builder {
	b.storage = storage
	return b
}

// WithFrameSource sets the source of randomness used to pick frames. It
// overrides the seed.
func (b Builder) WithFrameSource(source FrameSource) Builder {
	b.source = source
	return b
}

// WithSeed sets the seed of the default random frame source.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// Build returns a newly created FrameAllocator.
func (b Builder) Build() *FrameAllocator {
	if b.storage == nil {
		panic("frame allocator requires a storage")
	}

	source := b.source
	if source == nil {
		source = NewRandFrameSource(b.seed)
	}

	return &FrameAllocator{
		storage:  b.storage,
		source:   source,
		reserved: make([]bool, b.storage.NumFrames()),
	}
}
