package batch

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/akita-mos/cpu"
	"github.com/sarchlab/akita-mos/job"
	"github.com/sarchlab/akita-mos/mem/vm/mmu"
	"github.com/sarchlab/akita-mos/memory"
	"github.com/sarchlab/akita-mos/sim/hooking"
)

// A Builder can build batch runners.
type Builder struct {
	capacity int
	pageSize int
	seed     int64
	source   mmu.FrameSource
	sink     job.Sink
	logger   logrus.FieldLogger
	hooks    []hooking.Hook
}

// MakeBuilder creates a builder with the default machine configuration.
func MakeBuilder() Builder {
	return Builder{
		capacity: memory.DefaultCapacity,
		pageSize: memory.DefaultPageSize,
		seed:     1,
	}
}

// WithMemory sets the number of words and the page size of the main memory.
func (b Builder) WithMemory(capacity, pageSize int) Builder {
	b.capacity = capacity
	b.pageSize = pageSize
	return b
}

// WithSeed sets the seed of the frame picker.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithFrameSource overrides the default random frame picker.
func (b Builder) WithFrameSource(source mmu.FrameSource) Builder {
	b.source = source
	return b
}

// WithSink sets where the output of the jobs goes.
func (b Builder) WithSink(sink job.Sink) Builder {
	b.sink = sink
	return b
}

// WithLogger sets the logger for loader notices. The standard logrus logger
// is used by default.
func (b Builder) WithLogger(logger logrus.FieldLogger) Builder {
	b.logger = logger
	return b
}

// WithHooks attaches hooks to the processor.
func (b Builder) WithHooks(hooks ...hooking.Hook) Builder {
	b.hooks = append(b.hooks, hooks...)
	return b
}

// Build creates the runner and the machine it drives.
func (b Builder) Build(name string) *Runner {
	if b.sink == nil {
		panic("batch runner requires a sink")
	}

	storage := memory.NewStorage(b.capacity, b.pageSize)

	allocatorBuilder := mmu.MakeBuilder().
		WithStorage(storage).
		WithSeed(b.seed)
	if b.source != nil {
		allocatorBuilder = allocatorBuilder.WithFrameSource(b.source)
	}

	allocator := allocatorBuilder.Build()

	processor := cpu.MakeBuilder().
		WithStorage(storage).
		WithFrameAllocator(allocator).
		Build(name + ".CPU")

	for _, h := range b.hooks {
		processor.AcceptHook(h)
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Runner{
		storage:   storage,
		allocator: allocator,
		cpu:       processor,
		sink:      b.sink,
		logger:    logger,
	}
}
