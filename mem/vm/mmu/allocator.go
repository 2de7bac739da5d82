// Package mmu allocates the physical frames used for demand paging.
package mmu

import (
	"errors"
	"log"
	"math/rand"

	"github.com/sarchlab/akita-mos/memory"
)

// ErrNoFreeFrame is returned when every frame is reserved or occupied.
var ErrNoFreeFrame = errors.New("no free frame")

// A FrameSource provides uniformly distributed candidate numbers.
type FrameSource interface {
	// Intn returns a number in [0, n).
	Intn(n int) int
}

// NewRandFrameSource returns a FrameSource backed by a seeded pseudo-random
// generator.
func NewRandFrameSource(seed int64) FrameSource {
	return rand.New(rand.NewSource(seed))
}

// FrameAllocator picks unused frames in the storage. A frame is free if it
// has not been handed out since the last Reset and its first word is empty.
// Frames are never reclaimed while a job runs.
type FrameAllocator struct {
	storage  *memory.Storage
	source   FrameSource
	reserved []bool
}

// Allocate picks a free frame uniformly at random and reserves it.
func (a *FrameAllocator) Allocate() (int, error) {
	candidates := a.freeFrames()
	if len(candidates) == 0 {
		return 0, ErrNoFreeFrame
	}

	i := a.source.Intn(len(candidates))
	if i < 0 || i >= len(candidates) {
		log.Panicf("frame source returned %d, expected [0, %d)",
			i, len(candidates))
	}

	frame := candidates[i]
	a.reserved[frame] = true

	return frame, nil
}

func (a *FrameAllocator) freeFrames() []int {
	frames := make([]int, 0, len(a.reserved))

	for f, r := range a.reserved {
		if !r && a.storage.IsFrameEmpty(f) {
			frames = append(frames, f)
		}
	}

	return frames
}

// NumFree returns the number of frames that can still be allocated.
func (a *FrameAllocator) NumFree() int {
	return len(a.freeFrames())
}

// IsReserved tells if a frame has been handed out since the last reset.
func (a *FrameAllocator) IsReserved(frame int) bool {
	return a.reserved[frame]
}

// Reset returns every frame to the allocator. It is called when a new job
// is loaded and the storage is cleared.
func (a *FrameAllocator) Reset() {
	for i := range a.reserved {
		a.reserved[i] = false
	}
}
