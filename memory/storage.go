package memory

import (
	"errors"
	"fmt"
)

// Default sizing of the main memory.
const (
	DefaultCapacity = 300
	DefaultPageSize = 10
)

// ErrAddressOutOfRange is returned when an address falls outside the storage.
var ErrAddressOutOfRange = errors.New(
	"accessing physical address beyond the storage capacity")

// A Storage keeps the words of the guest system.
//
// Storage is a flat, word-addressed buffer that is divided into frames of
// PageSize words. Frame f covers the addresses [f*PageSize, (f+1)*PageSize).
// Page table segments and data pages are told apart only by convention: the
// page table register points to the first word of a frame that holds page
// table entries, every other allocated frame holds user data or code.
type Storage struct {
	pageSize int
	words    []Word
}

// NewStorage creates a storage object with the specified capacity in words.
// The capacity must be a multiple of the page size.
func NewStorage(capacity, pageSize int) *Storage {
	if pageSize <= 0 || capacity <= 0 || capacity%pageSize != 0 {
		panic(fmt.Sprintf(
			"capacity %d is not a positive multiple of page size %d",
			capacity, pageSize))
	}

	return &Storage{
		pageSize: pageSize,
		words:    make([]Word, capacity),
	}
}

// Capacity returns the number of words in the storage.
func (s *Storage) Capacity() int {
	return len(s.words)
}

// PageSize returns the number of words in a frame.
func (s *Storage) PageSize() int {
	return s.pageSize
}

// NumFrames returns the number of physical frames.
func (s *Storage) NumFrames() int {
	return len(s.words) / s.pageSize
}

func (s *Storage) mustBeInRange(address int) error {
	if address < 0 || address >= len(s.words) {
		return fmt.Errorf("%w: %d", ErrAddressOutOfRange, address)
	}

	return nil
}

// Read returns the word at the given address.
func (s *Storage) Read(address int) (Word, error) {
	if err := s.mustBeInRange(address); err != nil {
		return Word{}, err
	}

	return s.words[address], nil
}

// Write stores a word at the given address.
func (s *Storage) Write(address int, w Word) error {
	if err := s.mustBeInRange(address); err != nil {
		return err
	}

	s.words[address] = w

	return nil
}

// ReadBlock returns n consecutive words starting at address.
func (s *Storage) ReadBlock(address, n int) ([]Word, error) {
	if n <= 0 {
		return nil, nil
	}

	if err := s.mustBeInRange(address); err != nil {
		return nil, err
	}

	if err := s.mustBeInRange(address + n - 1); err != nil {
		return nil, err
	}

	res := make([]Word, n)
	copy(res, s.words[address:address+n])

	return res, nil
}

// WriteBytes packs data into consecutive words starting at address, WordSize
// bytes per word. Only the bytes covered by data are overwritten.
func (s *Storage) WriteBytes(address int, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	last := address + (len(data)-1)/WordSize
	if err := s.mustBeInRange(address); err != nil {
		return err
	}

	if err := s.mustBeInRange(last); err != nil {
		return err
	}

	for i, b := range data {
		s.words[address+i/WordSize][i%WordSize] = b
	}

	return nil
}

// FrameBase returns the address of the first word of a frame.
func (s *Storage) FrameBase(frame int) int {
	return frame * s.pageSize
}

// IsFrameEmpty returns true if the first word of the frame is unused.
func (s *Storage) IsFrameEmpty(frame int) bool {
	if frame < 0 || frame >= s.NumFrames() {
		return false
	}

	return s.words[s.FrameBase(frame)].IsEmpty()
}

// Reset clears every word.
func (s *Storage) Reset() {
	for i := range s.words {
		s.words[i] = Word{}
	}
}
