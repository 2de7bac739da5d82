package memory

import "strings"

// WordSize is the number of bytes held by a single memory word.
const WordSize = 4

// A Word is the atomic unit of storage and transfer. Memory cells, registers,
// instructions, and page table entries are all words. A zero byte marks an
// unused position inside the word.
type Word [WordSize]byte

// MakeWord creates a word from the first WordSize bytes of s. Shorter strings
// leave the remaining bytes zero.
func MakeWord(s string) Word {
	var w Word
	copy(w[:], s)

	return w
}

// IsEmpty returns true if the word has never been written. Only the first
// byte is inspected.
func (w Word) IsEmpty() bool {
	return w[0] == 0
}

// String renders the word with all zero bytes removed.
func (w Word) String() string {
	var sb strings.Builder

	for _, b := range w {
		if b != 0 {
			sb.WriteByte(b)
		}
	}

	return sb.String()
}
