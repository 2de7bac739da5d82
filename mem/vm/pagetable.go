// Package vm provides the models for address translations
package vm

import (
	"errors"
	"fmt"
	"log"

	"github.com/sarchlab/akita-mos/memory"
)

// VirtualAddressSpace is the number of virtual words a job can address.
const VirtualAddressSpace = 100

// UnmappedMarker is the first byte of a page table entry that has no frame.
const UnmappedMarker = '*'

// ErrMalformedPTE is returned when a page table entry is neither the
// unmapped marker nor a frame number inside the storage.
var ErrMalformedPTE = errors.New("malformed page table entry")

// A PTE is an entry in the page table. An entry that is not mapped never
// carries a meaningful frame number.
type PTE struct {
	Mapped bool
	Frame  int
}

// Unmapped is the page table entry of a page without frame.
var Unmapped = PTE{}

// MappedTo returns a page table entry that points to the given frame.
func MappedTo(frame int) PTE {
	return PTE{Mapped: true, Frame: frame}
}

// DecodePTE parses the textual form of a page table entry. A mapped entry is
// a left-aligned decimal frame number padded with zero bytes.
func DecodePTE(w memory.Word) (PTE, error) {
	if w[0] == UnmappedMarker {
		return Unmapped, nil
	}

	frame := 0
	digits := 0

	for i, b := range w {
		if b == 0 {
			for _, rest := range w[i:] {
				if rest != 0 {
					return PTE{}, fmt.Errorf("%w: %q", ErrMalformedPTE, w[:])
				}
			}

			break
		}

		if b < '0' || b > '9' {
			return PTE{}, fmt.Errorf("%w: %q", ErrMalformedPTE, w[:])
		}

		frame = frame*10 + int(b-'0')
		digits++
	}

	if digits == 0 {
		return PTE{}, fmt.Errorf("%w: empty entry", ErrMalformedPTE)
	}

	return MappedTo(frame), nil
}

// EncodePTE produces the textual form of a page table entry.
func EncodePTE(pte PTE) memory.Word {
	if !pte.Mapped {
		return memory.MakeWord(string(UnmappedMarker))
	}

	if pte.Frame < 0 || pte.Frame > 9999 {
		log.Panicf("frame %d cannot be encoded in a page table entry",
			pte.Frame)
	}

	return memory.MakeWord(fmt.Sprintf("%d", pte.Frame))
}

// A PageTable is a view of the page table segment of the current job. The
// segment starts at the page table register and has one entry per virtual
// page. The entries live in the storage itself, so the view holds no state
// other than the base address.
type PageTable struct {
	storage *memory.Storage
	base    int
}

// NewPageTable creates a view of the page table that starts at base.
func NewPageTable(storage *memory.Storage, base int) *PageTable {
	pt := &PageTable{
		storage: storage,
		base:    base,
	}

	if base < 0 || base+pt.NumEntries() > storage.Capacity() {
		log.Panicf("page table at %d does not fit in storage", base)
	}

	return pt
}

// Base returns the page table register value.
func (pt *PageTable) Base() int {
	return pt.base
}

// NumEntries returns the number of virtual pages covered by the page table.
func (pt *PageTable) NumEntries() int {
	return VirtualAddressSpace / pt.storage.PageSize()
}

// EntryAddress returns the physical address of the entry for a virtual page.
func (pt *PageTable) EntryAddress(page int) int {
	pt.pageMustExist(page)
	return pt.base + page
}

// Lookup returns the entry of a virtual page. Entries that point outside the
// storage are reported as malformed.
func (pt *PageTable) Lookup(page int) (PTE, error) {
	w, err := pt.storage.Read(pt.EntryAddress(page))
	if err != nil {
		return PTE{}, err
	}

	pte, err := DecodePTE(w)
	if err != nil {
		return PTE{}, err
	}

	if pte.Mapped && pte.Frame >= pt.storage.NumFrames() {
		return PTE{}, fmt.Errorf("%w: frame %d beyond storage",
			ErrMalformedPTE, pte.Frame)
	}

	return pte, nil
}

// Install maps a virtual page to a frame.
func (pt *PageTable) Install(page, frame int) error {
	if frame < 0 || frame >= pt.storage.NumFrames() {
		return fmt.Errorf("%w: frame %d beyond storage",
			memory.ErrAddressOutOfRange, frame)
	}

	return pt.storage.Write(pt.EntryAddress(page), EncodePTE(MappedTo(frame)))
}

// Clear marks every entry as unmapped.
func (pt *PageTable) Clear() {
	for page := 0; page < pt.NumEntries(); page++ {
		err := pt.storage.Write(pt.EntryAddress(page), EncodePTE(Unmapped))
		if err != nil {
			panic(err)
		}
	}
}

// NextUnmapped returns the lowest virtual page that has no frame.
func (pt *PageTable) NextUnmapped() (int, bool) {
	for page := 0; page < pt.NumEntries(); page++ {
		pte, err := pt.Lookup(page)
		if err == nil && !pte.Mapped {
			return page, true
		}
	}

	return 0, false
}

func (pt *PageTable) pageMustExist(page int) {
	if page < 0 || page >= pt.NumEntries() {
		log.Panicf("virtual page %d does not exist", page)
	}
}
