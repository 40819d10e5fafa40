package wasmmodule

// PageSize is the fixed growth unit of a linear memory region.
const PageSize = 65536

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of WASM linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Grower grows a memory region by whole pages.
type Grower interface {
	MemorySizer
	// Grow adds deltaPages pages and reports whether the host accepted.
	Grow(deltaPages uint32) bool
}

// MaxPages is the page limit of a 32-bit linear memory (4 GiB).
const MaxPages = 65536

// PagesFor returns the number of pages needed to hold n bytes.
func PagesFor(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return (n-1)/PageSize + 1
}
