package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs define the binary identifiers for each module section.
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionTable    byte = 4
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionStart    byte = 8
	SectionElement  byte = 9
	SectionCode     byte = 10
	SectionData     byte = 11
)

// Import/Export descriptor kinds identify the type of imported or exported item.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
	KindTag    byte = 4
)

// Limits flag bits for memory and table descriptors.
const (
	limitsHasMax byte = 0x01
	limitsShared byte = 0x02
	limits64     byte = 0x04
)

// Reference types with an explicit heap type operand (GC proposal).
const (
	valRefNull byte = 0x63
	valRef     byte = 0x64
)

// Opcodes used by ModuleBuilder function bodies.
const (
	OpUnreachable byte = 0x00
	OpEnd         byte = 0x0B
	OpCall        byte = 0x10
	OpDrop        byte = 0x1A
	OpLocalGet    byte = 0x20
	OpLocalSet    byte = 0x21
	OpI32Load     byte = 0x28
	OpI64Load     byte = 0x29
	OpF32Load     byte = 0x2A
	OpF64Load     byte = 0x2B
	OpI32Store    byte = 0x36
	OpI64Store    byte = 0x37
	OpF32Store    byte = 0x38
	OpF64Store    byte = 0x39
	OpMemorySize  byte = 0x3F
	OpMemoryGrow  byte = 0x40
	OpI32Const    byte = 0x41
	OpI64Const    byte = 0x42
	OpI32Add      byte = 0x6A
	OpF64Add      byte = 0xA0
)

// PageSize is the WebAssembly memory page size in bytes.
const PageSize = 65536
