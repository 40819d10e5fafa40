// Package memory provides linear memory regions for the module wrapper.
//
// A Memory is defined by a one-memory provider module instantiated in a
// wazero runtime under its own name. Guests import the region from that
// module, and the host reads and writes it through:
//
//   - Bytes: a []byte aliasing the current backing storage
//   - View: a DataView with fixed-width little-endian accessors
//   - EncodeAt/DecodeAt: element-kind aware bulk copies (see dtype)
//   - Read/Write/ReadU8..WriteU64: bounds-checked scalar access
//
// # Growth
//
// Regions only grow. Growth may reallocate the backing storage; slices and
// views obtained earlier keep pointing at the old storage. Generation
// counts storage replacements so holders can detect stale views:
//
//	v := mem.View()
//	mem.GrowTo(1 << 20)
//	if !mem.IsCurrent(v) {
//	    v = mem.View()
//	}
//
// # Codec
//
// Encode/Decode and their strided variants convert between typed slices
// and bytes. The full range is bounds-checked before the first byte moves.
package memory
