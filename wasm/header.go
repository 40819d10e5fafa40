package wasm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadHeader is returned for binaries without the core module preamble.
var ErrBadHeader = errors.New("wasm: missing magic number or unsupported version")

// Empty is the smallest valid module: the preamble with no sections.
var Empty = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// IsModule reports whether bin starts with the core module preamble.
func IsModule(bin []byte) bool {
	return CheckHeader(bin) == nil
}

// CheckHeader validates the magic number and version of a core module.
// Component binaries share the magic number but carry a different version
// and layer, and are rejected.
func CheckHeader(bin []byte) error {
	if len(bin) < 8 {
		return fmt.Errorf("%w: %d bytes", ErrBadHeader, len(bin))
	}
	if binary.LittleEndian.Uint32(bin[0:4]) != Magic {
		return fmt.Errorf("%w: magic %x", ErrBadHeader, bin[0:4])
	}
	if v := binary.LittleEndian.Uint32(bin[4:8]); v != Version {
		return fmt.Errorf("%w: version %#x", ErrBadHeader, v)
	}
	return nil
}
