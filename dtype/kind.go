package dtype

// Kind is the numeric representation tag of an element.
type Kind uint8

const (
	Invalid Kind = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	// Generic covers untyped numeric lists. Elements are stored as float64.
	Generic
)

var kindNames = [...]string{
	Invalid: "invalid",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
	Generic: "generic",
}

var kindSizes = [...]uint32{
	Invalid: 0,
	Int8:    1,
	Uint8:   1,
	Int16:   2,
	Uint16:  2,
	Int32:   4,
	Uint32:  4,
	Int64:   8,
	Uint64:  8,
	Float32: 4,
	Float64: 8,
	Generic: 8,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Size returns the byte width of one element. Unknown kinds are 8 bytes wide.
func (k Kind) Size() uint32 {
	if k == Invalid {
		return 0
	}
	if int(k) < len(kindSizes) {
		return kindSizes[k]
	}
	return 8
}

// Valid reports whether k names a supported element kind.
func (k Kind) Valid() bool {
	return k > Invalid && k <= Generic
}

// IsFloat reports whether elements are IEEE 754 values.
func (k Kind) IsFloat() bool {
	return k == Float32 || k == Float64 || k == Generic
}

// IsSigned reports whether integer elements are two's complement signed.
func (k Kind) IsSigned() bool {
	switch k {
	case Int8, Int16, Int32, Int64:
		return true
	default:
		return false
	}
}
