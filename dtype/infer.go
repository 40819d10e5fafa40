package dtype

// Number is the set of Go element types with a fixed kind.
type Number interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 |
		int64 | uint64 | float32 | float64
}

// KindFor returns the kind of T without a value.
func KindFor[T Number]() Kind {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int64:
		return Int64
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Invalid
}

// KindOf resolves the element kind of a slice value. []int, []uint and []any
// are Generic. ok is false for any other shape, including a []any holding a
// non-numeric element. Nil elements of a []any count as zero.
func KindOf(values any) (kind Kind, ok bool) {
	switch v := values.(type) {
	case []int8:
		return Int8, true
	case []uint8:
		return Uint8, true
	case []int16:
		return Int16, true
	case []uint16:
		return Uint16, true
	case []int32:
		return Int32, true
	case []uint32:
		return Uint32, true
	case []int64:
		return Int64, true
	case []uint64:
		return Uint64, true
	case []float32:
		return Float32, true
	case []float64:
		return Float64, true
	case []int, []uint:
		return Generic, true
	case []any:
		for _, e := range v {
			if e == nil {
				continue
			}
			if _, ok := ToFloat64(e); !ok {
				return Invalid, false
			}
		}
		return Generic, true
	}
	return Invalid, false
}

// Len returns the element count of a supported slice value, or -1.
func Len(values any) int {
	switch v := values.(type) {
	case []int8:
		return len(v)
	case []uint8:
		return len(v)
	case []int16:
		return len(v)
	case []uint16:
		return len(v)
	case []int32:
		return len(v)
	case []uint32:
		return len(v)
	case []int64:
		return len(v)
	case []uint64:
		return len(v)
	case []float32:
		return len(v)
	case []float64:
		return len(v)
	case []int:
		return len(v)
	case []uint:
		return len(v)
	case []any:
		return len(v)
	}
	return -1
}

// Footprint returns the number of bytes values occupies when encoded.
func Footprint(values any) (uint64, bool) {
	kind, ok := KindOf(values)
	if !ok {
		return 0, false
	}
	return uint64(Len(values)) * uint64(kind.Size()), true
}

// ToFloat64 converts a numeric scalar held in an interface.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
