package wasm

import "fmt"

// Limits is the size range of a memory or table.
type Limits struct {
	Min    uint64
	Max    uint64
	HasMax bool
	Shared bool
	Is64   bool
}

// Import is one entry of a module's import section.
type Import struct {
	Module string
	Name   string
	// desc holds the raw descriptor bytes following the kind byte.
	desc      []byte
	Limits    Limits
	TypeIndex uint32
	Kind      byte
}

// Key returns the "module#name" form used in error reports.
func (i Import) Key() string {
	return i.Module + "#" + i.Name
}

// KindName returns a readable name for the import kind.
func (i Import) KindName() string {
	switch i.Kind {
	case KindFunc:
		return "func"
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	case KindTag:
		return "tag"
	default:
		return fmt.Sprintf("kind(%d)", i.Kind)
	}
}

// ParseImports returns the import section entries of a core module.
// A module without imports yields an empty slice.
func ParseImports(bin []byte) ([]Import, error) {
	secs, err := sections(bin)
	if err != nil {
		return nil, err
	}
	for _, s := range secs {
		if s.id == SectionImport {
			return parseImportSection(s.body)
		}
	}
	return nil, nil
}

func parseImportSection(body []byte) ([]Import, error) {
	r := &reader{buf: body}
	count, err := r.readU32()
	if err != nil {
		return nil, fmt.Errorf("import count: %w", err)
	}

	imports := make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		imp, err := readImport(r)
		if err != nil {
			return nil, fmt.Errorf("import %d: %w", i, err)
		}
		imports = append(imports, imp)
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("import section: %d trailing bytes", r.remaining())
	}
	return imports, nil
}

func readImport(r *reader) (Import, error) {
	var imp Import
	var err error

	if imp.Module, err = r.readName(); err != nil {
		return imp, err
	}
	if imp.Name, err = r.readName(); err != nil {
		return imp, err
	}
	if imp.Kind, err = r.readByte(); err != nil {
		return imp, err
	}

	descStart := r.pos
	switch imp.Kind {
	case KindFunc:
		imp.TypeIndex, err = r.readU32()
	case KindTable:
		if err = skipRefType(r); err == nil {
			imp.Limits, err = readLimits(r)
		}
	case KindMemory:
		imp.Limits, err = readLimits(r)
	case KindGlobal:
		if err = skipValType(r); err == nil {
			_, err = r.readByte()
		}
	case KindTag:
		if _, err = r.readByte(); err == nil {
			imp.TypeIndex, err = r.readU32()
		}
	default:
		err = fmt.Errorf("unknown import kind %#x", imp.Kind)
	}
	if err != nil {
		return imp, err
	}
	imp.desc = r.buf[descStart:r.pos]
	return imp, nil
}

func readLimits(r *reader) (Limits, error) {
	var l Limits
	flag, err := r.readByte()
	if err != nil {
		return l, err
	}
	if flag&^(limitsHasMax|limitsShared|limits64) != 0 {
		return l, fmt.Errorf("invalid limits flag %#x", flag)
	}
	l.HasMax = flag&limitsHasMax != 0
	l.Shared = flag&limitsShared != 0
	l.Is64 = flag&limits64 != 0

	if l.Min, err = r.readU64(); err != nil {
		return l, err
	}
	if l.HasMax {
		if l.Max, err = r.readU64(); err != nil {
			return l, err
		}
	}
	return l, nil
}

func skipValType(r *reader) error {
	b, err := r.readByte()
	if err != nil {
		return err
	}
	if b == valRefNull || b == valRef {
		_, err = r.readS64()
	}
	return err
}

func skipRefType(r *reader) error {
	return skipValType(r)
}
