package wasm

// Renamer maps an import to its new module and field names. Returning the
// import's own names leaves it untouched.
type Renamer func(imp Import) (module, name string)

// RewriteImports returns a copy of bin whose import entries are renamed by
// fn. Descriptors and every other section are copied byte for byte. The
// input is never modified; when nothing changes the result is still a copy.
func RewriteImports(bin []byte, fn Renamer) ([]byte, error) {
	secs, err := sections(bin)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(bin)+64)
	out = append(out, bin[:8]...)

	for _, s := range secs {
		if s.id != SectionImport {
			out = append(out, bin[s.start:s.end]...)
			continue
		}

		imports, err := parseImportSection(s.body)
		if err != nil {
			return nil, err
		}
		body := encodeImportSection(imports, fn)
		out = append(out, SectionImport)
		out = AppendULEB128(out, uint64(len(body)))
		out = append(out, body...)
	}
	return out, nil
}

func encodeImportSection(imports []Import, fn Renamer) []byte {
	var body []byte
	body = AppendULEB128(body, uint64(len(imports)))
	for _, imp := range imports {
		module, name := imp.Module, imp.Name
		if fn != nil {
			module, name = fn(imp)
		}
		body = appendName(body, module)
		body = appendName(body, name)
		body = append(body, imp.Kind)
		body = append(body, imp.desc...)
	}
	return body
}

func appendName(dst []byte, s string) []byte {
	dst = AppendULEB128(dst, uint64(len(s)))
	return append(dst, s...)
}

// RenameTable is a Renamer driven by a "module#name" lookup table.
type RenameTable map[string][2]string

// Renamer returns fn that applies the table.
func (t RenameTable) Renamer() Renamer {
	return func(imp Import) (string, string) {
		if to, ok := t[imp.Key()]; ok {
			return to[0], to[1]
		}
		return imp.Module, imp.Name
	}
}

