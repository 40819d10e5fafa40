package wasm

import (
	"github.com/tetratelabs/wazero/api"
)

// ModuleBuilder builds small core modules: the memory provider that backs a
// memory region, and test fixtures that import or define a memory.
// All imports must be added before the first AddFunc call.
type ModuleBuilder struct {
	memory      *Limits
	start       *uint32
	types       []funcType
	funcImports []builderImport
	memImport   *builderImport
	funcs       []builderFunc
	exports     []builderExport
}

type funcType struct {
	params  []api.ValueType
	results []api.ValueType
}

type builderImport struct {
	module  string
	name    string
	limits  Limits
	typeIdx uint32
}

type builderFunc struct {
	locals  []api.ValueType
	body    []byte
	typeIdx uint32
}

type builderExport struct {
	name  string
	kind  byte
	index uint32
}

// NewModuleBuilder creates an empty module builder.
func NewModuleBuilder() *ModuleBuilder {
	return &ModuleBuilder{}
}

// MemoryModule returns a module that defines one memory and exports it
// under exportName. A nil maxPages leaves the maximum to the runtime limit.
func MemoryModule(exportName string, minPages uint32, maxPages *uint32) []byte {
	return NewModuleBuilder().
		Memory(minPages, maxPages).
		ExportMemory(exportName).
		Build()
}

func (b *ModuleBuilder) addType(params, results []api.ValueType) uint32 {
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1)
}

// ImportFunc adds a function import and returns its function index.
func (b *ModuleBuilder) ImportFunc(module, name string, params, results []api.ValueType) uint32 {
	if len(b.funcs) > 0 {
		panic("wasm: imports must be added before functions")
	}
	b.funcImports = append(b.funcImports, builderImport{
		module:  module,
		name:    name,
		typeIdx: b.addType(params, results),
	})
	return uint32(len(b.funcImports) - 1)
}

// ImportMemory imports memory index 0.
func (b *ModuleBuilder) ImportMemory(module, name string, minPages uint32, maxPages *uint32) *ModuleBuilder {
	if b.memory != nil {
		panic("wasm: module already defines a memory")
	}
	imp := builderImport{module: module, name: name, limits: pageLimits(minPages, maxPages)}
	b.memImport = &imp
	return b
}

// Memory defines memory index 0.
func (b *ModuleBuilder) Memory(minPages uint32, maxPages *uint32) *ModuleBuilder {
	if b.memImport != nil {
		panic("wasm: module already imports a memory")
	}
	l := pageLimits(minPages, maxPages)
	b.memory = &l
	return b
}

func pageLimits(minPages uint32, maxPages *uint32) Limits {
	l := Limits{Min: uint64(minPages)}
	if maxPages != nil {
		l.HasMax = true
		l.Max = uint64(*maxPages)
	}
	return l
}

// AddFunc defines a function and returns its function index. body holds
// the instructions without the trailing end opcode.
func (b *ModuleBuilder) AddFunc(params, results, locals []api.ValueType, body []byte) uint32 {
	b.funcs = append(b.funcs, builderFunc{
		typeIdx: b.addType(params, results),
		locals:  locals,
		body:    body,
	})
	return uint32(len(b.funcImports) + len(b.funcs) - 1)
}

// ExportFunc exports the function at idx.
func (b *ModuleBuilder) ExportFunc(name string, idx uint32) *ModuleBuilder {
	b.exports = append(b.exports, builderExport{name: name, kind: KindFunc, index: idx})
	return b
}

// ExportMemory exports memory index 0.
func (b *ModuleBuilder) ExportMemory(name string) *ModuleBuilder {
	b.exports = append(b.exports, builderExport{name: name, kind: KindMemory})
	return b
}

// Start sets the start function.
func (b *ModuleBuilder) Start(idx uint32) *ModuleBuilder {
	b.start = &idx
	return b
}

// Build generates the WASM module bytes.
func (b *ModuleBuilder) Build() []byte {
	wasm := append([]byte(nil), Empty...)

	if len(b.types) > 0 {
		wasm = appendSection(wasm, SectionType, b.buildTypeSection())
	}
	if len(b.funcImports) > 0 || b.memImport != nil {
		wasm = appendSection(wasm, SectionImport, b.buildImportSection())
	}
	if len(b.funcs) > 0 {
		wasm = appendSection(wasm, SectionFunction, b.buildFuncSection())
	}
	if b.memory != nil {
		sec := AppendULEB128(nil, 1)
		sec = appendLimits(sec, *b.memory)
		wasm = appendSection(wasm, SectionMemory, sec)
	}
	if len(b.exports) > 0 {
		wasm = appendSection(wasm, SectionExport, b.buildExportSection())
	}
	if b.start != nil {
		wasm = appendSection(wasm, SectionStart, AppendULEB128(nil, uint64(*b.start)))
	}
	if len(b.funcs) > 0 {
		wasm = appendSection(wasm, SectionCode, b.buildCodeSection())
	}
	return wasm
}

func appendSection(dst []byte, id byte, body []byte) []byte {
	dst = append(dst, id)
	dst = AppendULEB128(dst, uint64(len(body)))
	return append(dst, body...)
}

func appendLimits(dst []byte, l Limits) []byte {
	var flag byte
	if l.HasMax {
		flag |= limitsHasMax
	}
	dst = append(dst, flag)
	dst = AppendULEB128(dst, l.Min)
	if l.HasMax {
		dst = AppendULEB128(dst, l.Max)
	}
	return dst
}

func (b *ModuleBuilder) buildTypeSection() []byte {
	section := AppendULEB128(nil, uint64(len(b.types)))
	for _, t := range b.types {
		section = append(section, 0x60)
		section = AppendULEB128(section, uint64(len(t.params)))
		for _, p := range t.params {
			section = append(section, ValTypeToWasm(p))
		}
		section = AppendULEB128(section, uint64(len(t.results)))
		for _, r := range t.results {
			section = append(section, ValTypeToWasm(r))
		}
	}
	return section
}

func (b *ModuleBuilder) buildImportSection() []byte {
	count := len(b.funcImports)
	if b.memImport != nil {
		count++
	}
	section := AppendULEB128(nil, uint64(count))

	for _, imp := range b.funcImports {
		section = appendName(section, imp.module)
		section = appendName(section, imp.name)
		section = append(section, KindFunc)
		section = AppendULEB128(section, uint64(imp.typeIdx))
	}
	if imp := b.memImport; imp != nil {
		section = appendName(section, imp.module)
		section = appendName(section, imp.name)
		section = append(section, KindMemory)
		section = appendLimits(section, imp.limits)
	}
	return section
}

func (b *ModuleBuilder) buildFuncSection() []byte {
	section := AppendULEB128(nil, uint64(len(b.funcs)))
	for _, f := range b.funcs {
		section = AppendULEB128(section, uint64(f.typeIdx))
	}
	return section
}

func (b *ModuleBuilder) buildExportSection() []byte {
	section := AppendULEB128(nil, uint64(len(b.exports)))
	for _, e := range b.exports {
		section = appendName(section, e.name)
		section = append(section, e.kind)
		section = AppendULEB128(section, uint64(e.index))
	}
	return section
}

func (b *ModuleBuilder) buildCodeSection() []byte {
	section := AppendULEB128(nil, uint64(len(b.funcs)))
	for _, f := range b.funcs {
		var body []byte
		body = AppendULEB128(body, uint64(len(f.locals)))
		for _, l := range f.locals {
			body = append(body, 0x01, ValTypeToWasm(l))
		}
		body = append(body, f.body...)
		body = append(body, OpEnd)

		section = AppendULEB128(section, uint64(len(body)))
		section = append(section, body...)
	}
	return section
}

// ValTypeToWasm converts a wazero value type to WASM encoding.
func ValTypeToWasm(t api.ValueType) byte {
	switch t {
	case api.ValueTypeI32:
		return 0x7f
	case api.ValueTypeI64:
		return 0x7e
	case api.ValueTypeF32:
		return 0x7d
	case api.ValueTypeF64:
		return 0x7c
	case api.ValueTypeExternref:
		return 0x6f
	default:
		return 0x7f
	}
}

// MemArg encodes the alignment and offset immediates of a load or store.
func MemArg(alignLog2, offset uint32) []byte {
	b := AppendULEB128(nil, uint64(alignLog2))
	return AppendULEB128(b, uint64(offset))
}

// I32Const encodes an i32.const instruction.
func I32Const(v int32) []byte {
	return append([]byte{OpI32Const}, EncodeSLEB128(v)...)
}

// LocalGet encodes a local.get instruction.
func LocalGet(idx uint32) []byte {
	return append([]byte{OpLocalGet}, EncodeULEB128(idx)...)
}

// Call encodes a call instruction.
func Call(idx uint32) []byte {
	return append([]byte{OpCall}, EncodeULEB128(idx)...)
}

// Concat joins instruction fragments into one body.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
