// Package wasm provides the small amount of WebAssembly binary handling the
// module wrapper needs on top of wazero.
//
// # Header Probe
//
//	if err := wasm.CheckHeader(bin); err != nil { ... }
//
// # Imports
//
// Read and rename the import section without touching other sections:
//
//	imports, err := wasm.ParseImports(bin)
//	renamed, err := wasm.RewriteImports(bin, func(imp wasm.Import) (string, string) {
//	    if imp.Kind == wasm.KindMemory {
//	        return "memory#1", "memory"
//	    }
//	    return imp.Module, imp.Name
//	})
//
// # Synthetic Modules
//
// MemoryModule builds the provider module behind a memory region.
// ModuleBuilder assembles small modules from raw instruction bytes:
//
//	b := wasm.NewModuleBuilder().ImportMemory("env", "memory", 1, nil)
//	load := b.AddFunc(
//	    []api.ValueType{api.ValueTypeI32},
//	    []api.ValueType{api.ValueTypeF64}, nil,
//	    wasm.Concat(wasm.LocalGet(0), []byte{wasm.OpF64Load}, wasm.MemArg(3, 0)),
//	)
//	b.ExportFunc("load", load)
//	bin := b.Build()
package wasm
