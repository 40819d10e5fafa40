// Package wasmmodule binds compiled WebAssembly code to an optional linear
// memory region and an import table, and provides typed byte-level access
// to that memory.
//
// The host virtual machine is wazero. Compilation, instantiation, memory
// growth and raw byte access are delegated to it; this library adds the
// binding, the memory views, and element-kind aware read/write helpers.
//
// # Architecture Overview
//
//	wasmmodule/          Root package with PageSize and memory interfaces
//	├── runtime/         Runtime, import table, and the Module wrapper
//	├── memory/          Linear memory regions, views, strided codec
//	├── dtype/           Element kinds and their byte sizes
//	├── wasm/            Binary header detection, import parsing and rewriting
//	├── errors/          Structured error types
//	└── cmd/run/         CLI and interactive memory inspector
//
// # Quick Start
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mem, err := rt.NewMemory(ctx, memory.Config{InitialPages: 1})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mod, err := rt.NewModule(wasmBytes, runtime.WithMemory(mem))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := mod.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := mod.Write(0, []float64{1, 2, 3, 4}); err != nil {
//	    log.Fatal(err)
//	}
//
// # Memory Model
//
// WASM linear memory can only grow, never shrink. Growing may reallocate
// the backing storage, so byte slices obtained before a growth become
// stale. Every successful growth bumps the region's generation counter;
// re-fetch views when the generation changes.
//
// # Thread Safety
//
// Runtime is safe for concurrent use. Module initialization is
// single-flight. Read, Write and Resize on the same Module must be
// serialized by the caller.
package wasmmodule
