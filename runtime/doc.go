// Package runtime wraps WebAssembly modules together with a growable memory
// region and typed access to it.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	// One 64KiB page, growable to 16 pages
//	max := uint32(16)
//	mem, err := rt.NewMemory(ctx, memory.Config{InitialPages: 1, MaxPages: &max})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mod, err := rt.NewModule(wasmBytes, runtime.WithMemory(mem))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := mod.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := mod.Write(0, []float64{1, 2, 3, 4}); err != nil {
//	    log.Fatal(err)
//	}
//	results, err := mod.Call(ctx, "sum", 0, 4)
//
// # Initialization
//
// A Module compiles and instantiates its binary at most once. Initialize
// and InitializeAsync run the work on a background goroutine and share one
// in-flight attempt between callers; InitializeSync runs it on the calling
// goroutine. A failed attempt leaves the module uninitialized so a later
// call can retry. Compile and instantiate failures carry the wazero error
// as their cause:
//
//	_, err := mod.Initialize(ctx)
//	var e *errors.Error
//	if stderrors.As(err, &e) && e.Phase == errors.PhaseCompile {
//	    fmt.Println(stderrors.Unwrap(err))
//	}
//
// # Imports
//
// Imports are resolved before compilation:
//
//	memory import             -> the bound memory region, whatever its names
//	wasi_snapshot_preview1.*  -> the runtime WASI host (Config.EnableWASI)
//	other function imports    -> the module's import table
//
// Function imports are served by a host module private to the wrapper, so
// modules in one runtime may use different functions under the same
// namespace. Unresolved imports fail initialization with a
// *errors.MissingImportsError cause listing all of them.
//
//	imports := runtime.NewImports()
//	imports.RegisterFunc("env", "abort", func(code int32) { panic(code) })
//	mod, err := rt.NewModule(wasmBytes, runtime.WithImports(imports))
//
// # Memory Access
//
// Write and Read infer the element kind from the slice type (see dtype)
// and encode little-endian. Both validate the value shape, then the memory
// binding, then the capacity, before touching memory. Resize and
// HasCapacity report with booleans instead of errors.
//
// # Typed Calls
//
// Core modules carry no type metadata. WithSignatures supplies WIT text so
// CallWIT can convert Go scalars:
//
//	mod, _ := rt.NewModule(wasmBytes, runtime.WithSignatures(`
//	    add: func(a: s32, b: s32) -> s32;
//	`))
//	out, err := mod.CallWIT(ctx, "add", 2, 3) // []any{int32(5)}
//
// # Observability
//
// Runtimes log through zap (Config.Logger or SetLogger) and expose
// Prometheus collectors when Config.Metrics is set.
package runtime
