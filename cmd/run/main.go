package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-module/errors"
	"github.com/wippyai/wasm-module/memory"
	"github.com/wippyai/wasm-module/runtime"
	"github.com/wippyai/wasm-module/wasm"
)

type options struct {
	stdout      io.Writer
	stderr      io.Writer
	wasmFile    string
	witFile     string
	funcName    string
	args        string
	dump        string
	pages       uint
	maxPages    uint
	growTo      uint64
	list        bool
	wasi        bool
	interp      bool
	verbose     bool
	interactive bool
}

func main() {
	var o options
	flag.StringVar(&o.wasmFile, "wasm", "", "Path to core wasm module")
	flag.StringVar(&o.witFile, "wit", "", "WIT file with function signatures (enables typed args)")
	flag.StringVar(&o.funcName, "func", "", "Function to call (optional)")
	flag.StringVar(&o.args, "args", "", "Arguments (comma-separated)")
	flag.StringVar(&o.dump, "dump", "", "Hex dump memory after the call (offset:length)")
	flag.UintVar(&o.pages, "pages", 1, "Initial memory pages (64KiB each)")
	flag.UintVar(&o.maxPages, "max", 0, "Maximum memory pages (0 = runtime limit)")
	flag.Uint64Var(&o.growTo, "grow", 0, "Grow memory to at least this many bytes before the call")
	flag.BoolVar(&o.list, "list", false, "List imports and exported functions and exit")
	flag.BoolVar(&o.wasi, "wasi", false, "Provide wasi_snapshot_preview1")
	flag.BoolVar(&o.interp, "interpreter", false, "Use the interpreter engine")
	flag.BoolVar(&o.verbose, "v", false, "Debug logging")
	flag.BoolVar(&o.interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if o.wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-func name] [-args 1,2] [-wit sig.wit] [-pages N] [-dump off:len]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if o.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(o); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var missing *errors.MissingImportsError
		if stderrors.As(err, &missing) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// session is a loaded module bound to a fresh runtime and memory.
type session struct {
	rt      *runtime.Runtime
	mem     *memory.Memory
	mod     *runtime.Module
	imports []wasm.Import
	exports []exportInfo
	typed   bool
}

type exportInfo struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

func (e exportInfo) String() string {
	names := func(ts []api.ValueType) string {
		out := make([]string, len(ts))
		for i, t := range ts {
			out[i] = api.ValueTypeName(t)
		}
		return strings.Join(out, ", ")
	}
	s := e.name + "(" + names(e.params) + ")"
	if len(e.results) > 0 {
		s += " -> " + names(e.results)
	}
	return s
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func load(ctx context.Context, o options) (*session, error) {
	data, err := os.ReadFile(o.wasmFile)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	imports, err := wasm.ParseImports(data)
	if err != nil {
		return nil, fmt.Errorf("parse imports: %w", err)
	}

	var witText string
	if o.witFile != "" {
		b, err := os.ReadFile(o.witFile)
		if err != nil {
			return nil, fmt.Errorf("read wit: %w", err)
		}
		witText = string(b)
	}

	rt, err := runtime.NewWithConfig(ctx, &runtime.Config{
		Interpreter: o.interp,
		EnableWASI:  o.wasi,
		Logger:      newLogger(o.verbose),
	})
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}

	cfg := memory.Config{InitialPages: uint32(o.pages)}
	if o.maxPages > 0 {
		maxPages := uint32(o.maxPages)
		cfg.MaxPages = &maxPages
	}
	mem, err := rt.NewMemory(ctx, cfg)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("create memory: %w", err)
	}

	stdout, stderr := o.stdout, o.stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	opts := []runtime.ModuleOption{
		runtime.WithMemory(mem),
		runtime.WithStdout(stdout),
		runtime.WithStderr(stderr),
		// entry points are called explicitly
		runtime.WithStartFunctions(),
	}
	if witText != "" {
		opts = append(opts, runtime.WithSignatures(witText))
	}
	mod, err := rt.NewModule(data, opts...)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("load module: %w", err)
	}

	exports, err := listExports(ctx, rt, data)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	return &session{
		rt:      rt,
		mem:     mem,
		mod:     mod,
		imports: imports,
		exports: exports,
		typed:   witText != "",
	}, nil
}

func listExports(ctx context.Context, rt *runtime.Runtime, data []byte) ([]exportInfo, error) {
	compiled, err := rt.Wazero().CompileModule(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	defer compiled.Close(ctx)

	var out []exportInfo
	for name, def := range compiled.ExportedFunctions() {
		out = append(out, exportInfo{name: name, params: def.ParamTypes(), results: def.ResultTypes()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

func (s *session) close(ctx context.Context) {
	s.rt.Close(ctx)
}

func (s *session) export(name string) (exportInfo, bool) {
	for _, e := range s.exports {
		if e.name == name {
			return e, true
		}
	}
	return exportInfo{}, false
}

// call invokes name with textual args, typed through WIT signatures when
// available and through the export's core signature otherwise.
func (s *session) call(ctx context.Context, name string, args []string) (string, error) {
	if _, err := s.mod.Initialize(ctx); err != nil {
		return "", err
	}

	if s.typed {
		params, _, err := s.mod.FunctionTypes(name)
		if err == nil {
			if len(params) != len(args) {
				return "", fmt.Errorf("%s takes %d arguments, got %d", name, len(params), len(args))
			}
			typed := make([]any, len(args))
			for i, a := range args {
				if typed[i], err = convertArg(a, params[i]); err != nil {
					return "", err
				}
			}
			out, err := s.mod.CallWIT(ctx, name, typed...)
			if err != nil {
				return "", err
			}
			return fmt.Sprint(out...), nil
		}
	}

	e, ok := s.export(name)
	if !ok {
		return "", fmt.Errorf("function %q not exported", name)
	}
	if len(e.params) != len(args) {
		return "", fmt.Errorf("%s takes %d arguments, got %d", name, len(e.params), len(args))
	}
	raw := make([]uint64, len(args))
	for i, a := range args {
		v, err := encodeArg(a, e.params[i])
		if err != nil {
			return "", err
		}
		raw[i] = v
	}
	out, err := s.mod.Call(ctx, name, raw...)
	if err != nil {
		return "", err
	}
	return formatResults(out, e.results), nil
}

func encodeArg(s string, t api.ValueType) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("parse i32 %q: %w", s, err)
		}
		return api.EncodeI32(int32(v)), nil
	case api.ValueTypeI64:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("parse i64 %q: %w", s, err)
		}
		return api.EncodeI64(v), nil
	case api.ValueTypeF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return 0, fmt.Errorf("parse f32 %q: %w", s, err)
		}
		return api.EncodeF32(float32(v)), nil
	case api.ValueTypeF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse f64 %q: %w", s, err)
		}
		return api.EncodeF64(v), nil
	}
	return 0, fmt.Errorf("unsupported parameter type %s", api.ValueTypeName(t))
}

func formatResults(out []uint64, types []api.ValueType) string {
	parts := make([]string, len(out))
	for i, v := range out {
		t := api.ValueTypeI64
		if i < len(types) {
			t = types[i]
		}
		switch t {
		case api.ValueTypeI32:
			parts[i] = strconv.FormatInt(int64(api.DecodeI32(v)), 10)
		case api.ValueTypeF32:
			parts[i] = strconv.FormatFloat(float64(api.DecodeF32(v)), 'g', -1, 32)
		case api.ValueTypeF64:
			parts[i] = strconv.FormatFloat(api.DecodeF64(v), 'g', -1, 64)
		default:
			parts[i] = strconv.FormatInt(int64(v), 10)
		}
	}
	return strings.Join(parts, ", ")
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseRange parses "offset:length"; both accept 0x prefixes.
func parseRange(s string) (uint32, uint32, error) {
	off, n, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("range %q: want offset:length", s)
	}
	o, err := strconv.ParseUint(off, 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("range offset: %w", err)
	}
	l, err := strconv.ParseUint(n, 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("range length: %w", err)
	}
	return uint32(o), uint32(l), nil
}

func run(o options) error {
	ctx := context.Background()

	s, err := load(ctx, o)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	fmt.Printf("Module: %s (%d bytes)\n", o.wasmFile, len(s.mod.Binary()))
	fmt.Printf("Memory: %s, %d pages\n", s.mem.Name(), s.mem.Pages())
	fmt.Printf("\nImports:\n")
	for _, imp := range s.imports {
		fmt.Printf("  %s (%s)\n", imp.Key(), imp.KindName())
	}
	fmt.Printf("\nExported functions:\n")
	for _, e := range s.exports {
		fmt.Printf("  %s\n", e)
	}
	if o.list {
		return nil
	}

	if o.growTo > 0 {
		if s.mod.Resize(o.growTo) {
			fmt.Printf("\nMemory grown to %d pages\n", s.mem.Pages())
		} else {
			fmt.Printf("\nMemory not grown (capacity %d bytes)\n", s.mem.Size())
		}
	}

	fmt.Printf("\nInitializing...\n")
	if _, err := s.mod.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	funcName := o.funcName
	if funcName == "" {
		for _, name := range []string{"_start", "run", "main"} {
			if _, ok := s.export(name); ok {
				funcName = name
				break
			}
		}
		if funcName == "" && len(s.exports) == 1 {
			funcName = s.exports[0].name
		}
	}

	if funcName != "" {
		args := splitArgs(o.args)
		fmt.Printf("\nCalling %s(%s)...\n", funcName, strings.Join(args, ", "))
		result, err := s.call(ctx, funcName, args)
		if err != nil {
			return fmt.Errorf("call %s: %w", funcName, err)
		}
		fmt.Printf("Result: %s\n", result)
	} else {
		fmt.Printf("\nNo function specified and no common entry point found.\n")
		fmt.Printf("Use -func to specify a function to call.\n")
	}

	if o.dump != "" {
		off, n, err := parseRange(o.dump)
		if err != nil {
			return err
		}
		data, err := s.mem.Read(off, n)
		if err != nil {
			return fmt.Errorf("dump: %w", err)
		}
		fmt.Printf("\n--- memory %#x..%#x ---\n", off, uint64(off)+uint64(n))
		fmt.Print(hexdump(data, off))
	}
	return nil
}
