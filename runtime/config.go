package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// Config holds configuration for runtime creation
type Config struct {
	// CompilationCache shares compiled code between runtimes. nil disables caching.
	CompilationCache wazero.CompilationCache

	// Logger overrides the package logger for this runtime.
	Logger *zap.Logger

	// Metrics registers the runtime collectors. nil leaves them unregistered.
	Metrics prometheus.Registerer

	// MemoryLimitPages caps every memory in pages (64KiB each).
	// 0 means the wazero default (65536 pages = 4GiB).
	MemoryLimitPages uint32

	// Interpreter forces the interpreter engine.
	Interpreter bool

	// Compiler requires the optimizing compiler. Creation fails with an
	// unsupported error on platforms wazero cannot compile for.
	// Ignored when Interpreter is set.
	Compiler bool

	// EnableWASI provides wasi_snapshot_preview1 to modules that import it.
	EnableWASI bool
}

func (c *Config) logger() *zap.Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return Logger()
}

func (c *Config) runtimeConfig() wazero.RuntimeConfig {
	var rc wazero.RuntimeConfig
	switch {
	case c.Interpreter:
		rc = wazero.NewRuntimeConfigInterpreter()
	case c.Compiler:
		rc = wazero.NewRuntimeConfigCompiler()
	default:
		rc = wazero.NewRuntimeConfig()
	}
	if c.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	if c.CompilationCache != nil {
		rc = rc.WithCompilationCache(c.CompilationCache)
	}
	return rc
}
