package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-module/wasm"
)

type mathHost struct{}

func (mathHost) Namespace() string { return "math" }

func (mathHost) AddOne(v int32) int32 { return v + 1 }

func (mathHost) GetHTTPStatus() int32 { return 200 }

func (mathHost) Scale(_ context.Context, v float64) float64 { return v * 2 }

type explicitHost struct{}

func (explicitHost) Namespace() string { return "env" }
func (explicitHost) Register() map[string]any {
	return map[string]any{
		"__wbg_log": func(int32) {},
	}
}

func TestToKebabCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"Add", "add"},
		{"AddOne", "add-one"},
		{"GetHTTPStatus", "get-http-status"},
		{"GetHTTPURL", "get-http-url"},
		{"ParseJSON", "parse-json"},
		{"lower", "lower"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, toKebabCase(tt.input))
		})
	}
}

func TestImports_RegisterHost(t *testing.T) {
	imports := NewImports()
	require.NoError(t, imports.RegisterHost(mathHost{}))
	for _, name := range []string{"add-one", "get-http-status", "scale"} {
		_, ok := imports.Lookup("math", name)
		assert.True(t, ok, "missing math#%s", name)
	}
	_, ok := imports.Lookup("math", "namespace")
	assert.False(t, ok, "Namespace should not be registered")
	assert.Equal(t, 3, imports.Len())

	require.NoError(t, imports.RegisterHost(explicitHost{}))
	_, ok = imports.Lookup("env", "__wbg_log")
	assert.True(t, ok, "explicit registration missing")
	assert.Equal(t, []string{"env", "math"}, imports.Namespaces())
}

func TestImports_RegisterFuncErrors(t *testing.T) {
	imports := NewImports()
	tests := []struct {
		name      string
		namespace string
		fn        any
		funcName  string
	}{
		{"empty namespace", "", func() {}, "f"},
		{"empty name", "env", func() {}, ""},
		{"not a function", "env", 42, "f"},
		{"nil handler", "env", nil, "f"},
		{"wasi namespace", wasiModuleName, func() {}, "fd_write"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, imports.RegisterFunc(tc.namespace, tc.funcName, tc.fn))
		})
	}
	assert.Zero(t, imports.Len(), "failed registrations should not be stored")
}

func TestImports_NilTable(t *testing.T) {
	var imports *Imports
	_, ok := imports.Lookup("env", "f")
	assert.False(t, ok)
	assert.Zero(t, imports.Len())
	assert.Nil(t, imports.Namespaces())
}

func TestImports_HostStruct(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, nil)

	imports := NewImports()
	require.NoError(t, imports.RegisterHost(mathHost{}))
	bin := func() []byte {
		b := wasm.NewModuleBuilder()
		addOne := b.ImportFunc("math", "add-one", []api.ValueType{i32}, []api.ValueType{i32})
		fn := b.AddFunc([]api.ValueType{i32}, []api.ValueType{i32}, nil, wasm.Concat(wasm.LocalGet(0), wasm.Call(addOne)))
		b.ExportFunc("inc", fn)
		return b.Build()
	}()

	mod, err := rt.NewModule(bin, WithImports(imports))
	require.NoError(t, err)
	_, err = mod.InitializeSync(ctx)
	require.NoError(t, err)

	out, err := mod.Call(ctx, "inc", 41)
	require.NoError(t, err)
	assert.Equal(t, int32(42), api.DecodeI32(out[0]))
}
