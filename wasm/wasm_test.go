package wasm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func u32(v uint32) *uint32 { return &v }

func fixture() []byte {
	b := NewModuleBuilder()
	abort := b.ImportFunc("env", "abort", []api.ValueType{api.ValueTypeI32}, nil)
	b.ImportMemory("env", "memory", 1, u32(4))
	get := b.AddFunc(
		[]api.ValueType{api.ValueTypeI32},
		[]api.ValueType{api.ValueTypeI32},
		nil,
		Concat(LocalGet(0), []byte{OpI32Load}, MemArg(2, 0)),
	)
	b.ExportFunc("get", get)
	b.ExportFunc("abort", abort)
	return b.Build()
}

func TestCheckHeader(t *testing.T) {
	tests := []struct {
		name string
		bin  []byte
		ok   bool
	}{
		{"empty module", Empty, true},
		{"too short", []byte{0x00, 0x61}, false},
		{"bad magic", []byte{0x01, 0x61, 0x73, 0x6d, 0x01, 0, 0, 0}, false},
		{"component version", []byte{0x00, 0x61, 0x73, 0x6d, 0x0d, 0x00, 0x01, 0x00}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckHeader(tc.bin)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrBadHeader)
			}
			assert.Equal(t, tc.ok, IsModule(tc.bin))
		})
	}
}

func TestParseImports(t *testing.T) {
	imports, err := ParseImports(fixture())
	require.NoError(t, err)
	require.Len(t, imports, 2)

	fn := imports[0]
	assert.Equal(t, "env#abort", fn.Key())
	assert.Equal(t, KindFunc, fn.Kind)
	assert.Equal(t, "func", fn.KindName())

	mem := imports[1]
	assert.Equal(t, "env#memory", mem.Key())
	assert.Equal(t, KindMemory, mem.Kind)
	assert.Equal(t, uint64(1), uint64(mem.Limits.Min))
	assert.True(t, mem.Limits.HasMax)
	assert.Equal(t, uint64(4), uint64(mem.Limits.Max))
}

func TestParseImports_None(t *testing.T) {
	imports, err := ParseImports(MemoryModule("memory", 1, nil))
	require.NoError(t, err)
	assert.Empty(t, imports)
}

func TestParseImports_Truncated(t *testing.T) {
	bin := fixture()
	_, err := ParseImports(bin[:len(bin)-3])
	assert.Error(t, err)
}

func TestRewriteImports(t *testing.T) {
	orig := fixture()
	snapshot := append([]byte(nil), orig...)

	renamed, err := RewriteImports(orig, RenameTable{
		"env#memory": {"memory#7", "memory"},
		"env#abort":  {"env#3", "abort"},
	}.Renamer())
	require.NoError(t, err)
	require.Equal(t, snapshot, orig, "input was modified")

	imports, err := ParseImports(renamed)
	require.NoError(t, err)
	assert.Equal(t, "env#3#abort", imports[0].Key())
	assert.Equal(t, "memory#7#memory", imports[1].Key())
	assert.Equal(t, uint64(4), uint64(imports[1].Limits.Max))
}

func TestRewriteImports_Identity(t *testing.T) {
	orig := fixture()
	out, err := RewriteImports(orig, nil)
	require.NoError(t, err)
	assert.Equal(t, orig, out, "identity rewrite should reproduce the input")
}

func TestBuilderModulesCompile(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	provider, err := rt.InstantiateWithConfig(ctx, MemoryModule("memory", 1, u32(2)),
		wazero.NewModuleConfig().WithName("env"))
	require.NoError(t, err, "instantiate provider")
	require.NotNil(t, provider.ExportedMemory("memory"))

	_, err = rt.NewHostModuleBuilder("host").
		NewFunctionBuilder().WithFunc(func(int32) {}).Export("abort").
		Instantiate(ctx)
	require.NoError(t, err, "instantiate host")

	renamed, err := RewriteImports(fixture(), RenameTable{
		"env#abort": {"host", "abort"},
	}.Renamer())
	require.NoError(t, err)

	mod, err := rt.InstantiateWithConfig(ctx, renamed, wazero.NewModuleConfig().WithName("guest"))
	require.NoError(t, err, "instantiate guest")

	require.True(t, provider.ExportedMemory("memory").WriteUint32Le(16, 0xCAFE))
	res, err := mod.ExportedFunction("get").Call(ctx, 16)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFE), uint32(res[0]))
}
