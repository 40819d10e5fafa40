package runtime

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-module/errors"
)

type funcSignature struct {
	params  []wit.Type
	results []wit.Type
}

// signatures parses WIT text lazily on first lookup.
type signatures struct {
	err   error
	funcs map[string]*funcSignature
	text  string
	once  sync.Once
}

func newSignatures(text string) *signatures {
	return &signatures{text: text}
}

func (s *signatures) lookup(name string) (*funcSignature, error) {
	if s.text == "" {
		return nil, errors.NotInitialized(errors.PhaseParse, "signatures")
	}
	s.once.Do(func() {
		s.funcs, s.err = parseSignatures(s.text)
	})
	if s.err != nil {
		return nil, s.err
	}
	sig, ok := s.funcs[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseRuntime, "function", name)
	}
	return sig, nil
}

var funcPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// parseSignatures extracts function signatures from WIT text.
// Pattern: [export] name: func(params) -> result;
func parseSignatures(witText string) (map[string]*funcSignature, error) {
	funcs := make(map[string]*funcSignature)

	for _, match := range funcPattern.FindAllStringSubmatch(witText, -1) {
		name := match[1]
		paramsStr := strings.TrimSpace(match[2])
		resultStr := strings.TrimSpace(match[3])

		sig := &funcSignature{}
		for _, p := range splitParams(paramsStr) {
			typStr := stripName(p)
			t, err := parseWitType(typStr)
			if err != nil {
				return nil, errors.ParseFailed("param type "+typStr, err)
			}
			sig.params = append(sig.params, t)
		}

		if resultStr != "" && resultStr != "()" {
			parts := []string{resultStr}
			if strings.HasPrefix(resultStr, "(") && strings.HasSuffix(resultStr, ")") {
				parts = splitParams(resultStr[1 : len(resultStr)-1])
			}
			for _, part := range parts {
				part = stripName(part)
				t, err := parseWitType(part)
				if err != nil {
					return nil, errors.ParseFailed("result type "+part, err)
				}
				sig.results = append(sig.results, t)
			}
		}

		funcs[name] = sig
	}

	if len(funcs) == 0 {
		return nil, errors.InvalidData(errors.PhaseParse, nil, "no functions found in WIT text")
	}
	return funcs, nil
}

// splitParams splits a parameter list, handling nested parens.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	flush := func() {
		if str := strings.TrimSpace(current.String()); str != "" {
			result = append(result, str)
		}
		current.Reset()
	}

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				flush()
				continue
			}
		}
		current.WriteRune(ch)
	}
	flush()
	return result
}

// stripName drops a leading "name:" from a parameter or named result.
func stripName(p string) string {
	if idx := strings.Index(p, ":"); idx != -1 {
		return strings.TrimSpace(p[idx+1:])
	}
	return p
}

func parseWitType(s string) (wit.Type, error) {
	return wit.ParseType(strings.TrimSpace(s))
}

// FunctionTypes returns the WIT param and result types of an export.
func (m *Module) FunctionTypes(name string) ([]wit.Type, []wit.Type, error) {
	sig, err := m.sigs.lookup(name)
	if err != nil {
		return nil, nil, err
	}
	return sig.params, sig.results, nil
}

// CallWIT calls an export using its WIT signature to convert Go arguments
// and results. Only scalar WIT types are supported.
func (m *Module) CallWIT(ctx context.Context, name string, args ...any) ([]any, error) {
	sig, err := m.sigs.lookup(name)
	if err != nil {
		return nil, err
	}
	if len(args) != len(sig.params) {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path(name).
			Detail("expected %d arguments, got %d", len(sig.params), len(args)).
			Build()
	}

	params := make([]uint64, len(args))
	for i, a := range args {
		if params[i], err = lower(sig.params[i], a); err != nil {
			return nil, err
		}
	}

	raw, err := m.Call(ctx, name, params...)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(sig.results) {
		return nil, errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
			Path(name).
			Detail("signature declares %d results, function returned %d", len(sig.results), len(raw)).
			Build()
	}

	out := make([]any, len(raw))
	for i, r := range raw {
		if out[i], err = lift(sig.results[i], r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func witName(t wit.Type) string {
	return strings.ToLower(strings.TrimPrefix(fmt.Sprintf("%T", t), "wit."))
}

// lower converts a Go scalar to the core wasm value of t.
func lower(t wit.Type, v any) (uint64, error) {
	rv := reflect.ValueOf(v)
	mismatch := errors.TypeMismatch(errors.PhaseValidate, nil, fmt.Sprintf("%T", v), witName(t))
	mismatch.Value = v

	if _, ok := t.(wit.Bool); ok {
		b, ok := v.(bool)
		if !ok {
			return 0, mismatch
		}
		if b {
			return 1, nil
		}
		return 0, nil
	}

	var i int64
	var u uint64
	var f float64
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i = rv.Int()
		u, f = uint64(i), float64(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u = rv.Uint()
		i, f = int64(u), float64(u)
	case reflect.Float32, reflect.Float64:
		f = rv.Float()
		i, u = int64(f), uint64(f)
	default:
		return 0, mismatch
	}

	switch t.(type) {
	case wit.S8, wit.S16, wit.S32:
		return api.EncodeI32(int32(i)), nil
	case wit.U8, wit.U16, wit.U32, wit.Char:
		return api.EncodeU32(uint32(u)), nil
	case wit.S64:
		return api.EncodeI64(i), nil
	case wit.U64:
		return u, nil
	case wit.F32:
		return api.EncodeF32(float32(f)), nil
	case wit.F64:
		return api.EncodeF64(f), nil
	}
	return 0, errors.Unsupported(errors.PhaseRuntime, "wit type "+witName(t))
}

// lift converts a core wasm value to the Go scalar of t.
func lift(t wit.Type, raw uint64) (any, error) {
	switch t.(type) {
	case wit.Bool:
		return uint32(raw) != 0, nil
	case wit.S8:
		return int8(api.DecodeI32(raw)), nil
	case wit.U8:
		return uint8(api.DecodeU32(raw)), nil
	case wit.S16:
		return int16(api.DecodeI32(raw)), nil
	case wit.U16:
		return uint16(api.DecodeU32(raw)), nil
	case wit.S32:
		return api.DecodeI32(raw), nil
	case wit.U32:
		return api.DecodeU32(raw), nil
	case wit.Char:
		return rune(api.DecodeU32(raw)), nil
	case wit.S64:
		return int64(raw), nil
	case wit.U64:
		return raw, nil
	case wit.F32:
		return api.DecodeF32(raw), nil
	case wit.F64:
		return api.DecodeF64(raw), nil
	}
	return nil, errors.Unsupported(errors.PhaseRuntime, "wit type "+witName(t))
}
