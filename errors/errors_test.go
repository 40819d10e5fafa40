package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseValidate,
				Kind:    KindTypeMismatch,
				Path:    []string{"add", "arg0"},
				GoType:  "string",
				WitType: "u32",
				Detail:  "cannot convert",
			},
			contains: []string{"[validate]", "type_mismatch", "add.arg0", "string", "u32", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseMemory,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[memory]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseCompile,
				Kind:   KindCompilation,
				Detail: "compile module",
				Cause:  errors.New("invalid magic number"),
			},
			contains: []string{"[compile]", "compilation", "compile module", "caused by", "invalid magic number"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				assert.Contains(t, msg, s)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Instantiation(cause)

	assert.Same(t, cause, err.Unwrap())
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseMemory,
		Kind:   KindOutOfBounds,
		Detail: "write",
	}

	assert.True(t, err.Is(&Error{Phase: PhaseMemory, Kind: KindOutOfBounds}), "same phase and kind")
	assert.False(t, err.Is(&Error{Phase: PhaseValidate, Kind: KindOutOfBounds}), "different phase")
	assert.False(t, err.Is(&Error{Phase: PhaseMemory, Kind: KindNotInitialized}), "different kind")
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestSentinels(t *testing.T) {
	tests := []struct {
		err    error
		target error
		name   string
	}{
		{NoMemory("write"), ErrNoMemory, "no memory"},
		{Capacity("read", 8, 16, 16), ErrCapacity, "capacity"},
		{Environment("compiler unavailable", nil), ErrUnsupported, "environment"},
		{Closed("runtime"), ErrClosed, "closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.target)
		})
	}

	assert.NotErrorIs(t, NoMemory("write"), ErrCapacity, "missing memory must not match the capacity sentinel")
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseValidate, KindTypeMismatch).
		Path("call", "sum").
		GoType("string").
		WitType("u32").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "u32", "string").
		Build()

	assert.Equal(t, PhaseValidate, err.Phase)
	assert.Equal(t, KindTypeMismatch, err.Kind)
	assert.Equal(t, []string{"call", "sum"}, err.Path)
	assert.Equal(t, "string", err.GoType)
	assert.Equal(t, "u32", err.WitType)
	assert.Equal(t, 42, err.Value)
	assert.ErrorIs(t, err.Cause, cause)
	assert.Equal(t, "expected u32, got string", err.Detail)
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Capacity", func(t *testing.T) {
		err := Capacity("write", 65530, 8, 65536)
		assert.Equal(t, PhaseMemory, err.Phase)
		assert.Equal(t, KindOutOfBounds, err.Kind)
		assert.Contains(t, err.Detail, "65530")
		assert.Contains(t, err.Detail, "65536")
	})

	t.Run("UnsupportedValues", func(t *testing.T) {
		err := UnsupportedValues([]string{"a"})
		assert.Equal(t, KindTypeMismatch, err.Kind)
		assert.Equal(t, "[]string", err.GoType)
	})

	t.Run("Compilation", func(t *testing.T) {
		cause := errors.New("bad section")
		err := Compilation(cause)
		assert.Equal(t, PhaseCompile, err.Phase)
		assert.Same(t, cause, errors.Unwrap(err))
	})

	t.Run("Trap", func(t *testing.T) {
		cause := errors.New("unreachable")
		err := Trap("run", cause)
		assert.Equal(t, KindTrap, err.Kind)
		assert.Contains(t, err.Error(), "call run")
		assert.Same(t, cause, errors.Unwrap(err))
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseRuntime, []string{"results"}, 10, 5)
		assert.Equal(t, 10, err.Value)
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseRuntime, "function", "sum")
		assert.Contains(t, err.Error(), `function "sum" not found`)
	})
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError([]string{"env#abort"})
		require.Len(t, err.Imports, 1)
		assert.Equal(t, "env", err.Imports[0].Namespace)
		assert.Equal(t, "abort", err.Imports[0].Function)
	})

	t.Run("multiple namespaces grouped", func(t *testing.T) {
		err := NewMissingImportsError([]string{
			"env#abort",
			"math#sqrt",
			"env#trace",
		})
		msg := err.Error()
		for _, want := range []string{"missing 3", "env:", "math:", "abort", "trace", "sqrt"} {
			assert.Contains(t, msg, want)
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError([]string{})
		assert.Contains(t, err.Error(), "no imports specified")
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError([]string{"ns#fn"})
		assert.ErrorIs(t, err, &MissingImportsError{})
	})
}
