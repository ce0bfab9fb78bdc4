package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
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
				Phase:   PhaseEncode,
				Kind:    KindTypeMismatch,
				Name:    "plus",
				GoType:  "string",
				WitType: "s32",
				Detail:  "cannot convert",
			},
			contains: []string{"[encode]", "type_mismatch", "plus", "string", "s32", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseResolve,
				Kind:  KindNotLoaded,
			},
			contains: []string{"[resolve]", "not_loaded"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseInvoke,
				Kind:   KindInvocation,
				Detail: "call failed",
				Cause:  errors.New("wasm error: unreachable"),
			},
			contains: []string{"[invoke]", "invocation", "call failed", "caused by", "unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Invocation("plus", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := NotFound(PhaseResolve, "type", "m:lib/math")

	if !errors.Is(err, &Error{Phase: PhaseResolve, Kind: KindNotFound}) {
		t.Error("errors.Is should match same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseLoad, Kind: KindNotFound}) {
		t.Error("Is should not match different phase")
	}
	if errors.Is(err, &Error{Phase: PhaseResolve, Kind: KindNotStatic}) {
		t.Error("Is should not match different kind")
	}
}

func TestIsKind(t *testing.T) {
	inner := NotFound(PhaseResolve, "method", "plus")
	wrapped := fmt.Errorf("calling: %w", Invocation("plus", inner))

	if !IsKind(wrapped, KindInvocation) {
		t.Error("IsKind should find outer kind through fmt wrapping")
	}
	if !IsKind(wrapped, KindNotFound) {
		t.Error("IsKind should find kind in cause chain")
	}
	if IsKind(wrapped, KindNotStatic) {
		t.Error("IsKind matched absent kind")
	}
	if IsKind(errors.New("plain"), KindNotFound) {
		t.Error("IsKind matched plain error")
	}
	if IsKind(nil, KindNotFound) {
		t.Error("IsKind matched nil")
	}
	if got := KindOf(wrapped); got != KindInvocation {
		t.Errorf("KindOf = %q, want %q", got, KindInvocation)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseEncode, KindTypeMismatch).
		Name("greet").
		GoType("int").
		WitType("string").
		Cause(cause).
		Detail("expected %s, got %s", "string", "int").
		Build()

	if err.Phase != PhaseEncode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseEncode)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if err.Name != "greet" {
		t.Errorf("Name = %v, want greet", err.Name)
	}
	if err.GoType != "int" || err.WitType != "string" {
		t.Errorf("GoType=%v WitType=%v", err.GoType, err.WitType)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got int" {
		t.Errorf("Detail = %v, want 'expected string, got int'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"NotLoaded", NotLoaded("type"), PhaseResolve, KindNotLoaded},
		{"NotFound", NotFound(PhaseResolve, "method", "plus"), PhaseResolve, KindNotFound},
		{"NotStatic", NotStatic("m:lib/shapes#counter"), PhaseResolve, KindNotStatic},
		{"Invocation", Invocation("plus", errors.New("trap")), PhaseInvoke, KindInvocation},
		{"InvalidArgument", InvalidArgument(PhaseResolve, "type name is empty"), PhaseResolve, KindInvalidArgument},
		{"Load", Load("/tmp/x.wasm", "read library", errors.New("no such file")), PhaseLoad, KindLoadFailed},
		{"Instantiation", Instantiation(errors.New("boom")), PhaseLoad, KindInstantiation},
		{"TypeMismatch", TypeMismatch(PhaseEncode, "a", "int", "s32"), PhaseEncode, KindTypeMismatch},
		{"Unsupported", Unsupported(PhaseEncode, "list<u8>"), PhaseEncode, KindUnsupported},
		{"InvalidData", InvalidData(PhaseDecode, "short read"), PhaseDecode, KindInvalidData},
		{"ParseFailed", ParseFailed("WIT", errors.New("eof")), PhaseParse, KindInvalidData},
		{"Registration", Registration("env", "log", errors.New("dup")), PhaseHost, KindRegistration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestMissingImportsError(t *testing.T) {
	t.Run("grouped by module", func(t *testing.T) {
		err := NewMissingImportsError([]string{
			"env#log",
			"wasi:cli/stdout@0.2.0#get-stdout",
			"env#abort",
		})
		if len(err.Imports) != 3 {
			t.Fatalf("expected 3 imports, got %d", len(err.Imports))
		}
		if err.Imports[1].Module != "wasi:cli/stdout@0.2.0" || err.Imports[1].Name != "get-stdout" {
			t.Errorf("import[1] = %+v", err.Imports[1])
		}

		msg := err.Error()
		for _, want := range []string{"missing 3", "env:", "- log", "- abort", "wasi:cli/stdout@0.2.0:"} {
			if !strings.Contains(msg, want) {
				t.Errorf("message %q does not contain %q", msg, want)
			}
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError(nil)
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := fmt.Errorf("load: %w", NewMissingImportsError([]string{"env#log"}))
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
	})
}
