package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeAlreadyExists, "check self already registered")

	var e *E
	if !errors.As(err, &e) {
		t.Fatal("error should be of type *E")
	}
	if e.Code != CodeAlreadyExists {
		t.Errorf("Code = %s, want %s", e.Code, CodeAlreadyExists)
	}
	if got, want := err.Error(), "ALREADY_EXISTS: check self already registered"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial failed")
	err := Wrap(CodeUnavailable, "obsx.build", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match the cause")
	}
	if got, want := err.Error(), "UNAVAILABLE: obsx.build: dial failed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapf(t *testing.T) {
	cause := errors.New("bad url")
	err := Wrapf(CodeInvalidArgument, "logx.open", cause, "sink %d", 2)

	if got, want := err.Error(), "INVALID_ARGUMENT: logx.open: sink 2: bad url"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: errors.New("x"), want: ""},
		{name: "structured", err: New(CodeNotFound, "x"), want: CodeNotFound},
		{name: "wrapped by fmt", err: fmt.Errorf("outer: %w", Newf(CodeInternal, "inner %d", 1)), want: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
			if tt.want != "" && !IsCode(tt.err, tt.want) {
				t.Errorf("IsCode(%v, %s) = false", tt.err, tt.want)
			}
		})
	}
}
