package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "invalid input")

	if err.Code != CodeValidation {
		t.Errorf("expected code=%s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "invalid input" {
		t.Errorf("expected message='invalid input', got %s", err.Message)
	}
	if len(err.Stack) == 0 {
		t.Error("expected stack trace to be captured")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want []string
	}{
		{
			name: "code and message",
			err:  New(CodeNotFound, "missing"),
			want: []string{"[NOT_FOUND]", "missing"},
		},
		{
			name: "with op",
			err:  Wrap(fmt.Errorf("boom"), "render.extract", "extraction blew up"),
			want: []string{"render.extract:", "extraction blew up", "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.err.Error()
			for _, w := range tt.want {
				if !strings.Contains(s, w) {
					t.Errorf("expected %q to contain %q", s, w)
				}
			}
		})
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := New(CodeAlreadyExists, "map already exists")
	outer := Wrap(inner, "render.run", "precondition failed")

	if outer.Code != CodeAlreadyExists {
		t.Errorf("expected wrapped error to keep code %s, got %s", CodeAlreadyExists, outer.Code)
	}
	if !errors.Is(outer, inner) {
		t.Error("expected errors.Is to match through wrap")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "op", "msg") != nil {
		t.Error("expected Wrap(nil) to return nil")
	}
	if WrapWithCode(nil, CodeInternal, "op", "msg") != nil {
		t.Error("expected WrapWithCode(nil) to return nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, 400},
		{CodeBadRequest, 400},
		{CodeNotFound, 404},
		{CodeConflict, 409},
		{CodeAlreadyExists, 409},
		{CodeFailedPrecond, 412},
		{CodeUpstream, 502},
		{CodeUnavailable, 503},
		{CodeTimeout, 504},
		{CodeInternal, 500},
		{Code("SOMETHING_ELSE"), 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := (&Error{Code: tt.code}).HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus(%s)=%d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(CodeTimeout, "slow")); got != CodeTimeout {
		t.Errorf("expected %s, got %s", CodeTimeout, got)
	}
	if got := GetCode(fmt.Errorf("plain")); got != CodeInternal {
		t.Errorf("expected plain errors to map to %s, got %s", CodeInternal, got)
	}
}

func TestFields(t *testing.T) {
	err := NotFound("archive", "arc_42")
	fields := GetFields(err)
	if fields["resource"] != "archive" || fields["id"] != "arc_42" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestIsHelpers(t *testing.T) {
	if !IsNotFound(NotFound("map", "x")) {
		t.Error("expected IsNotFound")
	}
	if !IsConflict(AlreadyExists("map", "x")) {
		t.Error("expected IsConflict for AlreadyExists")
	}
	if IsConflict(New(CodeTimeout, "t")) {
		t.Error("did not expect IsConflict for timeout")
	}
}
