package errors

import (
	"fmt"
	"testing"
)

func TestNotepadError_Error(t *testing.T) {
	err := &NotepadError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "update not found",
	}

	expected := "NOT_FOUND: update not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *NotepadError
		code   ErrorCode
		status int
	}{
		{"invalid request", NewInvalidRequest("idea is required"), ErrInvalidRequest, 400},
		{"invalid llm output", NewInvalidLLMOutput("checklist is empty"), ErrInvalidLLMOutput, 400},
		{"not found", NewNotFound("update", "01ABC"), ErrNotFound, 404},
		{"file not found", NewFileNotFound("/tmp/x.jsonl"), ErrFileNotFound, 404},
		{"busy", NewBusy(), ErrBusy, 409},
		{"cancelled", NewCancelled("export"), ErrCancelled, 499},
		{"upstream", NewUpstream(fmt.Errorf("status 502")), ErrUpstream, 500},
		{"internal", NewInternal(fmt.Errorf("disk full")), ErrInternal, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestNewNotFound_Details(t *testing.T) {
	err := NewNotFound("update", "01ABC")

	if err.Details["identifier"] != "01ABC" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "01ABC")
	}
	if err.Details["kind"] != "update" {
		t.Errorf("Details[kind] = %v, want %q", err.Details["kind"], "update")
	}
	if err.Message != "update not found: 01ABC" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestNewUpstream_NilError(t *testing.T) {
	err := NewUpstream(nil)
	if err.Message != "upstream error" {
		t.Errorf("Message = %q, want %q", err.Message, "upstream error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewBusy(), ErrBusy, true},
		{"different code", NewBusy(), ErrNotFound, false},
		{"wrapped", fmt.Errorf("submit: %w", NewInvalidRequest("x")), ErrInvalidRequest, true},
		{"plain error", fmt.Errorf("boom"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	orig := NewNotFound("update", "x")
	if got := As(fmt.Errorf("wrap: %w", orig)); got != orig {
		t.Errorf("As() = %v, want original error", got)
	}

	plain := As(fmt.Errorf("disk full"))
	if plain.Code != ErrInternal {
		t.Errorf("As(plain).Code = %q, want %q", plain.Code, ErrInternal)
	}
	if plain.Message != "disk full" {
		t.Errorf("As(plain).Message = %q", plain.Message)
	}
}
