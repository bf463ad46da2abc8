package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestRecover_WithPanic tests the Recover function when a panic occurs
func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "TestOperation" {
		t.Errorf("Expected operation 'TestOperation', got '%s'", panicErr.Operation)
	}
	if panicErr.PanicValue != "test panic message" {
		t.Errorf("Expected panic value 'test panic message', got '%v'", panicErr.PanicValue)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}

	expectedMsg := "panic in TestOperation: test panic message"
	if panicErr.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, panicErr.Error())
	}
}

// TestRecover_WithoutPanic tests the Recover function when no panic occurs
func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

// TestRecover_WithExistingError tests Recover when function has existing error and panic occurs
func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		err = originalErr
		panic("panic after error")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic with existing error, got nil")
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "panic in TestOperation") {
		t.Errorf("Error message should contain panic info: %s", errMsg)
	}
	if !strings.Contains(errMsg, "original error") {
		t.Errorf("Error message should contain original error: %s", errMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("Should be able to identify original error with errors.Is")
	}
}

func TestSafeExecute(t *testing.T) {
	functionErr := fmt.Errorf("function error")

	tests := []struct {
		name      string
		fn        func() error
		wantNil   bool
		wantPanic bool
		wantErr   error
	}{
		{
			name:    "success",
			fn:      func() error { return nil },
			wantNil: true,
		},
		{
			name:    "function error is returned unchanged",
			fn:      func() error { return functionErr },
			wantErr: functionErr,
		},
		{
			name:      "string panic",
			fn:        func() error { panic("boom") },
			wantPanic: true,
		},
		{
			name: "index out of range",
			fn: func() error {
				var s []int
				_ = s[3]
				return nil
			},
			wantPanic: true,
		},
		{
			name: "nil map write",
			fn: func() error {
				var m map[string]int
				m["x"] = 1
				return nil
			},
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("model fit", tt.fn)
			if tt.wantNil {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}
			if tt.wantErr != nil && err != tt.wantErr {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantPanic {
				var panicErr *PanicError
				if !errors.As(err, &panicErr) {
					t.Fatalf("expected PanicError, got %T", err)
				}
				if panicErr.Operation != "model fit" {
					t.Errorf("unexpected operation %q", panicErr.Operation)
				}
				if !strings.Contains(panicErr.String(), "Stack trace:") {
					t.Error("String() should include the stack trace")
				}
			}
		})
	}
}

func TestPanicError_UnwrapsErrorValue(t *testing.T) {
	sentinel := New("sentinel")

	err := SafeExecute("op", func() error {
		panic(sentinel)
	})

	if !Is(err, sentinel) {
		t.Errorf("expected panic value to be reachable through Unwrap, got %v", err)
	}

	err = SafeExecute("op", func() error {
		panic(42)
	})
	var panicErr *PanicError
	if !As(err, &panicErr) {
		t.Fatalf("expected PanicError, got %T", err)
	}
	if panicErr.Unwrap() != nil {
		t.Error("non-error panic values should not unwrap")
	}
}
