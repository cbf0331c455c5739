package errors

import (
	"errors"
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

	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}

	expectedMsg := "panic in TestOperation: test panic message"
	if panicErr.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, panicErr.Error())
	}

	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("Expected String() to include the stack trace")
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

// TestRecover_WithExistingError tests that an existing error is preserved
func TestRecover_WithExistingError(t *testing.T) {
	original := errors.New("original")
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		err = original
		panic("boom")
	}

	err := testFunc()
	if !errors.Is(err, original) {
		t.Fatalf("Expected original error to be wrapped, got %v", err)
	}
}

// TestSafeExecute tests SafeExecute with an index out of range panic
func TestSafeExecute(t *testing.T) {
	err := SafeExecute("tree traversal", func() error {
		var nodes []int
		_ = nodes[3]
		return nil
	})

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}

	if err := SafeExecute("noop", func() error { return nil }); err != nil {
		t.Fatalf("Expected nil, got %v", err)
	}
}
