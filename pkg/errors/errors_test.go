// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("no such file")
	e := New(CodeExtraction, "document unreadable", cause)

	if e.Code != CodeExtraction {
		t.Errorf("expected CodeExtraction, got %v", e.Code)
	}
	if e.Message != "document unreadable" {
		t.Errorf("unexpected message %q", e.Message)
	}
	if !errors.Is(e, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
	if e.StatusCode != 422 {
		t.Errorf("expected status 422, got %d", e.StatusCode)
	}
}

func TestWithContextAndAttribute(t *testing.T) {
	e := New(CodeToolFailure, "tool failed", nil).
		WithContext("tool", "read_financial_document").
		WithAttribute("stage", "analysis")

	if e.Context["tool"] != "read_financial_document" {
		t.Errorf("expected context tool to be set")
	}
	if e.Attributes["stage"] != "analysis" {
		t.Errorf("expected attribute stage to be set")
	}
	if e.Recoverable {
		t.Errorf("expected recoverable to be false by default")
	}
	if e.WithRecoverable(true).RecoverableString() != "true" {
		t.Errorf("expected recoverable string true")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		e        *Error
		expected string
	}{
		{
			name:     "with cause",
			e:        New(CodeLLMError, "secondary provider failed", errors.New("503")),
			expected: "[LLM_ERROR] secondary provider failed: 503",
		},
		{
			name:     "without cause",
			e:        New(CodeNotFound, "record not found", nil),
			expected: "[NOT_FOUND] record not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestAs(t *testing.T) {
	if As(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
	typed := New(CodeToolFailure, "failed", nil)
	if As(typed) != typed {
		t.Fatalf("expected same *Error back")
	}
	wrapped := fmt.Errorf("stage: %w", typed)
	if As(wrapped) != typed {
		t.Fatalf("expected As to find *Error through fmt wrapping")
	}
	if got := As(errors.New("plain")).Code; got != CodeInternal {
		t.Fatalf("expected CodeInternal for plain error, got %v", got)
	}
}

func TestIsCode(t *testing.T) {
	inner := New(CodeLLMError, "provider down", nil)
	outer := New(CodeStageFailed, "stage failed", fmt.Errorf("advice: %w", inner))

	if !IsCode(outer, CodeStageFailed) {
		t.Errorf("expected outer code to match")
	}
	if !IsCode(outer, CodeLLMError) {
		t.Errorf("expected nested code to match")
	}
	if IsCode(outer, CodeExtraction) {
		t.Errorf("unexpected match for CodeExtraction")
	}
	if IsCode(errors.New("plain"), CodeInternal) {
		t.Errorf("plain errors carry no code")
	}
}

func TestMarshalJSON(t *testing.T) {
	e := New(CodeToolFailure, "tool failed", errors.New("network error")).
		WithContext("tool", "assess_risk").
		WithRecoverable(true)

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("unexpected error marshaling: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unexpected error unmarshaling: %v", err)
	}
	if result["code"] != "TOOL_FAILURE" {
		t.Errorf("expected code TOOL_FAILURE, got %v", result["code"])
	}
	if result["error"] != "network error" {
		t.Errorf("expected cause in error field, got %v", result["error"])
	}
	if result["recoverable"] != true {
		t.Errorf("expected recoverable true")
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{CodeNotFound, 404},
		{CodeInvalidInput, 400},
		{CodeTimeout, 408},
		{CodeLLMError, 502},
		{CodeStageFailed, 500},
		{CodeInternal, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "test", nil).StatusCode; got != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, got)
			}
		})
	}
}
