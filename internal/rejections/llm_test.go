package rejections

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type fakeCaller struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeCaller) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", nil
}

func TestExecutorRetriesBadJSONThenSucceeds(t *testing.T) {
	caller := &fakeCaller{responses: []string{"not-json", `{"value":3}`}}
	exec := NewJSONExecutor(caller)
	var out struct {
		Value int `json:"value"`
	}
	err := exec.Run(context.Background(), "test_op", "prompt", &out, func() error { return nil })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Value != 3 {
		t.Fatalf("value = %d", out.Value)
	}
	if len(caller.prompts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(caller.prompts))
	}
}

func TestExecutorStripsCodeFences(t *testing.T) {
	caller := &fakeCaller{responses: []string{"```json\n{\"value\":7}\n```"}}
	var out struct {
		Value int `json:"value"`
	}
	if err := NewJSONExecutor(caller).Run(context.Background(), "test_op", "p", &out, func() error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Value != 7 {
		t.Fatalf("value = %d", out.Value)
	}
}

func TestExecutorValidationFeedbackIncludedInRetry(t *testing.T) {
	caller := &fakeCaller{responses: []string{`{"value":0}`, `{"value":5}`}}
	var out struct {
		Value int `json:"value"`
	}
	err := NewJSONExecutor(caller).Run(context.Background(), "test_op", "p", &out, func() error {
		if out.Value == 0 {
			return errors.New("value must be positive")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(caller.prompts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(caller.prompts))
	}
	if got := caller.prompts[1]; !strings.Contains(got, "value must be positive") {
		t.Fatalf("retry prompt missing validation feedback: %q", got)
	}
}

func TestExecutorExhaustedValidationIsSchemaError(t *testing.T) {
	caller := &fakeCaller{responses: []string{`{}`, `{}`, `{}`}}
	var out struct{}
	err := NewJSONExecutor(caller).Run(context.Background(), "test_op", "p", &out, func() error {
		return errors.New("always invalid")
	})
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if se.Op != "test_op" {
		t.Fatalf("op = %q", se.Op)
	}
}

func TestExecutorClientErrorDoesNotRetry(t *testing.T) {
	caller := &fakeCaller{errs: []error{errors.New("status code: 400 bad request")}}
	var out struct{}
	err := NewJSONExecutor(caller).Run(context.Background(), "test_op", "p", &out, func() error { return nil })
	if err == nil {
		t.Fatal("expected transport error")
	}
	if len(caller.prompts) != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry on 4xx)", len(caller.prompts))
	}
}
