package form

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testSchema = `{
	"type": "object",
	"required": ["brand", "model", "size"],
	"properties": {
		"brand": {"type": "string", "minLength": 1},
		"model": {"type": "string", "minLength": 1},
		"style_code": {"type": "string", "maxLength": 20},
		"size": {"type": "number", "minimum": 1},
		"condition": {"type": ["number", "null"], "minimum": 0, "maximum": 10, "multipleOf": 0.5},
		"pairs": {"type": "integer"},
		"deadstock": {"type": "boolean"}
	}
}`

type countingValidator struct {
	calls atomic.Int32
	msg   string
}

func (v *countingValidator) validate(ctx context.Context, value string) (string, error) {
	v.calls.Add(1)
	return v.msg, nil
}

func newController(t *testing.T, opts Options) *Controller {
	t.Helper()
	if opts.Schema == "" {
		opts.Schema = testSchema
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func validValues() map[string]any {
	return map[string]any{"brand": "nike", "model": "Air Max 90", "size": "42"}
}

func TestNewRejectsBadSchema(t *testing.T) {
	if _, err := New(Options{Schema: `{"type": 12}`}); err == nil {
		t.Error("expected error for invalid schema")
	}
}

func TestBlurRunsSchemaValidation(t *testing.T) {
	c := newController(t, Options{})
	c.SetValues(map[string]any{"brand": "nike", "model": "Air Max 90", "size": "abc"})

	if err := c.Blur(context.Background(), "size"); err != nil {
		t.Fatalf("Blur: %v", err)
	}
	if c.State("size") != Invalid {
		t.Errorf("expected size invalid, got %s", c.State("size"))
	}
	if c.FieldError("size") == "" {
		t.Error("expected size error message")
	}

	c.SetValue("size", "42.5")
	c.Blur(context.Background(), "size")
	if c.State("size") != Valid || c.FieldError("size") != "" {
		t.Errorf("expected size valid, got %s %q", c.State("size"), c.FieldError("size"))
	}
}

func TestBlurRequiredField(t *testing.T) {
	c := newController(t, Options{})
	c.SetValues(map[string]any{"brand": "nike", "model": "Dunk", "size": "   "})
	c.Blur(context.Background(), "size")
	if got := c.FieldError("size"); got != "size is required" {
		t.Errorf("expected required message, got %q", got)
	}
}

func TestBlurSkipsAsyncForBlankValue(t *testing.T) {
	v := &countingValidator{msg: "taken"}
	c := newController(t, Options{AsyncValidators: map[string]AsyncValidator{"style_code": v.validate}})
	c.SetValues(validValues())

	for _, value := range []string{"", "   ", "\t\n"} {
		c.SetValue("style_code", value)
		if err := c.Blur(context.Background(), "style_code"); err != nil {
			t.Fatalf("Blur: %v", err)
		}
	}
	if n := v.calls.Load(); n != 0 {
		t.Errorf("expected async validator not to run, ran %d times", n)
	}
	if c.State("style_code") != Valid {
		t.Errorf("expected blank optional field valid, got %s", c.State("style_code"))
	}
}

func TestBlurSkipsAsyncWhenSchemaFails(t *testing.T) {
	v := &countingValidator{}
	c := newController(t, Options{AsyncValidators: map[string]AsyncValidator{"style_code": v.validate}})
	c.SetValues(validValues())
	c.SetValue("style_code", "THIS-STYLE-CODE-IS-TOO-LONG")

	c.Blur(context.Background(), "style_code")
	if v.calls.Load() != 0 {
		t.Error("expected async validator to be skipped after schema failure")
	}
	if c.State("style_code") != Invalid {
		t.Errorf("expected invalid, got %s", c.State("style_code"))
	}
}

func TestBlurAsyncError(t *testing.T) {
	v := &countingValidator{msg: "already in your collection"}
	c := newController(t, Options{AsyncValidators: map[string]AsyncValidator{"style_code": v.validate}})
	c.SetValues(validValues())
	c.SetValue("style_code", "DD1391-100")

	c.Blur(context.Background(), "style_code")
	if v.calls.Load() != 1 {
		t.Fatalf("expected one async call, got %d", v.calls.Load())
	}
	if c.FieldError("style_code") != "already in your collection" {
		t.Errorf("unexpected field error %q", c.FieldError("style_code"))
	}
	if c.DisplayedError() != "already in your collection" {
		t.Errorf("unexpected displayed error %q", c.DisplayedError())
	}
	if c.CanSubmit() {
		t.Error("expected submit disabled while an async error is set")
	}
}

func TestBlurAsyncBackendFailure(t *testing.T) {
	backend := errors.New("connection refused")
	c := newController(t, Options{AsyncValidators: map[string]AsyncValidator{
		"style_code": func(ctx context.Context, value string) (string, error) { return "", backend },
	}})
	c.SetValues(validValues())
	c.SetValue("style_code", "DD1391-100")

	if err := c.Blur(context.Background(), "style_code"); !errors.Is(err, backend) {
		t.Errorf("expected backend error, got %v", err)
	}
	if c.FieldError("style_code") != "" {
		t.Error("backend failure must not become a field error")
	}
}

func TestBlurDiscardsStaleAsyncResult(t *testing.T) {
	var c *Controller
	c = newController(t, Options{AsyncValidators: map[string]AsyncValidator{
		"style_code": func(ctx context.Context, value string) (string, error) {
			// The user keeps typing while the lookup is in flight.
			c.SetValue("style_code", value+"X")
			return "taken", nil
		},
	}})
	c.SetValues(validValues())
	c.SetValue("style_code", "DD1391")

	c.Blur(context.Background(), "style_code")
	if c.FieldError("style_code") != "" {
		t.Errorf("expected stale result discarded, got %q", c.FieldError("style_code"))
	}
	if c.State("style_code") != Focused {
		t.Errorf("expected focused after discarded result, got %s", c.State("style_code"))
	}
}

func TestLaterBlurOwnsFieldState(t *testing.T) {
	var c *Controller
	calls := 0
	c = newController(t, Options{AsyncValidators: map[string]AsyncValidator{
		"style_code": func(ctx context.Context, value string) (string, error) {
			calls++
			if calls == 1 {
				// A corrected value is blurred before the first lookup returns.
				c.SetValue("style_code", "DD1391-100")
				if err := c.Blur(ctx, "style_code"); err != nil {
					t.Errorf("nested Blur: %v", err)
				}
				return "taken", nil
			}
			return "", nil
		},
	}})
	c.SetValues(validValues())
	c.SetValue("style_code", "DD1391")

	if err := c.Blur(context.Background(), "style_code"); err != nil {
		t.Fatalf("Blur: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 lookups, got %d", calls)
	}
	if c.State("style_code") != Valid || c.FieldError("style_code") != "" {
		t.Errorf("expected later result to stand, got %s %q", c.State("style_code"), c.FieldError("style_code"))
	}
}

func TestFocusClearsOnlyThatField(t *testing.T) {
	v := &countingValidator{msg: "taken"}
	c := newController(t, Options{AsyncValidators: map[string]AsyncValidator{"style_code": v.validate}})
	c.SetValues(map[string]any{"brand": "", "model": "Dunk", "size": "42", "style_code": "DD1391"})

	c.Blur(context.Background(), "brand")
	c.Blur(context.Background(), "style_code")
	if c.FieldError("brand") == "" || c.FieldError("style_code") == "" {
		t.Fatalf("expected both fields in error, got %v", c.Errors())
	}

	c.Focus("style_code")
	if c.FieldError("style_code") != "" {
		t.Error("expected focus to clear the async error")
	}
	if c.State("style_code") != Focused {
		t.Errorf("expected focused, got %s", c.State("style_code"))
	}
	if c.FieldError("brand") == "" {
		t.Error("expected other field's error to remain")
	}

	// Focus clears without any new input.
	c.Focus("brand")
	if c.FieldError("brand") != "" {
		t.Error("expected focus to clear the schema error")
	}
	if len(c.Errors()) != 0 {
		t.Errorf("expected no errors, got %v", c.Errors())
	}
}

func TestDisplayedErrorPolicy(t *testing.T) {
	c := newController(t, Options{})
	c.SetExternalError("invalid session")
	if got := c.DisplayedError(); got != "invalid session" {
		t.Errorf("zero errors: got %q", got)
	}

	c.SetValues(map[string]any{"brand": "", "model": "Dunk", "size": "42"})
	c.Blur(context.Background(), "brand")
	if got := c.DisplayedError(); got != c.FieldError("brand") || got == "" {
		t.Errorf("one error: got %q", got)
	}

	c.SetValue("size", "-1")
	c.Blur(context.Background(), "size")
	if got := c.DisplayedError(); got != MultipleErrorsMessage {
		t.Errorf("two errors: got %q", got)
	}
	// Inline errors are still individual.
	if len(c.Errors()) != 2 {
		t.Errorf("expected 2 inline errors, got %v", c.Errors())
	}
}

func TestSubmitPassesCoercedData(t *testing.T) {
	c := newController(t, Options{})
	c.SetValues(validValues())
	c.SetValues(map[string]any{"condition": "8.5", "pairs": "2", "deadstock": "true"})

	var got map[string]any
	err := c.Submit(context.Background(), func(ctx context.Context, data map[string]any) error {
		got = data
		return nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got["size"] != 42.0 {
		t.Errorf("expected size 42.0, got %#v", got["size"])
	}
	if got["condition"] != 8.5 {
		t.Errorf("expected condition 8.5, got %#v", got["condition"])
	}
	if got["pairs"] != int64(2) {
		t.Errorf("expected pairs int64(2), got %#v", got["pairs"])
	}
	if got["deadstock"] != true {
		t.Errorf("expected deadstock true, got %#v", got["deadstock"])
	}
}

func TestSubmitRejectsSchemaErrors(t *testing.T) {
	c := newController(t, Options{})
	c.SetValues(map[string]any{"brand": "nike"})

	called := false
	err := c.Submit(context.Background(), func(ctx context.Context, data map[string]any) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if called {
		t.Error("handler must not run for invalid data")
	}
	if c.DisplayedError() != MultipleErrorsMessage {
		t.Errorf("expected multiple errors message, got %q", c.DisplayedError())
	}
}

func TestSubmitRunsAsyncValidatorsConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	both := make(chan struct{})
	go func() {
		started.Wait()
		close(both)
	}()

	// Each validator waits until the other has started; run sequentially
	// they would time out.
	barrier := func(msg string) AsyncValidator {
		return func(ctx context.Context, value string) (string, error) {
			started.Done()
			select {
			case <-both:
				return msg, nil
			case <-time.After(2 * time.Second):
				return "", errors.New("validators did not overlap")
			}
		}
	}

	c := newController(t, Options{AsyncValidators: map[string]AsyncValidator{
		"style_code": barrier("style code taken"),
		"model":      barrier(""),
	}})
	c.SetValues(validValues())
	c.SetValue("style_code", "DD1391")

	called := false
	err := c.Submit(context.Background(), func(ctx context.Context, data map[string]any) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if called {
		t.Error("handler must not run when an async validator fails")
	}
	if c.FieldError("style_code") != "style code taken" {
		t.Errorf("unexpected style_code error %q", c.FieldError("style_code"))
	}
	if c.FieldError("model") != "" {
		t.Errorf("unexpected model error %q", c.FieldError("model"))
	}
	if c.Submitting() {
		t.Error("expected submission to be finished")
	}
}

func TestSubmitHandlerError(t *testing.T) {
	c := newController(t, Options{})
	c.SetValues(validValues())
	boom := errors.New("insert failed")

	if err := c.Submit(context.Background(), func(ctx context.Context, data map[string]any) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected handler error, got %v", err)
	}
	if c.Submitting() || !c.CanSubmit() {
		t.Error("expected form to be submittable again")
	}
}

func TestCreateModeGating(t *testing.T) {
	c := newController(t, Options{Mode: ModeCreate})
	if c.CanSubmit() {
		t.Error("expected empty create form to be disabled")
	}
	c.SetValues(validValues())
	if !c.CanSubmit() {
		t.Error("expected valid create form to be enabled")
	}
}

func TestEditModeRequiresChange(t *testing.T) {
	initial := map[string]any{"brand": "nike", "model": "Air Max 90", "size": 42.0}
	c := newController(t, Options{Mode: ModeEdit, Initial: initial})

	if !c.Valid() {
		t.Fatal("expected initial values to be valid")
	}
	if c.CanSubmit() {
		t.Error("expected unchanged edit form to be disabled")
	}
	if err := c.Submit(context.Background(), func(context.Context, map[string]any) error { return nil }); !errors.Is(err, ErrNoChanges) {
		t.Errorf("expected ErrNoChanges, got %v", err)
	}

	// Text input equal to the initial number is not a change.
	c.SetValue("size", "42")
	if c.Dirty() {
		t.Error("expected equal coerced value not to be a change")
	}

	c.SetValue("size", "43")
	if !c.Dirty() || !c.CanSubmit() {
		t.Error("expected changed edit form to be enabled")
	}
	if err := c.Submit(context.Background(), func(context.Context, map[string]any) error { return nil }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// The submitted values become the new baseline.
	if c.Dirty() {
		t.Error("expected form clean after a successful submit")
	}
}
