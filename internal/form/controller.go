// Package form drives form validation: JSON schema checks on blur and submit,
// optional asynchronous per-field checks such as uniqueness lookups, and the
// rules deciding which error is shown and whether the form can be submitted.
package form

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/errgroup"
)

// Submission errors.
var (
	ErrInvalid    = errors.New("form has invalid fields")
	ErrNoChanges  = errors.New("form has no changes")
	ErrSubmitting = errors.New("form submission already in progress")
)

// MultipleErrorsMessage is shown instead of individual messages when more
// than one field is in error.
const MultipleErrorsMessage = "Please fix the highlighted fields"

// Mode selects the submit gating rules.
type Mode int

const (
	// ModeCreate forms can be submitted as soon as they are valid.
	ModeCreate Mode = iota
	// ModeEdit forms additionally require a change from the initial values.
	ModeEdit
)

// State is the validation state of a single field.
type State int

// Field states.
const (
	Untouched State = iota
	Focused
	Validating
	Valid
	Invalid
)

func (s State) String() string {
	switch s {
	case Untouched:
		return "untouched"
	case Focused:
		return "focused"
	case Validating:
		return "validating"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// AsyncValidator checks a field value against an external source. A
// non-empty message marks the value invalid; err reports that the check
// itself could not be performed.
type AsyncValidator func(ctx context.Context, value string) (message string, err error)

// Options configure a Controller.
type Options struct {
	// Schema is a JSON schema document describing the form data.
	Schema string
	Mode   Mode
	// Initial seeds the field values and, in edit mode, the snapshot used to
	// detect changes.
	Initial         map[string]any
	AsyncValidators map[string]AsyncValidator
}

// SubmitFunc receives the validated, coerced form data.
type SubmitFunc func(ctx context.Context, data map[string]any) error

// Controller holds the state of one form instance.
type Controller struct {
	mu         sync.Mutex
	schema     *gojsonschema.Schema
	types      map[string]string
	mode       Mode
	initial    map[string]any
	values     map[string]any
	states     map[string]State
	syncErrs   map[string]string
	asyncErrs  map[string]string
	validators map[string]AsyncValidator
	blurs      map[string]uint64
	submitting bool
	external   string
}

// New creates a controller from opts.
func New(opts Options) (*Controller, error) {
	schema, types, err := compile(opts.Schema)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		schema:     schema,
		types:      types,
		mode:       opts.Mode,
		values:     make(map[string]any, len(opts.Initial)),
		states:     make(map[string]State),
		syncErrs:   make(map[string]string),
		asyncErrs:  make(map[string]string),
		validators: make(map[string]AsyncValidator, len(opts.AsyncValidators)),
		blurs:      make(map[string]uint64),
	}
	for k, v := range opts.Initial {
		c.values[k] = v
	}
	for k, v := range opts.AsyncValidators {
		c.validators[k] = v
	}
	c.initial = coerce(c.values, c.types)
	return c, nil
}

// SetValue records new input for a field.
func (c *Controller) SetValue(field string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[field] = value
}

// SetValues records input for several fields at once.
func (c *Controller) SetValues(values map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range values {
		c.values[k] = v
	}
}

// Value returns the raw input of a field.
func (c *Controller) Value(field string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[field]
}

// State returns the validation state of a field.
func (c *Controller) State(field string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[field]
}

// Focus marks a field as being edited and clears any error it has.
func (c *Controller) Focus(field string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.syncErrs, field)
	delete(c.asyncErrs, field)
	c.states[field] = Focused
}

// Blur validates a field after editing. Schema validation runs first; the
// async validator runs only if that passes and the value is not blank. A
// result that arrives after the field's value changed is discarded and the
// field goes back to Focused, unless a later Blur of the same field has
// taken over its state.
func (c *Controller) Blur(ctx context.Context, field string) error {
	c.mu.Lock()
	c.blurs[field]++
	gen := c.blurs[field]
	c.states[field] = Validating
	errs, err := fieldErrors(c.schema, coerce(c.values, c.types))
	if err != nil {
		c.states[field] = Untouched
		c.mu.Unlock()
		return err
	}
	if msg, bad := errs[field]; bad {
		c.syncErrs[field] = msg
		c.states[field] = Invalid
		c.mu.Unlock()
		return nil
	}
	delete(c.syncErrs, field)

	validate := c.validators[field]
	value := text(c.values[field])
	if validate == nil || strings.TrimSpace(value) == "" {
		c.states[field] = Valid
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	msg, err := validate(ctx, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.blurs[field] != gen {
		return nil
	}
	if text(c.values[field]) != value {
		c.states[field] = Focused
		return nil
	}
	if err != nil {
		c.states[field] = Untouched
		return fmt.Errorf("validating %s: %w", field, err)
	}
	if msg != "" {
		c.asyncErrs[field] = msg
		c.states[field] = Invalid
		return nil
	}
	delete(c.asyncErrs, field)
	c.states[field] = Valid
	return nil
}

// Submit validates the whole form and, if everything passes, calls handler
// with the coerced data. All async validators with a non-blank value run
// concurrently and must all finish before the outcome is decided.
func (c *Controller) Submit(ctx context.Context, handler SubmitFunc) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitting
	}
	data := coerce(c.values, c.types)
	if c.mode == ModeEdit && reflect.DeepEqual(data, c.initial) {
		c.mu.Unlock()
		return ErrNoChanges
	}
	errs, err := fieldErrors(c.schema, data)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if len(errs) > 0 {
		for field, msg := range errs {
			c.syncErrs[field] = msg
			c.states[field] = Invalid
		}
		c.mu.Unlock()
		return ErrInvalid
	}
	c.syncErrs = make(map[string]string)

	type check struct {
		field string
		value string
		fn    AsyncValidator
		msg   string
	}
	var checks []*check
	for field, fn := range c.validators {
		value := text(c.values[field])
		if strings.TrimSpace(value) == "" {
			continue
		}
		checks = append(checks, &check{field: field, value: value, fn: fn})
	}
	c.submitting = true
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range checks {
		g.Go(func() error {
			msg, err := ch.fn(gctx, ch.value)
			if err != nil {
				return fmt.Errorf("validating %s: %w", ch.field, err)
			}
			ch.msg = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.finish(nil)
		return err
	}

	c.mu.Lock()
	failed := false
	for _, ch := range checks {
		if ch.msg != "" {
			c.asyncErrs[ch.field] = ch.msg
			c.states[ch.field] = Invalid
			failed = true
		} else {
			delete(c.asyncErrs, ch.field)
			c.states[ch.field] = Valid
		}
	}
	if failed {
		c.submitting = false
		c.mu.Unlock()
		return ErrInvalid
	}
	c.mu.Unlock()

	if err := handler(ctx, data); err != nil {
		c.finish(nil)
		return err
	}
	c.finish(data)
	return nil
}

// finish ends a submission. A non-nil snapshot becomes the new baseline for
// change detection.
func (c *Controller) finish(snapshot map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if snapshot != nil {
		c.initial = snapshot
	}
}

// Submitting reports whether a submission is in flight.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// SetExternalError sets the message shown when no field has an error, such
// as a failure reported by the layer that submitted the form.
func (c *Controller) SetExternalError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.external = msg
}

// FieldError returns the inline error of a field, if any.
func (c *Controller) FieldError(field string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fieldError(field)
}

func (c *Controller) fieldError(field string) string {
	if msg, ok := c.syncErrs[field]; ok {
		return msg
	}
	return c.asyncErrs[field]
}

// Errors returns the inline error of every field that has one.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors()
}

func (c *Controller) errors() map[string]string {
	out := make(map[string]string, len(c.syncErrs)+len(c.asyncErrs))
	for f, msg := range c.asyncErrs {
		out[f] = msg
	}
	for f, msg := range c.syncErrs {
		out[f] = msg
	}
	return out
}

// DisplayedError returns the single message to show for the whole form: the
// external error when no field is in error, the field's message when exactly
// one is, and MultipleErrorsMessage otherwise.
func (c *Controller) DisplayedError() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := c.errors()
	switch len(errs) {
	case 0:
		return c.external
	case 1:
		for _, msg := range errs {
			return msg
		}
	}
	return MultipleErrorsMessage
}

// Dirty reports whether any value differs from the initial snapshot.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !reflect.DeepEqual(coerce(c.values, c.types), c.initial)
}

// Valid reports whether the current values pass schema validation.
func (c *Controller) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid()
}

func (c *Controller) valid() bool {
	errs, err := fieldErrors(c.schema, coerce(c.values, c.types))
	return err == nil && len(errs) == 0
}

// CanSubmit reports whether the submit action should be enabled.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting || len(c.asyncErrs) > 0 || !c.valid() {
		return false
	}
	if c.mode == ModeEdit {
		return !reflect.DeepEqual(coerce(c.values, c.types), c.initial)
	}
	return true
}

// text renders a raw value the way an async validator sees it.
func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return fmt.Sprint(v)
}
