package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// ValidationError names the property whose validator rejected a value.
type ValidationError struct {
	Property string
	Value    any
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %v", e.Property, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) PropertyName() string { return e.Property }

// ErrRejected is the cause used when a boolean check returns false.
var ErrRejected = errors.New("value rejected")

// Predicate adapts a boolean check: a false result rejects the value.
func Predicate(fn func(value any) bool) ValidateFunc {
	return func(value any) error {
		if !fn(value) {
			return ErrRejected
		}
		return nil
	}
}

// ApplyTransforms runs the property's transforms in order.
func ApplyTransforms(p Property, value any) any {
	for _, fn := range p.Transform {
		if fn != nil {
			value = fn(value)
		}
	}
	return value
}

// ApplyValidation runs the property's validators in order and stops at the
// first rejection.
func ApplyValidation(p Property, value any) error {
	for _, fn := range p.Validate {
		if fn == nil {
			continue
		}
		if err := fn(value); err != nil {
			return &ValidationError{Property: p.Name, Value: value, Err: err}
		}
	}
	return nil
}

var (
	namedMu         sync.RWMutex
	namedTransforms = map[string]TransformFunc{
		"trim":  mapString(strings.TrimSpace),
		"lower": mapString(strings.ToLower),
		"upper": mapString(strings.ToUpper),
	}
	namedValidators = map[string]ValidateFunc{
		"nonempty": Predicate(func(v any) bool {
			s, ok := v.(string)
			return v != nil && (!ok || strings.TrimSpace(s) != "")
		}),
		"email": Predicate(func(v any) bool {
			s, ok := v.(string)
			return ok && emailRe.MatchString(s)
		}),
		"positive": Predicate(func(v any) bool {
			f, ok := asFloat(v)
			return ok && f > 0
		}),
	}
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// RegisterTransform makes a transform available to YAML models by name.
func RegisterTransform(name string, fn TransformFunc) {
	namedMu.Lock()
	defer namedMu.Unlock()
	namedTransforms[name] = fn
}

// RegisterValidator makes a validator available to YAML models by name.
func RegisterValidator(name string, fn ValidateFunc) {
	namedMu.Lock()
	defer namedMu.Unlock()
	namedValidators[name] = fn
}

func lookupTransform(name string) (TransformFunc, bool) {
	namedMu.RLock()
	defer namedMu.RUnlock()
	fn, ok := namedTransforms[name]
	return fn, ok
}

func lookupValidator(name string) (ValidateFunc, bool) {
	namedMu.RLock()
	defer namedMu.RUnlock()
	fn, ok := namedValidators[name]
	return fn, ok
}

// resolveNamed attaches the named transforms and validators of p.
func resolveNamed(p *Property) error {
	for _, name := range p.TransformNames {
		fn, ok := lookupTransform(name)
		if !ok {
			return fmt.Errorf("property %q: unknown transform %q", p.Name, name)
		}
		p.Transform = append(p.Transform, fn)
	}
	for _, name := range p.ValidateNames {
		fn, ok := lookupValidator(name)
		if !ok {
			return fmt.Errorf("property %q: unknown validator %q", p.Name, name)
		}
		p.Validate = append(p.Validate, fn)
	}
	return nil
}

func mapString(fn func(string) string) TransformFunc {
	return func(v any) any {
		if s, ok := v.(string); ok {
			return fn(s)
		}
		return v
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
