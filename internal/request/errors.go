package request

import "fmt"

// ArgumentError reports a builder call with an argument of the wrong kind or
// shape. The call that raised it is not applied.
type ArgumentError struct {
	Method string
	Msg    string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("request: %s: %s", e.Method, e.Msg)
}

// KeyError reports a header key that is not a string.
type KeyError struct {
	Method string
	Key    any
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("request: %s: header key %v (%T) is not a string", e.Method, e.Key, e.Key)
}

// ConfigurationError is raised at dispatch time when a request cannot be
// routed or executed as configured.
type ConfigurationError struct {
	Kind     Kind
	Resource string
	Msg      string
}

func (e *ConfigurationError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("request: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("request: %s %s: %s", e.Kind, e.Resource, e.Msg)
}

func argError(method, format string, args ...any) *ArgumentError {
	return &ArgumentError{Method: method, Msg: fmt.Sprintf(format, args...)}
}
