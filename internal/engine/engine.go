// Package engine defines the storage backend contract and the dispatcher
// that routes requests to a registered backend.
package engine

import (
	"context"
	"fmt"

	"Ystore/internal/request"
	"Ystore/internal/response"
)

// Engine is a storage backend. Each method receives the request snapshot,
// including the bound model when there is one.
type Engine interface {
	// Name identifies the engine in routes and diagnostics.
	Name() string

	Options(ctx context.Context, m request.Meta) (*response.Response, error)
	Get(ctx context.Context, m request.Meta) (*response.Response, error)
	Post(ctx context.Context, m request.Meta) (*response.Response, error)
	Put(ctx context.Context, m request.Meta) (*response.Response, error)
	Patch(ctx context.Context, m request.Meta) (*response.Response, error)
	Delete(ctx context.Context, m request.Meta) (*response.Response, error)
}

// Error wraps a failure reported by the storage behind an engine.
type Error struct {
	Engine   string
	Kind     request.Kind
	Resource string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Engine, e.Kind, e.Resource, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap ties err to the engine and request it came from. A nil err stays nil.
func Wrap(engine string, m request.Meta, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Engine: engine, Kind: m.Kind, Resource: m.Resource, Err: err}
}

func call(ctx context.Context, e Engine, m request.Meta) (*response.Response, error) {
	switch m.Kind {
	case request.KindOptions:
		return e.Options(ctx, m)
	case request.KindGet:
		return e.Get(ctx, m)
	case request.KindPost:
		return e.Post(ctx, m)
	case request.KindPut:
		return e.Put(ctx, m)
	case request.KindPatch:
		return e.Patch(ctx, m)
	case request.KindDelete:
		return e.Delete(ctx, m)
	}
	return nil, &request.ConfigurationError{Kind: m.Kind, Resource: m.Resource, Msg: "unknown request kind"}
}
