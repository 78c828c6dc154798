package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"Ystore/internal/logger"
	"Ystore/internal/request"
	"Ystore/internal/response"
)

// Dispatcher resolves the engine for a request's resource and forwards the
// request to it. Responses and engine errors are returned unchanged.
type Dispatcher struct {
	mu       sync.RWMutex
	engines  map[string]Engine
	routes   map[string]string
	fallback string
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		engines: map[string]Engine{},
		routes:  map[string]string{},
	}
}

// Default is the process-wide dispatcher used by the package helpers.
var Default = NewDispatcher()

// Register adds e under its name, replacing an engine with the same name.
// The first registered engine becomes the default.
func (d *Dispatcher) Register(e Engine) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engines[e.Name()] = e
	if d.fallback == "" {
		d.fallback = e.Name()
	}
}

// Route sends requests for resource to the named engine.
func (d *Dispatcher) Route(resource, engineName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if engineName == "" {
		delete(d.routes, resource)
		return
	}
	d.routes[resource] = engineName
}

// SetDefault names the engine used for resources without a route.
func (d *Dispatcher) SetDefault(engineName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallback = engineName
}

// Engines lists the registered engine names.
func (d *Dispatcher) Engines() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.engines))
	for name := range d.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the engine for resource: its route, else the default.
func (d *Dispatcher) Resolve(kind request.Kind, resource string) (Engine, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, routed := d.routes[resource]
	if !routed {
		name = d.fallback
	}
	if name == "" {
		return nil, &request.ConfigurationError{Kind: kind, Resource: resource, Msg: "no engine configured"}
	}
	e, ok := d.engines[name]
	if !ok {
		return nil, &request.ConfigurationError{Kind: kind, Resource: resource, Msg: "engine " + name + " is not registered"}
	}
	return e, nil
}

// Dispatch validates req, resolves its engine and runs it. Requests with
// argument errors, without a resource, Put requests without a primary key and
// payloads the bound model rejects never reach an engine.
func (d *Dispatcher) Dispatch(ctx context.Context, req request.Request) (*response.Response, error) {
	if req == nil {
		return nil, &request.ConfigurationError{Msg: "nil request"}
	}
	if err := req.Validate(); err != nil {
		logger.Warn("dispatch_rejected", map[string]any{
			"kind":     req.Kind(),
			"resource": req.Resource(),
			"error":    err.Error(),
		})
		return nil, err
	}
	meta := req.Meta()
	e, err := d.Resolve(meta.Kind, meta.Resource)
	if err != nil {
		logger.Warn("dispatch_rejected", map[string]any{
			"kind":     meta.Kind,
			"resource": meta.Resource,
			"error":    err.Error(),
		})
		return nil, err
	}

	fields := map[string]any{
		"kind":     meta.Kind,
		"resource": meta.Resource,
		"engine":   e.Name(),
	}
	start := time.Now()
	resp, err := call(ctx, e, meta)
	fields["duration_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("dispatch_failed", logger.With(fields, map[string]any{"error": err.Error()}))
		return nil, err
	}
	if resp == nil {
		err := &Error{Engine: e.Name(), Kind: meta.Kind, Resource: meta.Resource, Err: errors.New("engine returned no response")}
		logger.Warn("dispatch_failed", logger.With(fields, map[string]any{"error": err.Error()}))
		return nil, err
	}
	logger.Debug("dispatch", logger.With(fields, map[string]any{
		"returned": resp.Returned,
		"total":    resp.Total,
		"affected": resp.Affected,
	}))
	return resp, nil
}

func Register(e Engine) { Default.Register(e) }
func Route(resource, engineName string) { Default.Route(resource, engineName) }
func SetDefault(engineName string) { Default.SetDefault(engineName) }

// Dispatch runs req through the Default dispatcher.
func Dispatch(ctx context.Context, req request.Request) (*response.Response, error) {
	return Default.Dispatch(ctx, req)
}
