// Package memory is an in-process engine. Data is lost on restart. Safe for
// concurrent use.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"Ystore/internal/engine"
	"Ystore/internal/engine/query"
	"Ystore/internal/request"
	"Ystore/internal/response"
)

const Name = "memory"

// Engine keeps each resource as an ordered slice of storage rows.
type Engine struct {
	mu        sync.RWMutex
	name      string
	resources map[string][]map[string]any
}

var _ engine.Engine = (*Engine)(nil)

func New() *Engine {
	return NewNamed(Name)
}

// NewNamed returns an engine registered under a custom name.
func NewNamed(name string) *Engine {
	return &Engine{
		name:      name,
		resources: make(map[string][]map[string]any),
	}
}

// deepCopy returns a deep copy of a row by round-tripping through JSON.
func deepCopy(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	b, _ := json.Marshal(src)
	var dst map[string]any
	_ = json.Unmarshal(b, &dst)
	return dst
}

func (e *Engine) Name() string { return e.name }

// Seed replaces the stored rows of resource. Rows are storage-shaped.
func (e *Engine) Seed(resource string, rows ...map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	copied := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		copied = append(copied, deepCopy(r))
	}
	e.resources[resource] = copied
}

// Len reports how many rows resource holds.
func (e *Engine) Len(resource string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.resources[resource])
}

func (e *Engine) snapshot(resource string) []map[string]any {
	rows := e.resources[resource]
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, deepCopy(r))
	}
	return out
}

func (e *Engine) Options(ctx context.Context, m request.Meta) (*response.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return query.Describe(m, query.Columns(e.resources[m.Resource])), nil
}

func (e *Engine) Get(ctx context.Context, m request.Meta) (*response.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	e.mu.RLock()
	rows := e.snapshot(m.Resource)
	e.mu.RUnlock()
	return query.Select(rows, m), nil
}

// Post appends each object. When the model declares primary keys, an object
// whose key is already stored, or repeated earlier in the batch, is refused.
func (e *Engine) Post(ctx context.Context, m request.Meta) (*response.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	records, rejected := query.Records(m)
	keys := query.ModelKeys(m)
	rows := make([]map[string]any, 0, len(records))

	e.mu.Lock()
	seen := make(map[string]bool)
	if len(keys) > 0 {
		for _, r := range e.resources[m.Resource] {
			if k, ok := query.Key(r, keys); ok {
				seen[k] = true
			}
		}
	}
	for _, r := range records {
		if len(keys) > 0 {
			if k, ok := query.Key(r.Row, keys); ok {
				if seen[k] {
					rejected = append(rejected, query.Rejected{Index: r.Index, Err: fmt.Errorf("duplicate primary key %s", k)})
					continue
				}
				seen[k] = true
			}
		}
		e.resources[m.Resource] = append(e.resources[m.Resource], deepCopy(r.Row))
		rows = append(rows, r.Row)
	}
	e.mu.Unlock()

	sort.Slice(rejected, func(i, j int) bool { return rejected[i].Index < rejected[j].Index })
	resp := response.Changed(len(rows), query.Output(rows, m))
	return query.Report(resp, rejected).Finalize(m.Count), nil
}

// Put replaces rows whose primary key matches an object and appends the
// others.
func (e *Engine) Put(ctx context.Context, m request.Meta) (*response.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	keys := query.PrimaryTargets(m)
	records, rejected := query.Records(m)

	e.mu.Lock()
	stored := e.resources[m.Resource]
	index := make(map[string]int, len(stored))
	for i, r := range stored {
		if k, ok := query.Key(r, keys); ok {
			index[k] = i
		}
	}
	written := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		k, ok := query.Key(rec.Row, keys)
		if !ok {
			rejected = append(rejected, query.Rejected{Index: rec.Index, Err: fmt.Errorf("object is missing primary key %v", m.PK)})
			continue
		}
		if at, found := index[k]; found {
			stored[at] = deepCopy(rec.Row)
		} else {
			index[k] = len(stored)
			stored = append(stored, deepCopy(rec.Row))
		}
		written = append(written, rec.Row)
	}
	e.resources[m.Resource] = stored
	e.mu.Unlock()

	resp := response.Changed(len(written), query.Output(written, m))
	return query.Report(resp, rejected).Finalize(m.Count), nil
}

func (e *Engine) Patch(ctx context.Context, m request.Meta) (*response.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	tpl, err := query.Template(m)
	if err != nil {
		return query.Report(response.Changed(0, nil), []query.Rejected{{Index: -1, Err: err}}), nil
	}

	e.mu.Lock()
	stored := e.resources[m.Resource]
	idx := query.Affected(stored, m)
	changed := make([]map[string]any, 0, len(idx))
	for _, i := range idx {
		stored[i] = query.Merge(stored[i], deepCopy(tpl))
		changed = append(changed, deepCopy(stored[i]))
	}
	e.mu.Unlock()

	return response.Changed(len(changed), query.Output(changed, m)).Finalize(m.Count), nil
}

func (e *Engine) Delete(ctx context.Context, m request.Meta) (*response.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	e.mu.Lock()
	stored := e.resources[m.Resource]
	idx := query.Affected(stored, m)
	removed := make([]map[string]any, 0, len(idx))
	drop := make(map[int]bool, len(idx))
	for _, i := range idx {
		drop[i] = true
		removed = append(removed, stored[i])
	}
	kept := make([]map[string]any, 0, len(stored)-len(idx))
	for i, r := range stored {
		if !drop[i] {
			kept = append(kept, r)
		}
	}
	e.resources[m.Resource] = kept
	e.mu.Unlock()

	return response.Changed(len(removed), query.Output(removed, m)).Finalize(m.Count), nil
}
