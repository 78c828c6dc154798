package request

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/hashicorp/go-multierror"

	"Ystore/internal/filter"
	"Ystore/internal/model"
)

// common carries the state and methods shared by every request kind. R is the
// concrete request type so that chained calls keep their static type.
type common[R any] struct {
	self     R
	meta     Meta
	explicit bool
	refs     []uintptr
	err      error
}

func (c *common[R]) init(self R, kind Kind) {
	c.self = self
	c.meta = Meta{Kind: kind, Headers: NewHeaders()}
}

// fail records err unless an earlier call already failed.
func (c *common[R]) fail(err error) R {
	if c.err == nil {
		c.err = err
	}
	return c.self
}

func (c *common[R]) Kind() Kind       { return c.meta.Kind }
func (c *common[R]) Resource() string { return c.meta.Resource }

// Err returns the first argument error raised by a builder call.
func (c *common[R]) Err() error { return c.err }

func (c *common[R]) setResource(name string) R {
	c.meta.Resource = name
	c.explicit = name != ""
	return c.self
}

// Count switches count-only mode. Without arguments it enables it.
func (c *common[R]) Count(enabled ...bool) R {
	c.meta.Count = flag(enabled)
	return c.self
}

// Model binds m. The resource name is filled in only when none was set
// explicitly; Put always takes its primary keys from the model, so a model
// without keys leaves Put with none.
func (c *common[R]) Model(m model.Model) R {
	c.meta.Model = m
	if m == nil {
		return c.self
	}
	if !c.explicit {
		c.meta.Resource = model.ResolveResourceName(m, string(c.meta.Kind), "")
	}
	if c.meta.Kind == KindPut {
		c.meta.PK = model.ExtractPrimaryKeys(m)
	}
	return c.self
}

// Headers merges engine options into the request. A nil argument clears
// them; a nil value deletes its key.
func (c *common[R]) Headers(values ...any) R {
	if len(values) != 1 {
		return c.fail(argError("Headers", "expected exactly one argument, got %d", len(values)))
	}
	switch v := values[0].(type) {
	case nil:
		c.meta.Headers.Reset()
		return c.self
	case *Headers:
		if v == nil {
			c.meta.Headers.Reset()
			return c.self
		}
		for _, k := range v.keys {
			c.meta.Headers.Set(k, v.values[k])
		}
		return c.self
	}

	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Map {
		return c.fail(argError("Headers", "expected a map, got %T", values[0]))
	}
	if rv.IsNil() {
		c.meta.Headers.Reset()
		return c.self
	}
	keys := rv.MapKeys()
	for _, k := range keys {
		if k.Kind() != reflect.String {
			return c.fail(&KeyError{Method: "Headers", Key: k.Interface()})
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		c.meta.Headers.Set(k.String(), rv.MapIndex(k).Interface())
	}
	return c.self
}

// Clear resets every field while keeping the request itself.
func (c *common[R]) Clear() R {
	c.meta = Meta{Kind: c.meta.Kind, Headers: c.meta.Headers}
	c.meta.Headers.Reset()
	c.explicit = false
	c.refs = nil
	c.err = nil
	return c.self
}

// Meta returns a snapshot of the request. The where tree, the model and the
// payload records are shared; slices and headers are copied.
func (c *common[R]) Meta() Meta {
	m := c.meta
	m.Headers = c.meta.Headers.Clone()
	m.Properties = cloneStrings(c.meta.Properties)
	m.Sorts = append([]Sort(nil), c.meta.Sorts...)
	m.Objects = append([]map[string]any(nil), c.meta.Objects...)
	m.PK = cloneStrings(c.meta.PK)
	return m
}

// Validate runs the dispatch-time checks.
func (c *common[R]) Validate() error {
	if c.err != nil {
		return c.err
	}
	if c.meta.Resource == "" {
		return &ConfigurationError{Kind: c.meta.Kind, Msg: "no resource set and no model bound"}
	}
	if c.meta.Kind == KindPut && len(c.meta.PK) == 0 {
		return &ConfigurationError{Kind: c.meta.Kind, Resource: c.meta.Resource, Msg: "no primary key resolvable"}
	}
	return c.validatePayload()
}

// validatePayload runs the bound model's transforms and validators over the
// objects or the template. Every rejected property is reported.
func (c *common[R]) validatePayload() error {
	m := c.meta.Model
	if m == nil {
		return nil
	}
	kind := string(c.meta.Kind)
	var result *multierror.Error
	switch c.meta.Kind {
	case KindPost, KindPut:
		for i, obj := range c.meta.Objects {
			if _, err := model.ToStorage(m, kind, obj); err != nil {
				result = multierror.Append(result, fmt.Errorf("object %d: %w", i, err))
			}
		}
	case KindPatch:
		if c.meta.Template != nil {
			if _, err := model.ToStorage(m, kind, c.meta.Template); err != nil {
				result = multierror.Append(result, fmt.Errorf("template: %w", err))
			}
		}
	}
	return result.ErrorOrNil()
}

func (c *common[R]) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(c.meta))
}

// filtered adds Where to Get, Patch and Delete.
type filtered[R any] struct{ c *common[R] }

// Where sets the filter. It accepts nil, a *filter.Group (kept by
// reference), a *filter.Builder, a func(*filter.Builder) run against a fresh
// builder, or filter text.
func (f filtered[R]) Where(v any) R {
	c := f.c
	switch w := v.(type) {
	case nil:
		c.meta.Where = nil
	case *filter.Group:
		c.meta.Where = w
	case *filter.Builder:
		if w == nil {
			c.meta.Where = nil
			break
		}
		if err := w.Err(); err != nil {
			return c.fail(argError("Where", "%v", err))
		}
		c.meta.Where = w.Group()
	case func(*filter.Builder):
		if w == nil {
			return c.fail(argError("Where", "nil callback"))
		}
		g, err := filter.Build(w)
		if err != nil {
			return c.fail(argError("Where", "%v", err))
		}
		c.meta.Where = g
	case string:
		g, err := filter.Parse(w)
		if err != nil {
			return c.fail(err)
		}
		c.meta.Where = g
	default:
		return c.fail(argError("Where", "unsupported filter %T", v))
	}
	return c.self
}

// payload adds Objects to Post and Put.
type payload[R any] struct{ c *common[R] }

// Objects appends records. Each entry must be a map[string]any or a pointer
// to a struct; the same reference is never added twice.
func (p payload[R]) Objects(objs ...any) R {
	c := p.c
	records := make([]map[string]any, 0, len(objs))
	refs := make([]uintptr, 0, len(objs))
	for i, o := range objs {
		rec, ref, err := toRecord(o)
		if err != nil {
			return c.fail(argError("Objects", "entry %d: %v", i, err))
		}
		if containsRef(c.refs, ref) || containsRef(refs, ref) {
			continue
		}
		records = append(records, rec)
		refs = append(refs, ref)
	}
	c.meta.Objects = append(c.meta.Objects, records...)
	c.refs = append(c.refs, refs...)
	return c.self
}

// bulk adds All to Patch and Delete.
type bulk[R any] struct{ c *common[R] }

// All allows a Patch or Delete without conditions to affect every object.
func (b bulk[R]) All(enabled ...bool) R {
	b.c.meta.All = flag(enabled)
	return b.c.self
}

type source[R any] struct{ c *common[R] }

// From sets the resource read from. An empty name clears it.
func (s source[R]) From(name string) R { return s.c.setResource(name) }

type target[R any] struct{ c *common[R] }

// To sets the resource written to. An empty name clears it.
func (t target[R]) To(name string) R { return t.c.setResource(name) }

func toRecord(o any) (map[string]any, uintptr, error) {
	if m, ok := o.(map[string]any); ok {
		if m == nil {
			return nil, 0, fmt.Errorf("nil map")
		}
		return m, reflect.ValueOf(m).Pointer(), nil
	}
	rv := reflect.ValueOf(o)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, 0, fmt.Errorf("expected an object, got %T", o)
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return nil, 0, err
	}
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, 0, err
	}
	return rec, rv.Pointer(), nil
}

func containsRef(refs []uintptr, ref uintptr) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}

func flag(enabled []bool) bool {
	if len(enabled) == 0 {
		return true
	}
	return enabled[0]
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
