package request

import (
	"encoding/json"
	"fmt"

	"Ystore/internal/filter"
	"Ystore/internal/model"
)

type wireRequest struct {
	Kind       Kind             `json:"kind"`
	From       string           `json:"from,omitempty"`
	To         string           `json:"to,omitempty"`
	Where      *filter.Group    `json:"where,omitempty"`
	Count      bool             `json:"count"`
	Model      string           `json:"model,omitempty"`
	Headers    *Headers         `json:"headers"`
	Properties []string         `json:"properties,omitempty"`
	Distinct   bool             `json:"distinct,omitempty"`
	Skip       int              `json:"skip,omitempty"`
	Take       int              `json:"take,omitempty"`
	Sorts      []Sort           `json:"sorts,omitempty"`
	Objects    []map[string]any `json:"objects,omitempty"`
	PK         []string         `json:"pk,omitempty"`
	Template   map[string]any   `json:"template,omitempty"`
	All        bool             `json:"all,omitempty"`
}

func toWire(m Meta) wireRequest {
	w := wireRequest{
		Kind:       m.Kind,
		Where:      m.Where,
		Count:      m.Count,
		Headers:    m.Headers,
		Properties: m.Properties,
		Distinct:   m.Distinct,
		Skip:       m.Skip,
		Take:       m.Take,
		Sorts:      m.Sorts,
		Objects:    m.Objects,
		PK:         m.PK,
		Template:   m.Template,
		All:        m.All,
	}
	if m.Where.Empty() {
		w.Where = nil
	}
	if m.Model != nil {
		w.Model = m.Model.Name()
	}
	switch m.Kind {
	case KindPost, KindPut, KindPatch:
		w.To = m.Resource
	default:
		w.From = m.Resource
	}
	return w
}

// ModelLookup resolves the type name carried in the "model" field.
type ModelLookup func(name string) (model.Model, bool)

// Decode rebuilds a request from its JSON form. A "model" name is resolved
// through lookup; model.Lookup serves the YAML registry.
func Decode(data []byte, lookup ModelLookup) (Request, error) {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("request: decode: %w", err)
	}
	if !w.Kind.Valid() {
		return nil, argError("Decode", "unknown request kind %q", w.Kind)
	}
	var m model.Model
	if w.Model != "" {
		if lookup == nil {
			return nil, argError("Decode", "no model lookup for %q", w.Model)
		}
		found, ok := lookup(w.Model)
		if !ok {
			return nil, argError("Decode", "unknown model %q", w.Model)
		}
		m = found
	}
	if w.Where != nil && !w.Where.Empty() {
		switch w.Kind {
		case KindGet, KindPatch, KindDelete:
		default:
			return nil, argError("Decode", "%s requests take no where clause", w.Kind)
		}
	}
	if len(w.Objects) > 0 && w.Kind != KindPost && w.Kind != KindPut {
		return nil, argError("Decode", "%s requests take no objects", w.Kind)
	}

	objects := make([]any, len(w.Objects))
	for i, o := range w.Objects {
		objects[i] = o
	}
	var headers any = w.Headers

	var r Request
	switch w.Kind {
	case KindOptions:
		req := NewOptions().From(w.From).Count(w.Count).Headers(headers)
		if m != nil {
			req.Model(m)
		}
		r = req
	case KindGet:
		req := NewGet().From(w.From).Where(w.Where).Count(w.Count).Headers(headers).
			Properties(w.Properties...).Distinct(w.Distinct).Skip(w.Skip).Take(w.Take).Sorts(w.Sorts...)
		if m != nil {
			req.Model(m)
		}
		r = req
	case KindPost:
		req := NewPost().To(w.To).Count(w.Count).Headers(headers).Objects(objects...)
		if m != nil {
			req.Model(m)
		}
		r = req
	case KindPut:
		req := NewPut().To(w.To).Count(w.Count).Headers(headers).Objects(objects...).PK(w.PK...)
		if m != nil {
			req.Model(m)
		}
		r = req
	case KindPatch:
		req := NewPatch().To(w.To).Where(w.Where).Count(w.Count).Headers(headers).All(w.All)
		if w.Template != nil {
			req.Template(w.Template)
		}
		if m != nil {
			req.Model(m)
		}
		r = req
	case KindDelete:
		req := NewDelete().From(w.From).Where(w.Where).Count(w.Count).Headers(headers).All(w.All)
		if m != nil {
			req.Model(m)
		}
		r = req
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return r, nil
}
