package request

import (
	"errors"
	"fmt"
	"strings"
)

// OptionsRequest asks an engine to describe a resource.
type OptionsRequest struct {
	common[*OptionsRequest]
	source[*OptionsRequest]
}

func NewOptions() *OptionsRequest {
	r := &OptionsRequest{}
	r.common.init(r, KindOptions)
	r.source.c = &r.common
	return r
}

// GetRequest retrieves objects.
type GetRequest struct {
	common[*GetRequest]
	source[*GetRequest]
	filtered[*GetRequest]
}

func NewGet() *GetRequest {
	r := &GetRequest{}
	r.common.init(r, KindGet)
	r.source.c = &r.common
	r.filtered.c = &r.common
	return r
}

// Properties limits the returned fields. No names means every field.
func (r *GetRequest) Properties(names ...string) *GetRequest {
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return r.fail(argError("Properties", "empty property name"))
		}
	}
	r.meta.Properties = cloneStrings(names)
	if len(names) == 0 {
		r.meta.Properties = nil
	}
	return r
}

func (r *GetRequest) Distinct(enabled ...bool) *GetRequest {
	r.meta.Distinct = flag(enabled)
	return r
}

func (r *GetRequest) Skip(n int) *GetRequest {
	if n < 0 {
		return r.fail(argError("Skip", "negative offset %d", n))
	}
	r.meta.Skip = n
	return r
}

// Take caps the number of returned objects; 0 means no limit.
func (r *GetRequest) Take(n int) *GetRequest {
	if n < 0 {
		return r.fail(argError("Take", "negative limit %d", n))
	}
	r.meta.Take = n
	return r
}

// Sort appends one ordering; the direction defaults to ascending.
func (r *GetRequest) Sort(property string, dir ...Direction) *GetRequest {
	s := Sort{Property: property, Direction: Asc}
	if len(dir) > 0 {
		s.Direction = Direction(strings.ToUpper(string(dir[0])))
	}
	if err := checkSort(s); err != nil {
		return r.fail(argError("Sort", "%v", err))
	}
	r.meta.Sorts = append(r.meta.Sorts, s)
	return r
}

// Sorts replaces every ordering.
func (r *GetRequest) Sorts(sorts ...Sort) *GetRequest {
	out := make([]Sort, 0, len(sorts))
	for _, s := range sorts {
		if s.Direction == "" {
			s.Direction = Asc
		}
		s.Direction = Direction(strings.ToUpper(string(s.Direction)))
		if err := checkSort(s); err != nil {
			return r.fail(argError("Sorts", "%v", err))
		}
		out = append(out, s)
	}
	r.meta.Sorts = out
	if len(out) == 0 {
		r.meta.Sorts = nil
	}
	return r
}

// OrderBy replaces every ordering with expressions like "price DESC".
func (r *GetRequest) OrderBy(exprs ...string) *GetRequest {
	sorts := make([]Sort, 0, len(exprs))
	for _, e := range exprs {
		s, err := ParseSort(e)
		if err != nil {
			return r.fail(argError("OrderBy", "%v", err))
		}
		sorts = append(sorts, s)
	}
	return r.Sorts(sorts...)
}

// PostRequest creates objects.
type PostRequest struct {
	common[*PostRequest]
	target[*PostRequest]
	payload[*PostRequest]
}

func NewPost() *PostRequest {
	r := &PostRequest{}
	r.common.init(r, KindPost)
	r.target.c = &r.common
	r.payload.c = &r.common
	return r
}

// PutRequest creates or replaces objects matched by primary key.
type PutRequest struct {
	common[*PutRequest]
	target[*PutRequest]
	payload[*PutRequest]
}

func NewPut() *PutRequest {
	r := &PutRequest{}
	r.common.init(r, KindPut)
	r.target.c = &r.common
	r.payload.c = &r.common
	return r
}

// PK sets the identity properties explicitly.
func (r *PutRequest) PK(names ...string) *PutRequest {
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return r.fail(argError("PK", "empty property name"))
		}
	}
	r.meta.PK = cloneStrings(names)
	if len(names) == 0 {
		r.meta.PK = nil
	}
	return r
}

// PatchRequest applies a template to every matching object.
type PatchRequest struct {
	common[*PatchRequest]
	target[*PatchRequest]
	filtered[*PatchRequest]
	bulk[*PatchRequest]
}

func NewPatch() *PatchRequest {
	r := &PatchRequest{}
	r.common.init(r, KindPatch)
	r.target.c = &r.common
	r.filtered.c = &r.common
	r.bulk.c = &r.common
	return r
}

// Template sets the fields written to each matching object. It accepts nil,
// a map[string]any or a pointer to a struct.
func (r *PatchRequest) Template(v any) *PatchRequest {
	if v == nil {
		r.meta.Template = nil
		return r
	}
	rec, _, err := toRecord(v)
	if err != nil {
		return r.fail(argError("Template", "%v", err))
	}
	r.meta.Template = rec
	return r
}

// DeleteRequest removes matching objects.
type DeleteRequest struct {
	common[*DeleteRequest]
	source[*DeleteRequest]
	filtered[*DeleteRequest]
	bulk[*DeleteRequest]
}

func NewDelete() *DeleteRequest {
	r := &DeleteRequest{}
	r.common.init(r, KindDelete)
	r.source.c = &r.common
	r.filtered.c = &r.common
	r.bulk.c = &r.common
	return r
}

func checkSort(s Sort) error {
	if strings.TrimSpace(s.Property) == "" {
		return errors.New("empty sort property")
	}
	if s.Direction != Asc && s.Direction != Desc {
		return fmt.Errorf("invalid sort direction %q", s.Direction)
	}
	return nil
}
