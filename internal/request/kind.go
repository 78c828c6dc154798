// Package request holds the six request builders (Options, Get, Post, Put,
// Patch, Delete) that callers configure before handing them to a dispatcher.
package request

import (
	"fmt"
	"strings"

	"Ystore/internal/filter"
	"Ystore/internal/model"
)

type Kind string

const (
	KindOptions Kind = "options"
	KindGet     Kind = "get"
	KindPost    Kind = "post"
	KindPut     Kind = "put"
	KindPatch   Kind = "patch"
	KindDelete  Kind = "delete"
)

func (k Kind) Valid() bool {
	switch k {
	case KindOptions, KindGet, KindPost, KindPut, KindPatch, KindDelete:
		return true
	}
	return false
}

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Sort orders Get results by one property.
type Sort struct {
	Property  string    `json:"property"`
	Direction Direction `json:"direction"`
}

// ParseSort reads "field", "field ASC" or "field DESC".
func ParseSort(expr string) (Sort, error) {
	parts := strings.Fields(expr)
	switch len(parts) {
	case 1:
		return Sort{Property: parts[0], Direction: Asc}, nil
	case 2:
		dir := Direction(strings.ToUpper(parts[1]))
		if dir != Asc && dir != Desc {
			return Sort{}, fmt.Errorf("invalid sort direction %q", parts[1])
		}
		return Sort{Property: parts[0], Direction: dir}, nil
	}
	return Sort{}, fmt.Errorf("invalid sort expression %q", expr)
}

// Meta is the read-only view of a request that engines consume. Fields that
// do not apply to the request kind keep their zero value.
type Meta struct {
	Kind     Kind
	Resource string
	Where    *filter.Group
	Count    bool
	Model    model.Model
	Headers  *Headers

	// get
	Properties []string
	Distinct   bool
	Skip       int
	Take       int
	Sorts      []Sort

	// post, put
	Objects []map[string]any
	PK      []string

	// patch
	Template map[string]any

	// patch, delete
	All bool
}

// AffectsAll reports whether a Patch or Delete without conditions should
// touch every object. Conditions always take precedence over All.
func (m Meta) AffectsAll() bool {
	return m.Where.Empty() && m.All
}

// Request is implemented by all six request kinds.
type Request interface {
	Kind() Kind
	Resource() string
	Meta() Meta
	Err() error
	Validate() error
}
