// Package response defines the envelope every engine returns.
package response

import (
	"errors"
	"fmt"
)

// ErrorDescriptor reports a failure that did not abort the whole operation,
// for example one rejected object in a batch.
type ErrorDescriptor struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Property string `json:"property,omitempty"`
	Index    *int   `json:"index,omitempty"`
}

type Response struct {
	Data     []map[string]any  `json:"data"`
	Returned int               `json:"returned"`
	Total    int               `json:"total"`
	Affected int               `json:"affected"`
	Errors   []ErrorDescriptor `json:"errors,omitempty"`
}

// Rows is the result of a read: data plus the number of matches before
// paging.
func Rows(data []map[string]any, total int) *Response {
	r := &Response{Data: data, Total: total}
	return r.Finalize(false)
}

// Counted is the result of a count-only request.
func Counted(total int) *Response {
	r := &Response{Total: total}
	return r.Finalize(true)
}

// Changed is the result of a write that affected n objects.
func Changed(n int, data []map[string]any) *Response {
	r := &Response{Data: data, Affected: n, Total: n}
	return r.Finalize(false)
}

// Finalize restores the envelope invariant: Returned equals len(Data), and
// in count mode Data is empty while the totals are kept.
func (r *Response) Finalize(count bool) *Response {
	if count || r.Data == nil {
		r.Data = []map[string]any{}
	}
	r.Returned = len(r.Data)
	return r
}

// AddError appends a descriptor for err. The index is the position of the
// offending object, or negative when not tied to one.
func (r *Response) AddError(code string, index int, err error) *Response {
	d := ErrorDescriptor{Code: code, Message: err.Error()}
	var pe interface{ PropertyName() string }
	if errors.As(err, &pe) {
		d.Property = pe.PropertyName()
	}
	if index >= 0 {
		i := index
		d.Index = &i
	}
	r.Errors = append(r.Errors, d)
	return r
}

// Check reports an envelope that breaks the Returned invariant.
func (r *Response) Check(count bool) error {
	if count && len(r.Data) != 0 {
		return fmt.Errorf("response: count mode returned %d objects", len(r.Data))
	}
	if r.Returned != len(r.Data) {
		return fmt.Errorf("response: returned %d but carries %d objects", r.Returned, len(r.Data))
	}
	return nil
}
