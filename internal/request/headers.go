package request

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Headers is an insertion-ordered map of engine-specific options. The core
// never interprets the values.
type Headers struct {
	keys   []string
	values map[string]any
}

func NewHeaders() *Headers {
	return &Headers{values: map[string]any{}}
}

// Set stores v under k; a nil v deletes the key.
func (h *Headers) Set(k string, v any) {
	if v == nil {
		h.Delete(k)
		return
	}
	if h.values == nil {
		h.values = map[string]any{}
	}
	if _, ok := h.values[k]; !ok {
		h.keys = append(h.keys, k)
	}
	h.values[k] = v
}

func (h *Headers) Get(k string) (any, bool) {
	if h == nil {
		return nil, false
	}
	v, ok := h.values[k]
	return v, ok
}

func (h *Headers) Delete(k string) {
	if _, ok := h.values[k]; !ok {
		return
	}
	delete(h.values, k)
	for i, key := range h.keys {
		if key == k {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
}

func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.keys)
}

func (h *Headers) Keys() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.keys...)
}

// Map flattens the headers into a plain map.
func (h *Headers) Map() map[string]any {
	out := make(map[string]any, h.Len())
	if h == nil {
		return out
	}
	for _, k := range h.keys {
		out[k] = h.values[k]
	}
	return out
}

func (h *Headers) Reset() {
	h.keys = nil
	h.values = map[string]any{}
}

func (h *Headers) Clone() *Headers {
	out := NewHeaders()
	if h == nil {
		return out
	}
	for _, k := range h.keys {
		out.Set(k, h.values[k])
	}
	return out
}

// String returns a header value as text, or "" when absent.
func (h *Headers) String(k string) string {
	v, ok := h.Get(k)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (h *Headers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if h != nil {
		for i, k := range h.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(h.values[k])
			if err != nil {
				return nil, fmt.Errorf("header %q: %w", k, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order of the JSON object.
func (h *Headers) UnmarshalJSON(data []byte) error {
	h.Reset()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("headers: expected object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("headers: %q: %w", key, err)
		}
		h.Set(key, v)
	}
	_, err = dec.Token()
	return err
}
