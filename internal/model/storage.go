package model

import (
	"github.com/hashicorp/go-multierror"
)

// kindPost is the only request kind that receives computed defaults.
const kindPost = "post"

// ToStorage prepares a caller record for an engine: defaults (post only),
// transforms, validation, omission and renaming to storage targets. Keys the
// model does not declare pass through. Every rejected property is reported.
func ToStorage(m Model, kind string, record map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(record))
	if m == nil {
		for k, v := range record {
			out[k] = v
		}
		return out, nil
	}

	var result *multierror.Error
	known := map[string]bool{}
	for _, p := range m.Properties() {
		p = normalizeProperty(p)
		known[p.Name] = true
		known[p.Target] = true

		v, ok := record[p.Name]
		if !ok {
			v, ok = record[p.Target]
		}
		if v == nil && kind == kindPost {
			if d := ComputeDefault(p); d != nil {
				v, ok = d, true
			}
		}
		if !ok || p.Omit.Applies(kind) {
			continue
		}
		v = ApplyTransforms(p, v)
		if v != nil || p.Required {
			if err := ApplyValidation(p, v); err != nil {
				result = multierror.Append(result, err)
				continue
			}
		}
		out[p.Target] = v
	}
	for k, v := range record {
		if !known[k] {
			out[k] = v
		}
	}
	return out, result.ErrorOrNil()
}

// FromStorage renames a stored row back to caller-facing names and drops
// properties omitted for kind. Undeclared columns pass through.
func FromStorage(m Model, kind string, row map[string]any) map[string]any {
	if m == nil {
		return row
	}
	out := make(map[string]any, len(row))
	mapped := map[string]bool{}
	for _, p := range m.Properties() {
		p = normalizeProperty(p)
		mapped[p.Target] = true
		v, ok := row[p.Target]
		if !ok || p.Omit.Applies(kind) {
			continue
		}
		out[p.Name] = v
	}
	for k, v := range row {
		if mapped[k] {
			continue
		}
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return out
}
