// Package query evaluates request metadata against rows held in process. The
// memory and redis engines share it; rows are always storage-shaped.
package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"Ystore/internal/filter"
	"Ystore/internal/model"
	"Ystore/internal/request"
	"Ystore/internal/response"
)

// Where returns the request filter with property names translated to storage
// targets through the bound model.
func Where(m request.Meta) *filter.Group {
	if m.Where.Empty() {
		return nil
	}
	if m.Model == nil {
		return m.Where
	}
	return filter.Rename(m.Where, model.TargetFunc(m.Model))
}

// Select runs a Get over rows: filter, sort, convert to caller names,
// project, de-duplicate and page.
func Select(rows []map[string]any, m request.Meta) *response.Response {
	where := Where(m)
	matched := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if filter.Match(where, row) {
			matched = append(matched, row)
		}
	}
	SortRows(matched, m)

	out := make([]map[string]any, 0, len(matched))
	for _, row := range matched {
		out = append(out, Project(model.FromStorage(m.Model, string(request.KindGet), row), m.Properties))
	}
	if m.Distinct {
		out = Distinct(out)
	}
	total := len(out)
	if m.Count {
		return response.Counted(total)
	}
	return response.Rows(Page(out, m.Skip, m.Take), total)
}

// SortRows orders storage rows by the request sorts. Values that cannot be
// compared keep their relative order; nulls sort first.
func SortRows(rows []map[string]any, m request.Meta) {
	if len(m.Sorts) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, s := range m.Sorts {
			key := model.TargetOf(m.Model, s.Property)
			c := compareValues(rows[i][key], rows[j][key])
			if c == 0 {
				continue
			}
			if s.Direction == request.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c, ok := filter.Compare(a, b); ok {
		return c
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// Project keeps only the named fields. No names keeps the row as is.
func Project(row map[string]any, properties []string) map[string]any {
	if len(properties) == 0 {
		return row
	}
	out := make(map[string]any, len(properties))
	for _, p := range properties {
		if v, ok := row[p]; ok {
			out[p] = v
		}
	}
	return out
}

// Distinct drops rows whose JSON encoding was already seen.
func Distinct(rows []map[string]any) []map[string]any {
	seen := map[string]bool{}
	out := rows[:0]
	for _, row := range rows {
		key, err := json.Marshal(row)
		if err != nil {
			out = append(out, row)
			continue
		}
		if seen[string(key)] {
			continue
		}
		seen[string(key)] = true
		out = append(out, row)
	}
	return out
}

// Page applies skip and take; take 0 means no limit.
func Page(rows []map[string]any, skip, take int) []map[string]any {
	if skip >= len(rows) {
		return []map[string]any{}
	}
	rows = rows[skip:]
	if take > 0 && take < len(rows) {
		rows = rows[:take]
	}
	return rows
}

// Affected returns the indexes of rows a Patch or Delete touches. Without
// conditions nothing is touched unless All is set.
func Affected(rows []map[string]any, m request.Meta) []int {
	var idx []int
	where := Where(m)
	if where == nil && !m.All {
		return idx
	}
	for i, row := range rows {
		if filter.Match(where, row) {
			idx = append(idx, i)
		}
	}
	return idx
}

// PrimaryTargets returns the storage names of the request's primary keys.
func PrimaryTargets(m request.Meta) []string {
	return model.Targets(m.Model, m.PK)
}

// ModelKeys returns the storage names of the bound model's primary keys.
// Post uses them because a post request carries no key list of its own.
func ModelKeys(m request.Meta) []string {
	return model.Targets(m.Model, model.ExtractPrimaryKeys(m.Model))
}

// Key renders the values of keys in row as a stable identity string. ok is
// false when a key is missing.
func Key(row map[string]any, keys []string) (string, bool) {
	values := make([]any, len(keys))
	for i, k := range keys {
		v, present := row[k]
		if !present || v == nil {
			return "", false
		}
		if f, isNum := toNumber(v); isNum {
			v = f
		}
		values[i] = v
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Merge writes the template over row and returns the result.
func Merge(row, template map[string]any) map[string]any {
	out := make(map[string]any, len(row)+len(template))
	for k, v := range row {
		out[k] = v
	}
	for k, v := range template {
		out[k] = v
	}
	return out
}

// Describe answers an Options request. With a model bound it reports the
// model schema; otherwise the given column names.
func Describe(m request.Meta, columns []string) *response.Response {
	var desc map[string]any
	if m.Model != nil {
		desc = map[string]any{}
		if raw, err := json.Marshal(model.Schema(m.Model)); err == nil {
			_ = json.Unmarshal(raw, &desc)
		}
		desc["resource"] = m.Resource
	} else {
		props := make([]map[string]any, 0, len(columns))
		for _, c := range columns {
			props = append(props, map[string]any{"name": c, "target": c})
		}
		desc = map[string]any{
			"resource":    m.Resource,
			"primaryKeys": []string{},
			"properties":  props,
		}
	}
	if m.Count {
		return response.Counted(1)
	}
	return response.Rows([]map[string]any{desc}, 1)
}

// Columns lists every key found in rows, sorted.
func Columns(rows []map[string]any) []string {
	set := map[string]bool{}
	for _, row := range rows {
		for k := range row {
			set[k] = true
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Rejected is a payload object refused by the model pipeline.
type Rejected struct {
	Index int
	Err   error
}

// Record is a payload object converted to storage names. Index is its
// position in the request.
type Record struct {
	Index int
	Row   map[string]any
}

// Records converts the request objects to storage rows through the bound
// model. Refused objects are left out and reported.
func Records(m request.Meta) ([]Record, []Rejected) {
	records := make([]Record, 0, len(m.Objects))
	var rejected []Rejected
	for i, obj := range m.Objects {
		row, err := model.ToStorage(m.Model, string(m.Kind), obj)
		if err != nil {
			rejected = append(rejected, Rejected{Index: i, Err: err})
			continue
		}
		records = append(records, Record{Index: i, Row: row})
	}
	return records, rejected
}

// Template converts a Patch template to storage names.
func Template(m request.Meta) (map[string]any, error) {
	return model.ToStorage(m.Model, string(request.KindPatch), m.Template)
}

// Report attaches rejected objects to resp.
func Report(resp *response.Response, rejected []Rejected) *response.Response {
	for _, r := range rejected {
		resp.AddError("validation", r.Index, r.Err)
	}
	return resp
}

// Output converts stored rows back to caller names for a write response.
func Output(rows []map[string]any, m request.Meta) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.FromStorage(m.Model, string(request.KindGet), row))
	}
	return out
}
