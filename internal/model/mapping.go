package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
)

// fallbackResource is used when a model has neither configuration nor name.
const fallbackResource = "objects"

// ResolveResourceName picks the resource a request targets. Precedence:
// explicit override, per-kind override, resource, name, slug, plural name,
// plural slug, pluralized type name. The result is never empty.
func ResolveResourceName(m Model, kind, override string) string {
	if s := strings.TrimSpace(override); s != "" {
		return s
	}
	if m == nil {
		return fallbackResource
	}
	cfg := m.Resource()
	candidates := []string{cfg.Kinds[strings.ToLower(kind)], cfg.Resource, cfg.Name, cfg.Slug}
	if cfg.Plural != nil {
		candidates = append(candidates, cfg.Plural.Name, cfg.Plural.Slug)
	}
	for _, c := range candidates {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	if name := strings.TrimSpace(m.Name()); name != "" {
		return inflection.Plural(name)
	}
	return fallbackResource
}

// ExtractPrimaryKeys returns the names of pk properties in declaration order.
func ExtractPrimaryKeys(m Model) []string {
	if m == nil {
		return nil
	}
	var keys []string
	for _, p := range m.Properties() {
		if p.PK {
			keys = append(keys, p.Name)
		}
	}
	return keys
}

// MapProperty finds a property by caller-facing name, then by storage target.
func MapProperty(m Model, name string) (Property, bool) {
	if m == nil {
		return Property{}, false
	}
	props := m.Properties()
	for _, p := range props {
		if p.Name == name {
			return normalizeProperty(p), true
		}
	}
	for _, p := range props {
		if p.Target == name {
			return normalizeProperty(p), true
		}
	}
	return Property{}, false
}

// TargetOf translates a caller-facing name to its storage name. Unknown names
// and a nil model pass through unchanged.
func TargetOf(m Model, name string) string {
	if p, ok := MapProperty(m, name); ok {
		return p.Target
	}
	return name
}

// TargetFunc returns TargetOf bound to m, suitable for filter.Rename.
func TargetFunc(m Model) func(string) string {
	return func(name string) string {
		return TargetOf(m, name)
	}
}

// Targets maps a list of caller-facing names to storage names.
func Targets(m Model, names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = TargetOf(m, n)
	}
	return out
}

// ComputeDefault returns the declared default, or a zero value of the
// property type when the property is required, or nil.
func ComputeDefault(p Property) any {
	if p.Default != nil {
		return p.Default
	}
	if !p.Required {
		return nil
	}
	switch p.Type {
	case TypeBoolean:
		return false
	case TypeNumber:
		return float64(0)
	case TypeInteger:
		return int64(0)
	case TypeString:
		return ""
	case TypeDate:
		return time.Now().UTC()
	case TypeBinary:
		return []byte{}
	case TypeUUID:
		return uuid.NewString()
	case TypeJSON:
		return map[string]any{}
	}
	return nil
}
