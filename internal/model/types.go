package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PrimitiveType is the storage-neutral type of a property.
type PrimitiveType string

const (
	TypeString  PrimitiveType = "string"
	TypeNumber  PrimitiveType = "number"
	TypeInteger PrimitiveType = "integer"
	TypeBoolean PrimitiveType = "boolean"
	TypeDate    PrimitiveType = "date"
	TypeBinary  PrimitiveType = "binary"
	TypeUUID    PrimitiveType = "uuid"
	TypeJSON    PrimitiveType = "json"
)

var knownTypes = map[PrimitiveType]bool{
	TypeString:  true,
	TypeNumber:  true,
	TypeInteger: true,
	TypeBoolean: true,
	TypeDate:    true,
	TypeBinary:  true,
	TypeUUID:    true,
	TypeJSON:    true,
}

func (t PrimitiveType) Valid() bool {
	return knownTypes[t]
}

// Model is anything that declares a resource configuration and ordered
// property definitions. *Definition is the stock implementation.
type Model interface {
	Name() string
	Resource() ResourceConfig
	Properties() []Property
}

// ResourceConfig names the storage resource of a model.
type ResourceConfig struct {
	Resource string        `yaml:"resource,omitempty" json:"resource,omitempty"`
	Name     string        `yaml:"name,omitempty" json:"name,omitempty"`
	Slug     string        `yaml:"slug,omitempty" json:"slug,omitempty"`
	Plural   *PluralConfig `yaml:"plural,omitempty" json:"plural,omitempty"`
	// Kinds overrides the resource for a single request kind ("get", "post"...).
	Kinds map[string]string `yaml:"kinds,omitempty" json:"kinds,omitempty"`
}

type PluralConfig struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	Slug string `yaml:"slug,omitempty" json:"slug,omitempty"`
}

type TransformFunc func(value any) any

// ValidateFunc rejects a value by returning an error.
type ValidateFunc func(value any) error

// Property describes how one caller-facing field is stored.
type Property struct {
	Name      string        `yaml:"-"`
	Target    string        `yaml:"target"`
	Type      PrimitiveType `yaml:"type"`
	Default   any           `yaml:"default"`
	Required  bool          `yaml:"required"`
	PK        bool          `yaml:"pk"`
	Omit      Omit          `yaml:"omit"`
	Precision int           `yaml:"precision"`
	Scale     int           `yaml:"scale"`
	Length    int           `yaml:"length"`

	Transform []TransformFunc `yaml:"-"`
	Validate  []ValidateFunc  `yaml:"-"`

	// named transforms/validators from YAML, resolved on load
	TransformNames StringList `yaml:"transform"`
	ValidateNames  StringList `yaml:"validate"`
}

// Omit hides a property either for every request kind or for the listed ones.
type Omit struct {
	All   bool
	Kinds []string
}

// Applies reports whether the property is omitted for the request kind.
func (o Omit) Applies(kind string) bool {
	if o.All {
		return true
	}
	for _, k := range o.Kinds {
		if strings.EqualFold(k, kind) {
			return true
		}
	}
	return false
}

func (o Omit) IsZero() bool {
	return !o.All && len(o.Kinds) == 0
}

// UnmarshalYAML accepts `omit: true` or `omit: [get, options]`.
func (o *Omit) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var b bool
		if err := node.Decode(&b); err == nil {
			*o = Omit{All: b}
			return nil
		}
		var list StringList
		if err := node.Decode(&list); err != nil {
			return err
		}
		*o = Omit{Kinds: list}
		return nil
	case yaml.SequenceNode:
		var kinds []string
		if err := node.Decode(&kinds); err != nil {
			return err
		}
		*o = Omit{Kinds: kinds}
		return nil
	}
	return fmt.Errorf("omit: expected bool or list at line %d", node.Line)
}

func (o Omit) MarshalJSON() ([]byte, error) {
	if len(o.Kinds) > 0 && !o.All {
		return json.Marshal(o.Kinds)
	}
	return json.Marshal(o.All)
}

func (o Omit) MarshalYAML() (any, error) {
	if len(o.Kinds) > 0 && !o.All {
		return o.Kinds, nil
	}
	return o.All, nil
}

func (o *Omit) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*o = Omit{All: b}
		return nil
	}
	var kinds []string
	if err := json.Unmarshal(data, &kinds); err != nil {
		return fmt.Errorf("omit: expected bool or list: %w", err)
	}
	*o = Omit{Kinds: kinds}
	return nil
}

// StringList decodes either a YAML sequence or a comma separated scalar.
type StringList []string

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var out []string
		for _, part := range strings.Split(node.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*s = out
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*s = out
		return nil
	}
	return fmt.Errorf("expected string or list at line %d", node.Line)
}

// Definition is a declared model: its type name, resource configuration and
// ordered properties.
type Definition struct {
	TypeName string
	Config   ResourceConfig
	Props    []Property
}

// New builds a definition. Properties without a target store under their name.
func New(name string, cfg ResourceConfig, props ...Property) *Definition {
	d := &Definition{TypeName: name, Config: cfg}
	for _, p := range props {
		d.Props = append(d.Props, normalizeProperty(p))
	}
	return d
}

func (d *Definition) Name() string             { return d.TypeName }
func (d *Definition) Resource() ResourceConfig { return d.Config }
func (d *Definition) Properties() []Property   { return d.Props }

func normalizeProperty(p Property) Property {
	p.Name = strings.TrimSpace(p.Name)
	p.Target = strings.TrimSpace(p.Target)
	if p.Target == "" {
		p.Target = p.Name
	}
	return p
}
