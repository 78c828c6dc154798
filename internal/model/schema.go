package model

// Description is the serializable schema of a model returned by the Options
// request.
type Description struct {
	Model       string                `json:"model" yaml:"model"`
	Resource    string                `json:"resource" yaml:"resource"`
	Config      ResourceConfig        `json:"config" yaml:"config"`
	PrimaryKeys []string              `json:"primaryKeys" yaml:"primary_keys"`
	Properties  []PropertyDescription `json:"properties" yaml:"properties"`
}

type PropertyDescription struct {
	Name      string        `json:"name" yaml:"name"`
	Target    string        `json:"target" yaml:"target"`
	Type      PrimitiveType `json:"type,omitempty" yaml:"type,omitempty"`
	Default   any           `json:"default,omitempty" yaml:"default,omitempty"`
	Required  bool          `json:"required,omitempty" yaml:"required,omitempty"`
	PK        bool          `json:"pk,omitempty" yaml:"pk,omitempty"`
	Omit      *Omit         `json:"omit,omitempty" yaml:"omit,omitempty"`
	Precision int           `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale     int           `json:"scale,omitempty" yaml:"scale,omitempty"`
	Length    int           `json:"length,omitempty" yaml:"length,omitempty"`
	Transform int           `json:"transforms,omitempty" yaml:"transforms,omitempty"`
	Validate  int           `json:"validators,omitempty" yaml:"validators,omitempty"`
}

// Schema describes every declared property plus the resource configuration.
// Functions are reported by count only.
func Schema(m Model) Description {
	if m == nil {
		return Description{}
	}
	d := Description{
		Model:       m.Name(),
		Resource:    ResolveResourceName(m, "options", ""),
		Config:      m.Resource(),
		PrimaryKeys: ExtractPrimaryKeys(m),
		Properties:  []PropertyDescription{},
	}
	if d.PrimaryKeys == nil {
		d.PrimaryKeys = []string{}
	}
	for _, p := range m.Properties() {
		p = normalizeProperty(p)
		pd := PropertyDescription{
			Name:      p.Name,
			Target:    p.Target,
			Type:      p.Type,
			Default:   p.Default,
			Required:  p.Required,
			PK:        p.PK,
			Precision: p.Precision,
			Scale:     p.Scale,
			Length:    p.Length,
			Transform: len(p.Transform),
			Validate:  len(p.Validate),
		}
		if !p.Omit.IsZero() {
			omit := p.Omit
			pd.Omit = &omit
		}
		d.Properties = append(d.Properties, pd)
	}
	return d
}
