package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"Ystore/internal/logger"
)

type modelFile struct {
	ResourceConfig `yaml:",inline"`
	Properties     yaml.Node `yaml:"properties"`
}

// LoadModelsFromDir registers every *.yml / *.yaml file in dir. The file
// name without extension is the model name.
func LoadModelsFromDir(dir string) error {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		def, err := ParseDefinition(name, data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		Register(def)
		logger.Debug("model_loaded", map[string]any{
			"model":      name,
			"resource":   ResolveResourceName(def, "", ""),
			"properties": len(def.Props),
		})
	}
	return nil
}

// ParseDefinition decodes one YAML model document.
func ParseDefinition(name string, data []byte) (*Definition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML")
	}
	if err := validateYAMLNode(root.Content[0], "model"); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var mf modelFile
	if err := root.Decode(&mf); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	def := &Definition{TypeName: name, Config: mf.ResourceConfig}
	// properties are decoded pair by pair to keep declaration order
	props := mf.Properties.Content
	for i := 0; i+1 < len(props); i += 2 {
		var p Property
		if err := props[i+1].Decode(&p); err != nil {
			return nil, fmt.Errorf("property %q: %w", props[i].Value, err)
		}
		p.Name = props[i].Value
		p = normalizeProperty(p)
		if err := resolveNamed(&p); err != nil {
			return nil, err
		}
		def.Props = append(def.Props, p)
	}
	if err := validateDefinition(def); err != nil {
		return nil, err
	}
	return def, nil
}
