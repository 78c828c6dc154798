package model

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	Registry   = map[string]Model{}
)

// InitRegistry loads the model directory into the registry.
func InitRegistry(dir string) error {
	if err := LoadModelsFromDir(dir); err != nil {
		return fmt.Errorf("load error: %w", err)
	}
	return nil
}

// Register adds or replaces a model under its name.
func Register(m Model) {
	registryMu.Lock()
	defer registryMu.Unlock()
	Registry[m.Name()] = m
}

func Lookup(name string) (Model, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	m, ok := Registry[name]
	return m, ok
}

// Names lists registered models alphabetically.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validateDefinition checks that names and storage targets are unique.
func validateDefinition(d *Definition) error {
	names := map[string]bool{}
	targets := map[string]string{}
	for _, p := range d.Props {
		if p.Name == "" {
			return fmt.Errorf("model %s: property without name", d.TypeName)
		}
		if names[p.Name] {
			return fmt.Errorf("model %s: duplicate property %q", d.TypeName, p.Name)
		}
		names[p.Name] = true
		if other, ok := targets[p.Target]; ok {
			return fmt.Errorf("model %s: properties %q and %q share target %q", d.TypeName, other, p.Name, p.Target)
		}
		targets[p.Target] = p.Name
	}
	return nil
}
