package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

var allowedModelKeys = map[string]bool{
	"resource":   true,
	"name":       true,
	"slug":       true,
	"plural":     true,
	"kinds":      true,
	"properties": true,
}

var allowedPluralKeys = map[string]bool{
	"name": true,
	"slug": true,
}

var allowedKindKeys = map[string]bool{
	"options": true,
	"get":     true,
	"post":    true,
	"put":     true,
	"patch":   true,
	"delete":  true,
}

var allowedPropertyKeys = map[string]bool{
	"target":    true,
	"type":      true,
	"default":   true,
	"required":  true,
	"pk":        true,
	"omit":      true,
	"transform": true,
	"validate":  true,
	"precision": true,
	"scale":     true,
	"length":    true,
}

// validateYAMLNode rejects unknown keys and property types before decoding,
// so typos in model files fail loudly instead of being ignored.
func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "model"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case "model":
			allowedKeys = allowedModelKeys
		case "plural":
			allowedKeys = allowedPluralKeys
		case "kinds":
			allowedKeys = allowedKindKeys
		case "property":
			allowedKeys = allowedPropertyKeys
		default:
			allowedKeys = nil
		}

		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("unknown key '%s' in %s (line %d)", key, context, keyNode.Line)
			}
			if context == "property" && key == "type" && !PrimitiveType(valNode.Value).Valid() {
				return fmt.Errorf("unknown type value '%s' in property (line %d)", valNode.Value, valNode.Line)
			}

			nextContext := ""
			switch {
			case context == "model" && key == "plural":
				nextContext = "plural"
			case context == "model" && key == "kinds":
				nextContext = "kinds"
			case context == "model" && key == "properties":
				nextContext = "properties-map"
			case context == "properties-map":
				if valNode.Kind != yaml.MappingNode {
					return fmt.Errorf("property '%s' must be a mapping (line %d)", key, valNode.Line)
				}
				nextContext = "property"
			case context == "property":
				nextContext = "property-value"
			default:
				nextContext = context
			}

			if err := validateYAMLNode(valNode, nextContext); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		for _, item := range node.Content {
			if err := validateYAMLNode(item, context); err != nil {
				return err
			}
		}
	}

	return nil
}
