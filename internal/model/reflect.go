package model

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResourceConfigurer lets a struct type declare its resource configuration
// for Reflect.
type ResourceConfigurer interface {
	ResourceConfig() ResourceConfig
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// Reflect derives a definition from a struct (or pointer to struct). The
// property name is the json name of the field; the `ystore` tag supplies the
// rest:
//
//	ID    string `json:"id" ystore:"car_id,pk,type=uuid"`
//	Make  string `json:"make" ystore:",required,length=64"`
//	Notes string `ystore:"-"`
//
// If the value implements Model it is returned as is.
func Reflect(v any) (Model, error) {
	if m, ok := v.(Model); ok {
		return m, nil
	}
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model: expected struct, got %T", v)
	}

	var cfg ResourceConfig
	if rc, ok := v.(ResourceConfigurer); ok {
		cfg = rc.ResourceConfig()
	} else if rc, ok := reflect.New(t).Interface().(ResourceConfigurer); ok {
		cfg = rc.ResourceConfig()
	}

	var props []Property
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("ystore")
		if tag == "-" {
			continue
		}
		p := Property{Name: jsonName(f), Type: inferType(f.Type)}
		if err := applyTag(&p, tag); err != nil {
			return nil, fmt.Errorf("model %s field %s: %w", t.Name(), f.Name, err)
		}
		props = append(props, p)
	}
	return New(t.Name(), cfg, props...), nil
}

func jsonName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

func applyTag(p *Property, tag string) error {
	if tag == "" {
		return nil
	}
	parts := strings.Split(tag, ",")
	p.Target = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		key, val, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "":
		case "pk":
			p.PK = true
		case "required":
			p.Required = true
		case "omit":
			if val == "" {
				p.Omit = Omit{All: true}
			} else {
				p.Omit = Omit{Kinds: strings.Split(val, "|")}
			}
		case "type":
			t := PrimitiveType(val)
			if !t.Valid() {
				return fmt.Errorf("unknown type %q", val)
			}
			p.Type = t
		case "default":
			p.Default = val
		case "length", "precision", "scale":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			switch key {
			case "length":
				p.Length = n
			case "precision":
				p.Precision = n
			default:
				p.Scale = n
			}
		default:
			return fmt.Errorf("unknown tag option %q", key)
		}
	}
	return nil
}

func inferType(t reflect.Type) PrimitiveType {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		return TypeDate
	case t == uuidType:
		return TypeUUID
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		return TypeBinary
	}
	switch t.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger
	case reflect.Float32, reflect.Float64:
		return TypeNumber
	}
	return TypeJSON
}
