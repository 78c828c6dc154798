package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

type reflectedCar struct {
	ID       uuid.UUID `json:"id" ystore:"car_id,pk"`
	Make     string    `json:"make" ystore:",required,length=64"`
	Price    float64   `json:"price" ystore:",precision=10,scale=2"`
	Sold     bool      `json:"sold"`
	Built    time.Time `json:"built"`
	Photo    []byte    `json:"photo" ystore:",omit=get|options"`
	Internal string    `ystore:"-"`
	hidden   int
}

func (reflectedCar) ResourceConfig() ResourceConfig {
	return ResourceConfig{Slug: "car"}
}

func TestReflectStructTags(t *testing.T) {
	m, err := Reflect(&reflectedCar{})
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if m.Name() != "reflectedCar" || ResolveResourceName(m, "get", "") != "car" {
		t.Fatalf("name/resource: %s %s", m.Name(), ResolveResourceName(m, "get", ""))
	}
	props := m.Properties()
	if len(props) != 6 {
		t.Fatalf("expected 6 properties, got %d: %+v", len(props), props)
	}
	want := []struct {
		name, target string
		typ          PrimitiveType
	}{
		{"id", "car_id", TypeUUID},
		{"make", "make", TypeString},
		{"price", "price", TypeNumber},
		{"sold", "sold", TypeBoolean},
		{"built", "built", TypeDate},
		{"photo", "photo", TypeBinary},
	}
	for i, w := range want {
		p := props[i]
		if p.Name != w.name || p.Target != w.target || p.Type != w.typ {
			t.Fatalf("property %d: got %+v, want %+v", i, p, w)
		}
	}
	if !props[0].PK || !props[1].Required || props[1].Length != 64 || props[2].Scale != 2 {
		t.Fatalf("tag options lost: %+v", props)
	}
	if !props[5].Omit.Applies("options") || props[5].Omit.Applies("post") {
		t.Fatalf("omit kinds: %+v", props[5].Omit)
	}
}

func TestReflectRejectsNonStruct(t *testing.T) {
	if _, err := Reflect(42); err == nil {
		t.Fatalf("expected error")
	}
}

func TestReflectReturnsModelsUnchanged(t *testing.T) {
	d := New("Car", ResourceConfig{})
	m, err := Reflect(d)
	if err != nil || m != Model(d) {
		t.Fatalf("expected the definition back, got %v %v", m, err)
	}
}
