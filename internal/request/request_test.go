package request

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"

	"Ystore/internal/filter"
	"Ystore/internal/model"
)

var carModel = model.New("Car", model.ResourceConfig{Resource: "cars"},
	model.Property{Name: "vin", Target: "car_vin", Type: model.TypeString, PK: true},
	model.Property{Name: "make", Type: model.TypeString},
)

func TestModelBindingSetsResource(t *testing.T) {
	if got := NewGet().Model(carModel).Resource(); got != "cars" {
		t.Fatalf("resource from model: %q", got)
	}
	named := model.New("Car", model.ResourceConfig{Name: "Car"})
	if got := NewGet().Model(named).Resource(); got != "Car" {
		t.Fatalf("resource from name: %q", got)
	}
}

func TestModelBindingKeepsExplicitResource(t *testing.T) {
	r := NewGet().From("autos").Model(carModel)
	if r.Resource() != "autos" {
		t.Fatalf("explicit resource clobbered: %q", r.Resource())
	}
	r.From("")
	r.Model(carModel)
	if r.Resource() != "cars" {
		t.Fatalf("cleared resource not refilled: %q", r.Resource())
	}
}

func TestPutRecomputesPrimaryKeys(t *testing.T) {
	r := NewPut().PK("id").Model(carModel)
	if !cmp.Equal(r.Meta().PK, []string{"vin"}) {
		t.Fatalf("pk: %v", r.Meta().PK)
	}
	keyless := model.New("Log", model.ResourceConfig{}, model.Property{Name: "msg"})
	r = NewPut().PK("id").Model(keyless)
	if len(r.Meta().PK) != 0 {
		t.Fatalf("pk kept for keyless model: %v", r.Meta().PK)
	}
	var ce *ConfigurationError
	if err := r.Validate(); !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if err := NewPut().Model(keyless).PK("msg").Validate(); err != nil {
		t.Fatalf("pk set after binding: %v", err)
	}
}

var checkedCar = model.New("Car", model.ResourceConfig{Resource: "cars"},
	model.Property{Name: "vin", Target: "car_vin", Type: model.TypeString, PK: true},
	model.Property{Name: "make", Transform: []model.TransformFunc{func(v any) any {
		if v == "" {
			return "unknown"
		}
		return v
	}}, Validate: []model.ValidateFunc{model.Predicate(func(v any) bool { return v != "" })}},
	model.Property{Name: "price", Validate: []model.ValidateFunc{model.Predicate(func(v any) bool {
		f, ok := v.(float64)
		return ok && f >= 0
	})}},
)

func TestValidateChecksPayloadAgainstModel(t *testing.T) {
	err := NewPost().Model(checkedCar).Objects(
		map[string]any{"vin": "A", "price": 1.0},
		map[string]any{"vin": "B", "price": -1.0},
		map[string]any{"vin": "C", "price": "free"},
	).Validate()
	var ve *model.ValidationError
	if !errors.As(err, &ve) || ve.Property != "price" {
		t.Fatalf("expected price ValidationError, got %v", err)
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 2 {
		t.Fatalf("expected two rejected objects, got %v", err)
	}

	if err := NewPut().Model(checkedCar).Objects(map[string]any{"vin": "A", "make": ""}).Validate(); err != nil {
		t.Fatalf("transforms run before validation: %v", err)
	}
	if err := NewPatch().Model(checkedCar).All().Template(map[string]any{"price": -3.0}).Validate(); !errors.As(err, &ve) {
		t.Fatalf("patch template: expected ValidationError, got %v", err)
	}
	if err := NewPost().To("cars").Objects(map[string]any{"price": -1.0}).Validate(); err != nil {
		t.Fatalf("no model bound: %v", err)
	}
}

func TestPutWithoutPrimaryKeyFailsValidation(t *testing.T) {
	err := NewPut().To("logs").Objects(map[string]any{"msg": "x"}).Validate()
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if err := NewPut().Model(carModel).Validate(); err != nil {
		t.Fatalf("pk from model: %v", err)
	}
}

func TestWhereForms(t *testing.T) {
	g := filter.NewGroup(filter.And, filter.Cond("Age", filter.GreaterOrEqual, 21.0))

	r := NewGet().Where(g)
	if r.Meta().Where != g {
		t.Fatalf("group must be stored by reference")
	}
	r.Where(func(b *filter.Builder) { b.And("Age", filter.GreaterOrEqual, 21.0) })
	if !filter.Equivalent(r.Meta().Where, g) {
		t.Fatalf("callback tree differs: %v", r.Meta().Where)
	}
	r.Where("{Age} >= 21")
	if !filter.Equivalent(r.Meta().Where, g) {
		t.Fatalf("parsed tree differs: %v", r.Meta().Where)
	}
	b := filter.NewBuilder().And("Age", filter.GreaterOrEqual, 21.0)
	r.Where(b)
	if !filter.Equivalent(r.Meta().Where, g) {
		t.Fatalf("builder tree differs: %v", r.Meta().Where)
	}
	r.Where(nil)
	if r.Meta().Where != nil {
		t.Fatalf("nil must clear the filter")
	}
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}
}

func TestArgumentErrorsStickAndSkipTheCall(t *testing.T) {
	r := NewGet().Take(10).Where(42).Take(-1).Skip(3)
	var ae *ArgumentError
	if !errors.As(r.Err(), &ae) || ae.Method != "Where" {
		t.Fatalf("expected first error from Where, got %v", r.Err())
	}
	m := r.Meta()
	if m.Take != 10 || m.Skip != 3 || m.Where != nil {
		t.Fatalf("failing calls must not apply: %+v", m)
	}
	if err := r.Validate(); err != r.Err() {
		t.Fatalf("Validate must report the argument error, got %v", err)
	}
}

func TestWhereParseErrorSurfaces(t *testing.T) {
	r := NewDelete().Where("{Age} >=")
	var pe *filter.ParseError
	if !errors.As(r.Err(), &pe) {
		t.Fatalf("expected ParseError, got %v", r.Err())
	}
}

func TestHeaders(t *testing.T) {
	r := NewGet()
	r.Headers(map[string]any{"b": 2, "a": 1})
	if !cmp.Equal(r.Meta().Headers.Keys(), []string{"a", "b"}) {
		t.Fatalf("keys: %v", r.Meta().Headers.Keys())
	}
	r.Headers(map[string]any{"a": nil})
	if _, ok := r.Meta().Headers.Get("a"); ok || r.Meta().Headers.Len() != 1 {
		t.Fatalf("nil value must delete: %v", r.Meta().Headers.Map())
	}
	r.Headers(map[string]string{"timeout": "5s"})
	if r.Meta().Headers.String("timeout") != "5s" {
		t.Fatalf("string map not merged")
	}
	r.Headers(nil)
	if r.Meta().Headers.Len() != 0 {
		t.Fatalf("nil must clear all headers")
	}
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}

	var ae *ArgumentError
	if err := NewGet().Headers().Err(); !errors.As(err, &ae) {
		t.Fatalf("no argument must be an ArgumentError, got %v", err)
	}
	var ke *KeyError
	if err := NewGet().Headers(map[int]any{1: "x"}).Err(); !errors.As(err, &ke) {
		t.Fatalf("expected KeyError, got %v", err)
	}
	if err := NewGet().Headers("x").Err(); !errors.As(err, &ae) {
		t.Fatalf("non-map must be an ArgumentError, got %v", err)
	}
}

func TestCount(t *testing.T) {
	for _, r := range []Request{
		NewOptions().Count(), NewGet().Count(), NewPost().Count(),
		NewPut().Count(), NewPatch().Count(), NewDelete().Count(),
	} {
		if !r.Meta().Count {
			t.Fatalf("%s: count not enabled", r.Kind())
		}
	}
	if NewGet().Count().Count(false).Meta().Count {
		t.Fatalf("Count(false) must disable")
	}
}

type carStruct struct {
	VIN  string `json:"vin"`
	Make string `json:"make"`
}

func TestObjects(t *testing.T) {
	a := map[string]any{"vin": "A"}
	c := &carStruct{VIN: "C", Make: "Saab"}
	r := NewPost().Objects(a, a, c).Objects(a, c)
	objs := r.Meta().Objects
	if len(objs) != 2 {
		t.Fatalf("duplicates not dropped: %v", objs)
	}
	if diff := cmp.Diff(map[string]any{"vin": "C", "make": "Saab"}, objs[1]); diff != "" {
		t.Fatalf("struct record (-want +got):\n%s", diff)
	}

	r = NewPost().Objects(a, "not an object")
	var ae *ArgumentError
	if !errors.As(r.Err(), &ae) || len(r.Meta().Objects) != 0 {
		t.Fatalf("non-object must fail the whole call: %v %v", r.Err(), r.Meta().Objects)
	}
}

func TestAllIgnoredWithConditions(t *testing.T) {
	m := NewPatch().All().Meta()
	if !m.AffectsAll() {
		t.Fatalf("all without where must affect all")
	}
	m = NewPatch().All().Where("{vin} == \"A\"").Meta()
	if m.AffectsAll() {
		t.Fatalf("conditions take precedence over all")
	}
	if NewDelete().Meta().AffectsAll() {
		t.Fatalf("all defaults to false")
	}
}

func TestClear(t *testing.T) {
	r := NewGet().From("cars").Model(carModel).Where("{a} == 1").Count().
		Headers(map[string]any{"x": 1}).Properties("a").Distinct().Skip(1).Take(2).Sort("a", Desc).
		Where(3.5)
	same := r.Clear()
	if same != r {
		t.Fatalf("Clear must return the same request")
	}
	m := r.Meta()
	if m.Resource != "" || m.Where != nil || m.Count || m.Model != nil || m.Headers.Len() != 0 ||
		m.Properties != nil || m.Distinct || m.Skip != 0 || m.Take != 0 || m.Sorts != nil || m.Kind != KindGet {
		t.Fatalf("not cleared: %+v", m)
	}
	if r.Err() != nil {
		t.Fatalf("Clear must drop the argument error")
	}
	r.Model(carModel)
	if r.Resource() != "cars" {
		t.Fatalf("explicit flag must be cleared too")
	}
}

func TestMetaIsASnapshot(t *testing.T) {
	r := NewGet().Properties("a").Headers(map[string]any{"x": 1})
	m := r.Meta()
	r.Properties("b").Headers(map[string]any{"y": 2})
	if !cmp.Equal(m.Properties, []string{"a"}) || m.Headers.Len() != 1 {
		t.Fatalf("snapshot changed: %+v %v", m.Properties, m.Headers.Map())
	}
}

func TestSorts(t *testing.T) {
	r := NewGet().OrderBy("price desc", "make")
	want := []Sort{{"price", Desc}, {"make", Asc}}
	if diff := cmp.Diff(want, r.Meta().Sorts); diff != "" {
		t.Fatalf("sorts (-want +got):\n%s", diff)
	}
	if err := NewGet().Sort("a", "sideways").Err(); err == nil {
		t.Fatalf("invalid direction must fail")
	}
}

func TestWireRoundTrip(t *testing.T) {
	r := NewGet().Model(carModel).Where(`{make} == "Volvo" AND {year} > 2000`).
		Headers(map[string]any{"timeout": "5s"}).Properties("vin", "make").Take(5).Sort("vin")
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["model"] != "Car" || raw["from"] != "cars" {
		t.Fatalf("wire shape: %s", data)
	}
	if h, ok := raw["headers"].(map[string]any); !ok || h["timeout"] != "5s" {
		t.Fatalf("headers must be flat: %s", data)
	}

	lookup := func(name string) (model.Model, bool) { return carModel, name == "Car" }
	back, err := Decode(data, lookup)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, want := back.Meta(), r.Meta()
	if !filter.Equivalent(got.Where, want.Where) {
		t.Fatalf("where: %v vs %v", got.Where, want.Where)
	}
	if got.Resource != want.Resource || got.Take != want.Take || got.Model != want.Model ||
		!cmp.Equal(got.Properties, want.Properties) || !cmp.Equal(got.Sorts, want.Sorts) ||
		!cmp.Equal(got.Headers.Map(), want.Headers.Map()) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"kind":          `{"kind":"merge"}`,
		"model":         `{"kind":"get","model":"Nope"}`,
		"where":         `{"kind":"post","to":"cars","where":{"logic":"AND","filters":[{"property":"a","operator":"eq","value":1}]}}`,
		"objects":       `{"kind":"get","objects":[{"a":1}]}`,
		"negative take": `{"kind":"get","take":-1}`,
	}
	for name, doc := range cases {
		if _, err := Decode([]byte(doc), func(string) (model.Model, bool) { return nil, false }); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDecodePutKeepsOrder(t *testing.T) {
	doc := `{"kind":"put","to":"cars","pk":["vin"],"headers":{"z":1,"a":2},"objects":[{"vin":"A"}]}`
	r, err := Decode([]byte(doc), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := r.Meta()
	if !cmp.Equal(m.Headers.Keys(), []string{"z", "a"}) || !cmp.Equal(m.PK, []string{"vin"}) || len(m.Objects) != 1 {
		t.Fatalf("decoded: %+v", m)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
