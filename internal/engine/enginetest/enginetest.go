// Package enginetest holds the behavior every engine must share. Engine
// packages run it from their own tests.
package enginetest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Ystore/internal/engine"
	"Ystore/internal/filter"
	"Ystore/internal/model"
	"Ystore/internal/request"
	"Ystore/internal/response"
)

// Resource is the storage name of the Car fixture. SQL engines create a
// table with the columns listed in Columns before running the suite.
const Resource = "cars"

// Columns are the storage columns of the Car fixture with their SQL types.
var Columns = [][2]string{
	{"car_vin", "TEXT PRIMARY KEY"},
	{"make", "TEXT"},
	{"year", "INTEGER"},
	{"price", "REAL"},
}

// Car is the model every scenario binds.
func Car() *model.Definition {
	return model.New("Car", model.ResourceConfig{Resource: Resource},
		model.Property{Name: "vin", Target: "car_vin", Type: model.TypeString, PK: true},
		model.Property{Name: "make", Type: model.TypeString, Transform: []model.TransformFunc{trim}},
		model.Property{Name: "year", Type: model.TypeInteger, Default: int64(2020)},
		model.Property{Name: "price", Type: model.TypeNumber, Validate: []model.ValidateFunc{
			model.Predicate(func(v any) bool {
				f, ok := number(v)
				return ok && f >= 0
			}),
		}},
	)
}

func trim(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// Run exercises e through a dispatcher. newEngine must return an engine
// with an empty Car resource.
func Run(t *testing.T, newEngine func(t *testing.T) engine.Engine) {
	t.Helper()
	ctx := context.Background()
	car := Car()

	setup := func(t *testing.T) *engine.Dispatcher {
		d := engine.NewDispatcher()
		d.Register(newEngine(t))
		resp, err := d.Dispatch(ctx, request.NewPost().Model(car).Objects(
			map[string]any{"vin": "A", "make": " Volvo ", "price": 30},
			map[string]any{"vin": "B", "make": "Saab", "year": 1999, "price": 10},
			map[string]any{"vin": "C", "make": "Volvo", "year": 2010, "price": 20},
		))
		require.NoError(t, err)
		require.Equal(t, 3, resp.Affected)
		require.Empty(t, resp.Errors)
		return d
	}

	get := func(t *testing.T, d *engine.Dispatcher, req *request.GetRequest) *response.Response {
		t.Helper()
		resp, err := d.Dispatch(ctx, req.Model(car))
		require.NoError(t, err)
		require.NoError(t, resp.Check(req.Meta().Count))
		return resp
	}

	t.Run("options describes the model", func(t *testing.T) {
		d := setup(t)
		resp, err := d.Dispatch(ctx, request.NewOptions().Model(car))
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "Car", resp.Data[0]["model"])
		assert.Equal(t, Resource, resp.Data[0]["resource"])
	})

	t.Run("post applies the model pipeline", func(t *testing.T) {
		d := setup(t)
		resp := get(t, d, request.NewGet().Where(`{vin} == "A"`))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "Volvo", resp.Data[0]["make"])
		year, _ := number(resp.Data[0]["year"])
		assert.Equal(t, 2020.0, year)
	})

	t.Run("post refuses objects the model rejects", func(t *testing.T) {
		d := setup(t)
		_, err := d.Dispatch(ctx, request.NewPost().Model(car).Objects(
			map[string]any{"vin": "X", "make": "Kia", "price": -1},
			map[string]any{"vin": "Y", "make": "Kia", "price": 5},
		))
		var ve *model.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "price", ve.Property)

		all := get(t, d, request.NewGet().Count())
		assert.Equal(t, 3, all.Total)
	})

	t.Run("post refuses a stored key", func(t *testing.T) {
		d := setup(t)
		resp, err := d.Dispatch(ctx, request.NewPost().Model(car).Objects(
			map[string]any{"vin": "A", "make": "Kia", "price": 1},
			map[string]any{"vin": "Q", "make": "Kia", "price": 2},
			map[string]any{"vin": "Q", "make": "Kia", "price": 3},
		))
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Affected)
		require.Len(t, resp.Errors, 2)
		assert.Equal(t, 0, *resp.Errors[0].Index)
		assert.Equal(t, 2, *resp.Errors[1].Index)

		a := get(t, d, request.NewGet().Where(`{vin} == "A"`))
		require.Len(t, a.Data, 1)
		assert.Equal(t, "Volvo", a.Data[0]["make"])
		q := get(t, d, request.NewGet().Where(`{vin} == "Q"`))
		require.Len(t, q.Data, 1)
		price, _ := number(q.Data[0]["price"])
		assert.Equal(t, 2.0, price)
	})

	t.Run("get filters and sorts", func(t *testing.T) {
		d := setup(t)
		resp := get(t, d, request.NewGet().Where(`{make} == "Volvo"`).Sort("price", request.Desc))
		assert.Equal(t, []string{"A", "C"}, vins(resp))
		assert.Equal(t, 2, resp.Total)

		resp = get(t, d, request.NewGet().Where(func(b *filter.Builder) {
			b.And("price", filter.LessThan, 25).And("year", filter.GreaterOrEqual, 2000)
		}))
		assert.Equal(t, []string{"C"}, vins(resp))

		resp = get(t, d, request.NewGet().Where(`({make} ^~ "Sa" OR {price} >= 30)`).Sort("vin"))
		assert.Equal(t, []string{"A", "B"}, vins(resp))
	})

	t.Run("text operators are literal and case-sensitive", func(t *testing.T) {
		d := setup(t)
		for where, want := range map[string]int{
			`{make} ~~ "%"`:     0,
			`{make} ~~ "_"`:     0,
			`{make} ~~ "*"`:     0,
			`{make} ~~ "volvo"`: 0,
			`{make} ~~ "olv"`:   2,
			`{make} ^~ "Vo"`:    2,
			`{make} ^~ "vo"`:    0,
			`{make} ~$ "ab"`:    1,
			`{make} ~$ "AB"`:    0,
		} {
			resp := get(t, d, request.NewGet().Where(where).Count())
			assert.Equal(t, want, resp.Total, where)
		}
	})

	t.Run("get pages and projects", func(t *testing.T) {
		d := setup(t)
		resp := get(t, d, request.NewGet().Sort("price").Skip(1).Take(1).Properties("vin"))
		assert.Equal(t, []map[string]any{{"vin": "C"}}, resp.Data)
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, 1, resp.Returned)
	})

	t.Run("get count", func(t *testing.T) {
		d := setup(t)
		resp := get(t, d, request.NewGet().Where(`{make} == "Volvo"`).Count())
		assert.Empty(t, resp.Data)
		assert.Equal(t, 0, resp.Returned)
		assert.Equal(t, 2, resp.Total)
	})

	t.Run("put matches by primary key", func(t *testing.T) {
		d := setup(t)
		resp, err := d.Dispatch(ctx, request.NewPut().Model(car).Objects(
			map[string]any{"vin": "A", "make": "Volvo", "year": 2001, "price": 35},
			map[string]any{"vin": "D", "make": "Fiat", "year": 2015, "price": 5},
		))
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Affected)

		all := get(t, d, request.NewGet().Sort("vin"))
		assert.Equal(t, []string{"A", "B", "C", "D"}, vins(all))
		price, _ := number(all.Data[0]["price"])
		assert.Equal(t, 35.0, price)
	})

	t.Run("patch without where or all affects nothing", func(t *testing.T) {
		d := setup(t)
		resp, err := d.Dispatch(ctx, request.NewPatch().Model(car).Template(map[string]any{"price": 1}))
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Affected)

		resp, err = d.Dispatch(ctx, request.NewPatch().Model(car).Template(map[string]any{"price": 1}).All(false))
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Affected)
	})

	t.Run("patch all affects every object", func(t *testing.T) {
		d := setup(t)
		resp, err := d.Dispatch(ctx, request.NewPatch().Model(car).Template(map[string]any{"price": 1}).All(true))
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Affected)

		cheap := get(t, d, request.NewGet().Where(`{price} == 1`).Count())
		assert.Equal(t, 3, cheap.Total)
	})

	t.Run("patch where wins over all", func(t *testing.T) {
		d := setup(t)
		resp, err := d.Dispatch(ctx, request.NewPatch().Model(car).All().
			Where(`{make} == "Saab"`).Template(map[string]any{"make": "Scania"}))
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Affected)

		resp = get(t, d, request.NewGet().Where(`{make} == "Scania"`))
		assert.Equal(t, []string{"B"}, vins(resp))
	})

	t.Run("patch count mode", func(t *testing.T) {
		d := setup(t)
		resp, err := d.Dispatch(ctx, request.NewPatch().Model(car).All().Count().Template(map[string]any{"year": 2000}))
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Affected)
		assert.Empty(t, resp.Data)
		assert.Equal(t, 0, resp.Returned)
	})

	t.Run("delete", func(t *testing.T) {
		d := setup(t)
		resp, err := d.Dispatch(ctx, request.NewDelete().Model(car))
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Affected)

		resp, err = d.Dispatch(ctx, request.NewDelete().Model(car).Where(`{vin} [] ["A", "B"]`))
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Affected)

		resp, err = d.Dispatch(ctx, request.NewDelete().Model(car).All())
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Affected)

		left := get(t, d, request.NewGet().Count())
		assert.Equal(t, 0, left.Total)
	})
}

func vins(resp *response.Response) []string {
	out := make([]string, 0, len(resp.Data))
	for _, row := range resp.Data {
		out = append(out, fmt.Sprint(row["vin"]))
	}
	return out
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
