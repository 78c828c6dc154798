package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"Ystore/internal/model"
	"Ystore/internal/request"
	"Ystore/internal/response"
)

type MockEngine struct {
	mock.Mock
	name string
}

func (m *MockEngine) Name() string { return m.name }

func (m *MockEngine) run(op string, ctx context.Context, meta request.Meta) (*response.Response, error) {
	args := m.MethodCalled(op, ctx, meta)
	var resp *response.Response
	if r := args.Get(0); r != nil {
		resp = r.(*response.Response)
	}
	return resp, args.Error(1)
}

func (m *MockEngine) Options(ctx context.Context, meta request.Meta) (*response.Response, error) {
	return m.run("Options", ctx, meta)
}
func (m *MockEngine) Get(ctx context.Context, meta request.Meta) (*response.Response, error) {
	return m.run("Get", ctx, meta)
}
func (m *MockEngine) Post(ctx context.Context, meta request.Meta) (*response.Response, error) {
	return m.run("Post", ctx, meta)
}
func (m *MockEngine) Put(ctx context.Context, meta request.Meta) (*response.Response, error) {
	return m.run("Put", ctx, meta)
}
func (m *MockEngine) Patch(ctx context.Context, meta request.Meta) (*response.Response, error) {
	return m.run("Patch", ctx, meta)
}
func (m *MockEngine) Delete(ctx context.Context, meta request.Meta) (*response.Response, error) {
	return m.run("Delete", ctx, meta)
}

func TestDispatchRoutesByResource(t *testing.T) {
	d := NewDispatcher()
	mem := &MockEngine{name: "memory"}
	sql := &MockEngine{name: "sql"}
	d.Register(mem)
	d.Register(sql)
	d.Route("cars", "sql")

	want := response.Rows([]map[string]any{{"vin": "A"}}, 1)
	sql.On("Get", mock.Anything, mock.MatchedBy(func(m request.Meta) bool {
		return m.Resource == "cars" && m.Kind == request.KindGet
	})).Return(want, nil).Once()
	mem.On("Get", mock.Anything, mock.Anything).Return(response.Rows(nil, 0), nil).Once()

	got, err := d.Dispatch(context.Background(), request.NewGet().From("cars"))
	require.NoError(t, err)
	assert.Same(t, want, got)

	_, err = d.Dispatch(context.Background(), request.NewGet().From("users"))
	require.NoError(t, err)

	sql.AssertExpectations(t)
	mem.AssertExpectations(t)
	assert.Equal(t, []string{"memory", "sql"}, d.Engines())
}

func TestDispatchConfigurationErrors(t *testing.T) {
	d := NewDispatcher()
	var ce *request.ConfigurationError

	_, err := d.Dispatch(context.Background(), request.NewGet().From("cars"))
	require.ErrorAs(t, err, &ce, "no engine registered")

	e := &MockEngine{name: "memory"}
	d.Register(e)
	d.Route("cars", "redis")
	_, err = d.Dispatch(context.Background(), request.NewGet().From("cars"))
	require.ErrorAs(t, err, &ce, "route to unknown engine")

	_, err = d.Dispatch(context.Background(), request.NewGet())
	require.ErrorAs(t, err, &ce, "missing resource")

	_, err = d.Dispatch(context.Background(), request.NewPut().To("logs"))
	require.ErrorAs(t, err, &ce, "put without pk")

	e.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	e.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestDispatchRefusesErroredRequests(t *testing.T) {
	d := NewDispatcher()
	e := &MockEngine{name: "memory"}
	d.Register(e)

	_, err := d.Dispatch(context.Background(), request.NewGet().From("cars").Take(-1))
	var ae *request.ArgumentError
	require.ErrorAs(t, err, &ae)
	assert.Empty(t, e.Calls)
}

func TestDispatchRefusesPayloadsTheModelRejects(t *testing.T) {
	d := NewDispatcher()
	e := &MockEngine{name: "memory"}
	d.Register(e)
	car := model.New("Car", model.ResourceConfig{Resource: "cars"},
		model.Property{Name: "vin", PK: true},
		model.Property{Name: "price", Validate: []model.ValidateFunc{
			model.Predicate(func(v any) bool { f, ok := v.(float64); return ok && f >= 0 }),
		}})

	_, err := d.Dispatch(context.Background(), request.NewPost().Model(car).Objects(
		map[string]any{"vin": "A", "price": 5.0},
		map[string]any{"vin": "B", "price": -1.0},
	))
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "price", ve.Property)

	_, err = d.Dispatch(context.Background(), request.NewPatch().Model(car).All().Template(map[string]any{"price": -2.0}))
	require.ErrorAs(t, err, &ve)

	e.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)
	e.AssertNotCalled(t, "Patch", mock.Anything, mock.Anything)
	assert.Empty(t, e.Calls)
}

func TestDispatchPassesEngineErrorsUnchanged(t *testing.T) {
	d := NewDispatcher()
	e := &MockEngine{name: "memory"}
	d.Register(e)
	boom := errors.New("disk on fire")
	e.On("Delete", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := d.Dispatch(context.Background(), request.NewDelete().From("cars").All())
	assert.Same(t, boom, err)
}

func TestDispatchForwardsBoundModel(t *testing.T) {
	d := NewDispatcher()
	e := &MockEngine{name: "memory"}
	d.Register(e)
	car := model.New("Car", model.ResourceConfig{Resource: "cars"},
		model.Property{Name: "vin", PK: true})

	e.On("Put", mock.Anything, mock.MatchedBy(func(m request.Meta) bool {
		return m.Model == model.Model(car) && len(m.PK) == 1 && m.PK[0] == "vin" && m.Resource == "cars"
	})).Return(response.Changed(1, nil), nil)

	resp, err := d.Dispatch(context.Background(), request.NewPut().Model(car).Objects(map[string]any{"vin": "A"}))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Affected)
	e.AssertExpectations(t)
}

func TestDispatchNilResponseIsAnEngineError(t *testing.T) {
	d := NewDispatcher()
	e := &MockEngine{name: "memory"}
	d.Register(e)
	e.On("Options", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := d.Dispatch(context.Background(), request.NewOptions().From("cars"))
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "memory", ee.Engine)
}

func TestPackageDefault(t *testing.T) {
	prev := Default
	Default = NewDispatcher()
	defer func() { Default = prev }()

	e := &MockEngine{name: "memory"}
	Register(e)
	SetDefault("memory")
	e.On("Get", mock.Anything, mock.Anything).Return(response.Counted(3), nil)

	resp, err := Dispatch(context.Background(), request.NewGet().From("cars").Count())
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Empty(t, resp.Data)
}
