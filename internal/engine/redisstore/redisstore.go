// Package redisstore keeps each resource in one Redis hash. The hash field is
// the object's primary key (or a random UUID) and the value its JSON row.
// Filters, sorting and paging run in process.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"Ystore/internal/engine"
	"Ystore/internal/engine/query"
	"Ystore/internal/request"
	"Ystore/internal/response"
)

const Name = "redis"

type Engine struct {
	name   string
	rdb    redis.UniversalClient
	prefix string
}

var _ engine.Engine = (*Engine)(nil)

// New returns an engine storing hashes under prefix:resource.
func New(name string, rdb redis.UniversalClient, prefix string) *Engine {
	if prefix == "" {
		prefix = "ystore"
	}
	return &Engine{name: name, rdb: rdb, prefix: prefix}
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) key(resource string) string {
	return e.prefix + ":" + resource
}

type entry struct {
	field string
	row   map[string]any
}

// load reads every row of resource ordered by hash field.
func (e *Engine) load(ctx context.Context, resource string) ([]entry, error) {
	raw, err := e.rdb.HGetAll(ctx, e.key(resource)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]entry, 0, len(raw))
	for field, data := range raw {
		var row map[string]any
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
		out = append(out, entry{field: field, row: row})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].field < out[j].field })
	return out, nil
}

func rowsOf(entries []entry) []map[string]any {
	rows := make([]map[string]any, len(entries))
	for i, en := range entries {
		rows[i] = en.row
	}
	return rows
}

func (e *Engine) Options(ctx context.Context, m request.Meta) (*response.Response, error) {
	if m.Model != nil {
		return query.Describe(m, nil), nil
	}
	entries, err := e.load(ctx, m.Resource)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	return query.Describe(m, query.Columns(rowsOf(entries))), nil
}

func (e *Engine) Get(ctx context.Context, m request.Meta) (*response.Response, error) {
	entries, err := e.load(ctx, m.Resource)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	return query.Select(rowsOf(entries), m), nil
}

// Post stores each object under its primary key, or under a new UUID when
// the model declares none. An object whose key is already stored is refused.
func (e *Engine) Post(ctx context.Context, m request.Meta) (*response.Response, error) {
	records, rejected := query.Records(m)
	keys := query.ModelKeys(m)
	fields := make([]string, len(records))
	for i, rec := range records {
		field, ok := query.Key(rec.Row, keys)
		if len(keys) == 0 || !ok {
			field = uuid.NewString()
		}
		fields[i] = field
	}

	var cmds []*redis.BoolCmd
	_, err := e.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, rec := range records {
			data, err := json.Marshal(rec.Row)
			if err != nil {
				return err
			}
			cmds = append(cmds, pipe.HSetNX(ctx, e.key(m.Resource), fields[i], data))
		}
		return nil
	})
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}

	written := make([]map[string]any, 0, len(records))
	for i, cmd := range cmds {
		if !cmd.Val() {
			rejected = append(rejected, query.Rejected{Index: records[i].Index, Err: fmt.Errorf("duplicate primary key %s", fields[i])})
			continue
		}
		written = append(written, records[i].Row)
	}
	sortRejected(rejected)
	resp := response.Changed(len(written), query.Output(written, m))
	return query.Report(resp, rejected).Finalize(m.Count), nil
}

// Put replaces the object stored under each primary key.
func (e *Engine) Put(ctx context.Context, m request.Meta) (*response.Response, error) {
	records, rejected := query.Records(m)
	keys := query.PrimaryTargets(m)
	written := make([]map[string]any, 0, len(records))

	_, err := e.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range records {
			field, ok := query.Key(rec.Row, keys)
			if !ok {
				rejected = append(rejected, query.Rejected{Index: rec.Index, Err: fmt.Errorf("object is missing primary key %v", m.PK)})
				continue
			}
			data, err := json.Marshal(rec.Row)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, e.key(m.Resource), field, data)
			written = append(written, rec.Row)
		}
		return nil
	})
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	sortRejected(rejected)
	resp := response.Changed(len(written), query.Output(written, m))
	return query.Report(resp, rejected).Finalize(m.Count), nil
}

func (e *Engine) Patch(ctx context.Context, m request.Meta) (*response.Response, error) {
	tpl, err := query.Template(m)
	if err != nil {
		return query.Report(response.Changed(0, nil), []query.Rejected{{Index: -1, Err: err}}), nil
	}
	entries, err := e.load(ctx, m.Resource)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	idx := query.Affected(rowsOf(entries), m)
	if len(idx) == 0 {
		return response.Changed(0, nil).Finalize(m.Count), nil
	}
	values := make([]any, 0, 2*len(idx))
	changed := make([]map[string]any, 0, len(idx))
	for _, i := range idx {
		row := query.Merge(entries[i].row, tpl)
		data, err := json.Marshal(row)
		if err != nil {
			return nil, engine.Wrap(e.name, m, err)
		}
		values = append(values, entries[i].field, data)
		changed = append(changed, row)
	}
	_, err = e.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, e.key(m.Resource), values...)
		return nil
	})
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	return response.Changed(len(changed), query.Output(changed, m)).Finalize(m.Count), nil
}

func (e *Engine) Delete(ctx context.Context, m request.Meta) (*response.Response, error) {
	entries, err := e.load(ctx, m.Resource)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	idx := query.Affected(rowsOf(entries), m)
	if len(idx) == 0 {
		return response.Changed(0, nil).Finalize(m.Count), nil
	}
	fields := make([]string, 0, len(idx))
	removed := make([]map[string]any, 0, len(idx))
	for _, i := range idx {
		fields = append(fields, entries[i].field)
		removed = append(removed, entries[i].row)
	}
	n, err := e.rdb.HDel(ctx, e.key(m.Resource), fields...).Result()
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	return response.Changed(int(n), query.Output(removed, m)).Finalize(m.Count), nil
}

func sortRejected(rejected []query.Rejected) {
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].Index < rejected[j].Index })
}
