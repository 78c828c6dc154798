// Package sqlstore is an engine over database/sql. Statements are built with
// squirrel; the dialect decides the driver name and placeholder format.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"

	"Ystore/internal/engine"
	"Ystore/internal/engine/query"
	"Ystore/internal/model"
	"Ystore/internal/request"
	"Ystore/internal/response"
)

// Dialect describes one SQL backend.
type Dialect struct {
	Name        string
	Driver      string
	Placeholder squirrel.PlaceholderFormat
}

var (
	// Postgres uses the pgx database/sql driver.
	Postgres = Dialect{Name: "postgres", Driver: "pgx", Placeholder: squirrel.Dollar}
	// SQLite uses mattn/go-sqlite3.
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite3", Placeholder: squirrel.Question}
)

// DialectByName returns the dialect called name.
func DialectByName(name string) (Dialect, error) {
	switch name {
	case Postgres.Name, "pgx", "postgresql":
		return Postgres, nil
	case SQLite.Name, "sqlite3":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unknown sql dialect %q", name)
}

type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Engine struct {
	name    string
	db      *sql.DB
	dialect Dialect
	sb      squirrel.StatementBuilderType
}

var _ engine.Engine = (*Engine)(nil)

// New returns an engine named name over db.
func New(name string, db *sql.DB, d Dialect) *Engine {
	return &Engine{
		name:    name,
		db:      db,
		dialect: d,
		sb:      squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder),
	}
}

func (e *Engine) Name() string     { return e.name }
func (e *Engine) Dialect() Dialect { return e.dialect }

// Options describes the bound model, or the table columns when no model is
// bound.
func (e *Engine) Options(ctx context.Context, m request.Meta) (*response.Response, error) {
	if m.Model != nil {
		return query.Describe(m, nil), nil
	}
	table, err := quoteIdent(m.Resource)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	q, args, err := e.sb.Select("*").From(table).Limit(0).ToSql()
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	return query.Describe(m, cols), nil
}

func (e *Engine) Get(ctx context.Context, m request.Meta) (*response.Response, error) {
	table, err := quoteIdent(m.Resource)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	where, err := buildWhere(query.Where(m), e.dialect)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	cols := []string{"*"}
	if len(m.Properties) > 0 {
		cols = cols[:0]
		for _, p := range m.Properties {
			c, err := quoteIdent(targetOf(m, p))
			if err != nil {
				return nil, engine.Wrap(e.name, m, err)
			}
			cols = append(cols, c)
		}
	}

	sel := e.sb.Select(cols...).From(table)
	if where != nil {
		sel = sel.Where(where)
	}
	if m.Distinct {
		sel = sel.Distinct()
	}

	countQ := e.sb.Select("COUNT(*)").FromSelect(sel, "matched")
	q, args, err := countQ.ToSql()
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	var total int
	if err := e.db.QueryRowContext(ctx, q, args...).Scan(&total); err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	if m.Count {
		return response.Counted(total), nil
	}

	for _, s := range m.Sorts {
		c, err := quoteIdent(targetOf(m, s.Property))
		if err != nil {
			return nil, engine.Wrap(e.name, m, err)
		}
		sel = sel.OrderBy(c + " " + string(s.Direction))
	}
	if m.Take > 0 {
		sel = sel.Limit(uint64(m.Take))
	} else if m.Skip > 0 {
		sel = sel.Limit(math.MaxInt64)
	}
	if m.Skip > 0 {
		sel = sel.Offset(uint64(m.Skip))
	}
	rows, err := e.selectRows(ctx, e.db, sel)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	return response.Rows(query.Output(rows, m), total), nil
}

// Post inserts each object. When the model declares primary keys, an object
// whose key matches a stored row is refused.
func (e *Engine) Post(ctx context.Context, m request.Meta) (*response.Response, error) {
	table, err := quoteIdent(m.Resource)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	records, rejected := query.Records(m)
	keys := query.ModelKeys(m)
	written := make([]map[string]any, 0, len(records))
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			match, err := keyMatch(rec.Row, keys)
			if err != nil {
				return err
			}
			if match != nil {
				taken, err := e.exists(ctx, tx, e.sb.Select("1").From(table).Where(match).Limit(1))
				if err != nil {
					return err
				}
				if taken {
					k, _ := query.Key(rec.Row, keys)
					rejected = append(rejected, query.Rejected{Index: rec.Index, Err: fmt.Errorf("duplicate primary key %s", k)})
					continue
				}
			}
			set, err := setMap(rec.Row)
			if err != nil {
				return err
			}
			if _, err := e.exec(ctx, tx, e.sb.Insert(table).SetMap(set)); err != nil {
				return err
			}
			written = append(written, rec.Row)
		}
		return nil
	})
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].Index < rejected[j].Index })
	resp := response.Changed(len(written), query.Output(written, m))
	return query.Report(resp, rejected).Finalize(m.Count), nil
}

// Put updates the row matching each object's primary key, inserting it when
// no row matches.
func (e *Engine) Put(ctx context.Context, m request.Meta) (*response.Response, error) {
	table, err := quoteIdent(m.Resource)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	keys := query.PrimaryTargets(m)
	records, rejected := query.Records(m)
	written := make([]map[string]any, 0, len(records))
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			match, err := keyMatch(rec.Row, keys)
			if err != nil {
				return err
			}
			if match == nil {
				rejected = append(rejected, query.Rejected{Index: rec.Index, Err: fmt.Errorf("object is missing primary key %v", m.PK)})
				continue
			}
			set, err := setMap(rec.Row)
			if err != nil {
				return err
			}
			n, err := e.exec(ctx, tx, e.sb.Update(table).SetMap(set).Where(match))
			if err != nil {
				return err
			}
			if n == 0 {
				if _, err := e.exec(ctx, tx, e.sb.Insert(table).SetMap(set)); err != nil {
					return err
				}
			}
			written = append(written, rec.Row)
		}
		return nil
	})
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].Index < rejected[j].Index })
	resp := response.Changed(len(written), query.Output(written, m))
	return query.Report(resp, rejected).Finalize(m.Count), nil
}

func (e *Engine) Patch(ctx context.Context, m request.Meta) (*response.Response, error) {
	table, err := quoteIdent(m.Resource)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	if !m.AffectsAll() && m.Where.Empty() {
		return response.Changed(0, nil).Finalize(m.Count), nil
	}
	tpl, err := query.Template(m)
	if err != nil {
		return query.Report(response.Changed(0, nil), []query.Rejected{{Index: -1, Err: err}}), nil
	}
	if len(tpl) == 0 {
		return query.Report(response.Changed(0, nil), []query.Rejected{{Index: -1, Err: errors.New("empty template")}}), nil
	}
	where, err := buildWhere(query.Where(m), e.dialect)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	set, err := setMap(tpl)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}

	var changed []map[string]any
	var affected int64
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		sel := e.sb.Select("*").From(table)
		upd := e.sb.Update(table).SetMap(set)
		if where != nil {
			sel = sel.Where(where)
			upd = upd.Where(where)
		}
		rows, err := e.selectRows(ctx, tx, sel)
		if err != nil {
			return err
		}
		if affected, err = e.exec(ctx, tx, upd); err != nil {
			return err
		}
		for _, r := range rows {
			changed = append(changed, query.Merge(r, tpl))
		}
		return nil
	})
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	resp := response.Changed(int(affected), query.Output(changed, m))
	return resp.Finalize(m.Count), nil
}

func (e *Engine) Delete(ctx context.Context, m request.Meta) (*response.Response, error) {
	table, err := quoteIdent(m.Resource)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	if !m.AffectsAll() && m.Where.Empty() {
		return response.Changed(0, nil).Finalize(m.Count), nil
	}
	where, err := buildWhere(query.Where(m), e.dialect)
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}

	var removed []map[string]any
	var affected int64
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		sel := e.sb.Select("*").From(table)
		del := e.sb.Delete(table)
		if where != nil {
			sel = sel.Where(where)
			del = del.Where(where)
		}
		var err error
		if removed, err = e.selectRows(ctx, tx, sel); err != nil {
			return err
		}
		affected, err = e.exec(ctx, tx, del)
		return err
	})
	if err != nil {
		return nil, engine.Wrap(e.name, m, err)
	}
	return response.Changed(int(affected), query.Output(removed, m)).Finalize(m.Count), nil
}

func (e *Engine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (e *Engine) exec(ctx context.Context, r runner, b squirrel.Sqlizer) (int64, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", q, err)
	}
	return res.RowsAffected()
}

func (e *Engine) exists(ctx context.Context, r runner, b squirrel.SelectBuilder) (bool, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = r.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", q, err)
	}
	return true, nil
}

// keyMatch returns the equality condition on keys for row, or nil when keys
// is empty or row lacks one of them.
func keyMatch(row map[string]any, keys []string) (squirrel.Eq, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	match := squirrel.Eq{}
	for _, k := range keys {
		v, ok := row[k]
		if !ok || v == nil {
			return nil, nil
		}
		col, err := quoteIdent(k)
		if err != nil {
			return nil, err
		}
		match[col] = v
	}
	return match, nil
}

func (e *Engine) selectRows(ctx context.Context, r runner, b squirrel.SelectBuilder) ([]map[string]any, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = normalize(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// setMap quotes column names and encodes nested values as JSON text.
func setMap(row map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(row))
	for k, v := range row {
		col, err := quoteIdent(k)
		if err != nil {
			return nil, err
		}
		switch v.(type) {
		case map[string]any, []any:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", k, err)
			}
			v = string(b)
		}
		out[col] = v
	}
	return out, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC()
	}
	return v
}

func targetOf(m request.Meta, name string) string {
	return model.TargetOf(m.Model, name)
}
