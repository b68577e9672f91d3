package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/nestrow/internal/mapper"
	"github.com/roach88/nestrow/internal/querysql"
	"github.com/roach88/nestrow/internal/schema"
)

// Querier runs templates. It is implemented by *Store and *Tx.
type Querier interface {
	// Rows renders tpl, runs it and returns every row keyed by column label.
	Rows(ctx context.Context, tpl *querysql.Template) ([]mapper.Row, error)

	// Fetch runs tpl and decodes the rows against node.
	Fetch(ctx context.Context, tpl *querysql.Template, node schema.Node) ([]mapper.Result, error)

	// Exec runs tpl as a statement and returns the number of affected rows.
	Exec(ctx context.Context, tpl *querysql.Template) (int64, error)

	// Tx runs fn in a transaction, or in a savepoint when already inside one.
	Tx(ctx context.Context, fn func(Querier) error) error
}

var (
	_ Querier = (*Store)(nil)
	_ Querier = (*Tx)(nil)
)

// dbtx is the subset shared by *sql.DB and *sql.Tx.
type dbtx interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type conn struct {
	q    dbtx
	opts *options
}

func (c *conn) render(tpl *querysql.Template) (querysql.Query, error) {
	if tpl == nil {
		return querysql.Query{}, errors.New("render: nil template")
	}
	q, err := tpl.RenderWith(c.opts.placeholder)
	if err != nil {
		return querysql.Query{}, fmt.Errorf("render: %w", err)
	}
	c.opts.logger.Debug("statement", "sql", q.Text, "params", len(q.Values))
	return q, nil
}

// Rows implements Querier.
func (c *conn) Rows(ctx context.Context, tpl *querysql.Template) ([]mapper.Row, error) {
	q, err := c.render(tpl)
	if err != nil {
		return nil, err
	}

	rows, err := c.q.QueryContext(ctx, q.Text, q.Values...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	c.opts.logger.Debug("fetched rows", "count", len(out))
	return out, nil
}

// Fetch implements Querier.
func (c *conn) Fetch(ctx context.Context, tpl *querysql.Template, node schema.Node) ([]mapper.Result, error) {
	rows, err := c.Rows(ctx, tpl)
	if err != nil {
		return nil, err
	}
	m := mapper.New(
		mapper.WithCaseTransform(c.opts.transform),
		mapper.WithLogger(c.opts.logger),
	)
	return m.Decode(rows, node)
}

// Exec implements Querier.
func (c *conn) Exec(ctx context.Context, tpl *querysql.Template) (int64, error) {
	q, err := c.render(tpl)
	if err != nil {
		return 0, err
	}
	res, err := c.q.ExecContext(ctx, q.Text, q.Values...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Tx implements Querier. It opens a database transaction, runs fn and
// commits. If fn returns an error or panics, the transaction is rolled back.
func (s *Store) Tx(ctx context.Context, fn func(Querier) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	tx := &Tx{conn: conn{q: sqlTx, opts: s.opts}, tx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Tx is a Querier bound to an open transaction.
type Tx struct {
	conn
	tx *sql.Tx
}

// Tx implements Querier with a savepoint inside the open transaction.
func (t *Tx) Tx(ctx context.Context, fn func(Querier) error) error {
	name := savepointName()
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_, _ = t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
			panic(p)
		}
	}()

	if err := fn(t); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func savepointName() string {
	return "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// scanRows reads every row into a mapper.Row. Text columns returned as
// []byte are converted to string.
func scanRows(rows *sql.Rows) ([]mapper.Row, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	names := make([]string, len(types))
	text := make([]bool, len(types))
	for i, ct := range types {
		names[i] = ct.Name()
		text[i] = isTextType(ct.DatabaseTypeName())
	}

	out := []mapper.Row{}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out), err)
		}

		row := make(mapper.Row, len(names))
		for i, name := range names {
			v := values[i]
			if b, ok := v.([]byte); ok && text[i] {
				v = string(b)
			}
			row[name] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func isTextType(name string) bool {
	switch strings.ToUpper(name) {
	case "", "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NAME", "CLOB", "NVARCHAR", "NCHAR":
		return true
	}
	return strings.HasPrefix(strings.ToUpper(name), "VARCHAR") ||
		strings.HasPrefix(strings.ToUpper(name), "CHARACTER")
}
