package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gjb2048/gradereviews/core"
)

// tables resolves host table names, which carry a configurable prefix.
type tables struct {
	conf core.DatabaseConfig
}

func newTables(conf core.DatabaseConfig) tables {
	return tables{conf: conf}
}

func (t tables) name(table string) string { return t.conf.Table(table) }

// sql replaces every {table} placeholder in query with the prefixed table name.
func (t tables) sql(query string) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(query, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(query[start:], '}')
		if end < 0 {
			break
		}
		b.WriteString(query[:start])
		b.WriteString(t.name(query[start+1 : start+end]))
		query = query[start+end+1:]
	}
	b.WriteString(query)
	return b.String()
}

// named binds :name parameters, expands slice parameters and rebinds for the driver.
func named(exec sqlx.ExtContext, query string, arg interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return "", nil, errors.Wrap(err, "binding named query")
	}
	if q, args, err = sqlx.In(q, args...); err != nil {
		return "", nil, errors.Wrap(err, "expanding query")
	}
	return exec.Rebind(q), args, nil
}

// trapNoRowsErr maps the "no rows" error to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// orderBy renders the ordering of the columns allowed in columns ({field: column}).
func orderBy(ordering []core.DBOrdering, columns map[string]string) (string, error) {
	if len(ordering) == 0 {
		return "", nil
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			return "", fmt.Errorf("cannot order by %q", ord.Field)
		}
		ord.Field = col
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", "), nil
}

func getContext(ctx context.Context, exec sqlx.ExtContext, dest interface{}, query string, arg interface{}) error {
	q, args, err := named(exec, query, arg)
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, exec, dest, q, args...)
}

func selectContext(ctx context.Context, exec sqlx.ExtContext, dest interface{}, query string, arg interface{}) error {
	q, args, err := named(exec, query, arg)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, exec, dest, q, args...)
}
