package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect captures the SQL differences between the supported stores.
// Queries are written with MySQL style "?" placeholders and rebound for
// PostgreSQL.
type Dialect int

const (
	MySQL Dialect = iota
	Postgres
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "mysql":
		return MySQL, nil
	case "postgres", "pgx":
		return Postgres, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDialect, driver)
}

func (d Dialect) String() string {
	switch d {
	case MySQL:
		return "mysql"
	case Postgres:
		return "postgres"
	}
	return "dialect(" + strconv.Itoa(int(d)) + ")"
}

// Rebind rewrites "?" placeholders into "$1".."$n" for PostgreSQL and
// returns the query unchanged for MySQL.  Queries in this package never
// contain a literal question mark.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertReturning executes an INSERT and returns the generated id and
// created_at of the new row.  PostgreSQL reports both through a
// RETURNING clause in the same statement.  MySQL has no RETURNING, so
// the id comes from LastInsertId and created_at is read back by id;
// inside a transaction that read sees the uncommitted insert.
func (d Dialect) insertReturning(ctx context.Context, q querier, table, insert string, args ...any) (int64, time.Time, error) {
	var (
		id        int64
		createdAt time.Time
	)
	if d == Postgres {
		err := q.QueryRowContext(ctx, d.Rebind(insert+" RETURNING id, created_at"), args...).Scan(&id, &createdAt)
		return id, createdAt, err
	}
	res, err := q.ExecContext(ctx, insert, args...)
	if err != nil {
		return 0, time.Time{}, err
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, time.Time{}, err
	}
	err = q.QueryRowContext(ctx, "SELECT created_at FROM "+table+" WHERE id = ?", id).Scan(&createdAt)
	return id, createdAt, err
}
