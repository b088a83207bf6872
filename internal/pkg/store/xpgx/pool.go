package xpgx

import (
	"context"
	"fmt"
	"reflect"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the thin squirrel-aware wrapper the store builds its queries
// against. Getx/Selectx scan into `db`-tagged structs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Execx(ctx context.Context, query squirrel.Sqlizer) (pgconn.CommandTag, error)
	Getx(ctx context.Context, dst interface{}, query squirrel.Sqlizer) error
	Selectx(ctx context.Context, dst interface{}, query squirrel.Sqlizer) error
	Close()
}

type pool struct {
	inner *pgxpool.Pool
}

func NewPool(ctx context.Context, dsn string) (Pool, error) {
	inner, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := inner.Ping(ctx); err != nil {
		inner.Close()
		return nil, fmt.Errorf("pool.Ping: %w", err)
	}
	return &pool{inner: inner}, nil
}

func (p *pool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return p.inner.Exec(ctx, sql, args...)
}

func (p *pool) Execx(ctx context.Context, query squirrel.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("query.ToSql: %w", err)
	}
	return p.inner.Exec(ctx, sql, args...)
}

func (p *pool) Getx(ctx context.Context, dst interface{}, query squirrel.Sqlizer) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("query.ToSql: %w", err)
	}
	rows, err := p.inner.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return pgx.ErrNoRows
	}
	value := reflect.ValueOf(dst)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("xpgx: Getx dst must be a pointer to struct")
	}
	if err := scanRow(value, rows); err != nil {
		return err
	}
	return rows.Err()
}

func (p *pool) Selectx(ctx context.Context, dst interface{}, query squirrel.Sqlizer) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("query.ToSql: %w", err)
	}
	rows, err := p.inner.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	return scanAll(dst, rows)
}

func (p *pool) Close() {
	p.inner.Close()
}

func scanAll(dst interface{}, rows pgx.Rows) error {
	value := reflect.ValueOf(dst)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("xpgx: Selectx dst must be a pointer to slice")
	}

	slice := value.Elem()
	elemType := slice.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	structType := elemType
	if isPtr {
		structType = elemType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return fmt.Errorf("xpgx: Selectx element must be a struct")
	}

	for rows.Next() {
		item := reflect.New(structType)
		if err := scanRow(item, rows); err != nil {
			return err
		}
		if isPtr {
			slice = reflect.Append(slice, item)
		} else {
			slice = reflect.Append(slice, item.Elem())
		}
	}
	value.Elem().Set(slice)
	return rows.Err()
}

// scanRow maps row columns onto the struct's `db` tags; columns without a
// matching field are discarded.
func scanRow(item reflect.Value, rows pgx.Rows) error {
	structValue := item.Elem()
	byTag := fieldIndexByTag(structValue.Type())

	fields := rows.FieldDescriptions()
	targets := make([]interface{}, len(fields))
	for i, fd := range fields {
		if idx, ok := byTag[string(fd.Name)]; ok {
			targets[i] = structValue.Field(idx).Addr().Interface()
			continue
		}
		var discard interface{}
		targets[i] = &discard
	}
	return rows.Scan(targets...)
}

func fieldIndexByTag(structType reflect.Type) map[string]int {
	out := make(map[string]int, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		tag := structType.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		out[tag] = i
	}
	return out
}
