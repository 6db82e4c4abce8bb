// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package schema reads table and column metadata from information_schema and
// renders it as the plain-text description handed to the model.
//
// Tables and columns keep the order in which the catalog returns them; nothing
// is re-sorted, so the rendered text is stable for a fixed catalog snapshot.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	apperrors "sqlai/cli/internal/errors"

	sq "github.com/Masterminds/squirrel"
)

// DefaultNamespace is the schema inspected when none is configured.
const DefaultNamespace = "public"

// Column describes one column of a table.
type Column struct {
	Name     string
	DataType string
	Nullable bool
}

// Table is a table name and its columns in catalog order.
type Table struct {
	Name    string
	Columns []Column
}

// Description is the immutable snapshot of a namespace.
type Description struct {
	Namespace string
	Tables    []Table
}

// Querier is the subset of *sql.DB used by the Introspector.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Introspector queries the catalog for one namespace.
type Introspector struct {
	db        Querier
	namespace string
	psql      sq.StatementBuilderType
}

// NewIntrospector creates an Introspector; an empty namespace means "public".
func NewIntrospector(db Querier, namespace string) *Introspector {
	if strings.TrimSpace(namespace) == "" {
		namespace = DefaultNamespace
	}
	return &Introspector{
		db:        db,
		namespace: namespace,
		psql:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Describe lists the tables of the namespace and, for each one in listing
// order, its columns. Any catalog failure aborts the whole description.
func (in *Introspector) Describe(ctx context.Context) (Description, error) {
	names, err := in.listTables(ctx)
	if err != nil {
		return Description{}, apperrors.Wrap(apperrors.IntrospectFailed, "list tables", err)
	}

	desc := Description{Namespace: in.namespace, Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		cols, err := in.listColumns(ctx, name)
		if err != nil {
			return Description{}, apperrors.Wrap(apperrors.IntrospectFailed, fmt.Sprintf("list columns of %s", name), err)
		}
		desc.Tables = append(desc.Tables, Table{Name: name, Columns: cols})
	}
	return desc, nil
}

func (in *Introspector) listTables(ctx context.Context) ([]string, error) {
	query, args, err := in.psql.
		Select("table_name").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": in.namespace}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := in.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (in *Introspector) listColumns(ctx context.Context, table string) ([]Column, error) {
	query, args, err := in.psql.
		Select("column_name", "data_type", "is_nullable").
		From("information_schema.columns").
		Where(sq.And{
			sq.Eq{"table_schema": in.namespace},
			sq.Eq{"table_name": table},
		}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := in.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			col      Column
			nullable string
		)
		if err := rows.Scan(&col.Name, &col.DataType, &nullable); err != nil {
			return nil, err
		}
		col.Nullable = strings.EqualFold(strings.TrimSpace(nullable), "YES")
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// Empty reports whether the namespace has no tables.
func (d Description) Empty() bool {
	return len(d.Tables) == 0
}

// Table looks a table up by name.
func (d Description) Table(name string) (Table, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Render produces one block per table: a "Table:" header, one indented line
// per column and a trailing blank line.
func (d Description) Render() string {
	var b strings.Builder
	for _, t := range d.Tables {
		b.WriteString(t.Render())
	}
	return b.String()
}

// Render produces the block for a single table.
func (t Table) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n", t.Name)
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "  Column: %s, Type: %s, Nullable: %s\n", c.Name, c.DataType, yesNo(c.Nullable))
	}
	b.WriteString("\n")
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}
