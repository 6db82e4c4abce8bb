// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"sqlai/cli/internal/config"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
)

// Result is the column list and rows returned by a statement.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON converts driver values that encoding/json renders poorly.
// Byte slices become \x-prefixed hex whatever their length; only a [16]byte
// array is taken to be a UUID.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	a := alias(r)
	if len(r.Rows) > 0 {
		rows := make([][]any, len(r.Rows))
		for i, row := range r.Rows {
			rows[i] = make([]any, len(row))
			for j, v := range row {
				rows[i][j] = jsonValue(v)
			}
		}
		a.Rows = rows
	}
	return json.Marshal(a)
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return fmt.Sprintf("\\x%x", val)
	case [16]byte:
		return uuid.UUID(val).String()
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return val
	}
}

func cellText(v any) string {
	switch val := jsonValue(v).(type) {
	case nil:
		return "NULL"
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// Render writes r to w as a table or as indented JSON.
func Render(w io.Writer, r Result, format string) error {
	if format == config.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	if len(r.Columns) == 0 {
		_, err := fmt.Fprintln(w, "Statement executed; no rows returned.")
		return err
	}

	data := make(pterm.TableData, 0, len(r.Rows)+1)
	data = append(data, r.Columns)
	for _, row := range r.Rows {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = cellText(v)
		}
		data = append(data, line)
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	if _, err := fmt.Fprintln(w, table); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "(%d %s)\n", len(r.Rows), plural(len(r.Rows), "row", "rows"))
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
