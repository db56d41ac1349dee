package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
	"github.com/KaramelBytes/reconcile-cli/internal/schema"
	"github.com/KaramelBytes/reconcile-cli/internal/utils"
)

// DefaultTable is the table name used when none is given.
const DefaultTable = "canonical"

// SQLite stages b as a single table in a fresh database at path.
// Declared numeric columns and derived fields are REAL; everything else is
// TEXT. Missing cells are NULL.
func (o *Outputs) SQLite(ctx context.Context, path, table string, b *dataset.Batch, s *schema.Schema) error {
	if table == "" {
		table = DefaultTable
	}
	tmp, err := utils.TempSibling(path)
	if err != nil {
		return err
	}
	if err := fillDB(ctx, tmp, table, b, realColumns(s)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write sqlite %s: %w", path, err)
	}
	o.pending.Add(tmp, path)
	return nil
}

// WriteSQLite stores b as a single table in a fresh database at path.
func WriteSQLite(ctx context.Context, path, table string, b *dataset.Batch, s *schema.Schema) error {
	var o Outputs
	if err := o.SQLite(ctx, path, table, b, s); err != nil {
		return err
	}
	_, err := o.Commit()
	return err
}

func realColumns(s *schema.Schema) map[string]bool {
	out := map[string]bool{}
	if s == nil {
		return out
	}
	for _, c := range s.ColumnsOfType(schema.TypeNumeric) {
		out[c.Name] = true
	}
	for _, d := range s.Derived {
		out[d.Name] = true
	}
	return out
}

func fillDB(ctx context.Context, path, table string, b *dataset.Batch, real map[string]bool) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	var defs, quoted []string
	for _, c := range b.Columns {
		t := "TEXT"
		if real[c] {
			t = "REAL"
		}
		defs = append(defs, fmt.Sprintf("%q %s", c, t))
		quoted = append(quoted, fmt.Sprintf("%q", c))
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %q (%s)`, table, strings.Join(defs, ","))); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(b.Columns)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`, table, strings.Join(quoted, ","), ph))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, r := range b.Rows {
		args := make([]any, len(b.Columns))
		for j, c := range b.Columns {
			args[j] = sqliteValue(r[c], real[c])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

func sqliteValue(v dataset.Value, real bool) any {
	if v.IsMissing() {
		return nil
	}
	if f, ok := v.Float(); ok {
		return f
	}
	if real {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64); err == nil {
			return f
		}
	}
	return v.String()
}
