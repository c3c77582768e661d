// Package sink writes processed tables to PostgreSQL.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/sheetprep/internal/core"
)

// ErrDisabled is returned when no database is configured.
var ErrDisabled = errors.New("database export disabled")

// Beginner starts a transaction. *pgxpool.Pool and *pgx.Conn satisfy it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres copies tables into PostgreSQL.
type Postgres struct {
	db     Beginner
	logger *slog.Logger
}

// NewPostgres returns a sink backed by db. A nil db yields a sink whose
// Export always fails with ErrDisabled.
func NewPostgres(db Beginner, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// Enabled reports whether a database is configured.
func (p *Postgres) Enabled() bool {
	return p != nil && p.db != nil
}

// Options controls an export.
type Options struct {
	// Replace drops an existing table of the same name first.
	Replace bool
}

// Result describes a finished export.
type Result struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Rows    int64    `json:"rows"`
}

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// TableName normalizes a user-supplied table name.
func TableName(name string) (string, error) {
	n := toDBColumnName(strings.TrimSpace(name))
	if !tableNameRe.MatchString(n) || len(n) > maxIdentLen {
		return "", fmt.Errorf("invalid table name %q: use letters, digits and underscores", name)
	}
	return n, nil
}

// Export creates table and copies every row of t into it in one transaction.
func (p *Postgres) Export(ctx context.Context, table string, t *core.Table, opts Options) (Result, error) {
	if !p.Enabled() {
		return Result{}, ErrDisabled
	}
	name, err := TableName(table)
	if err != nil {
		return Result{}, err
	}

	cols := Columns(t)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}

	start := time.Now()
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin export: %w", err)
	}
	defer tx.Rollback(ctx)

	ident := pgx.Identifier{name}
	if opts.Replace {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
			return Result{}, fmt.Errorf("drop %s: %w", name, err)
		}
	}
	if _, err := tx.Exec(ctx, CreateTableSQL(name, cols)); err != nil {
		return Result{}, fmt.Errorf("create %s: %w", name, err)
	}

	n, err := tx.CopyFrom(ctx, ident, names, pgx.CopyFromRows(copyRows(t, cols)))
	if err != nil {
		return Result{}, fmt.Errorf("copy into %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("commit export: %w", err)
	}

	p.logger.Info("table exported",
		"table", name,
		"rows", n,
		"columns", len(cols),
		"duration", time.Since(start),
	)
	return Result{Table: name, Columns: names, Rows: n}, nil
}

// Column maps a table column to a database column.
type Column struct {
	Label string
	Name  string
	Type  string
	kind  core.Kind
}

// maxIdentLen is PostgreSQL's identifier limit in bytes; longer names are
// truncated by the server.
const maxIdentLen = 63

// Columns derives database column names and types from t. Names are
// lowercased with spaces replaced by underscores, cut to maxIdentLen and
// made unique.
func Columns(t *core.Table) []Column {
	out := make([]Column, len(t.Columns))
	used := make(map[string]bool, len(t.Columns))
	for i, label := range t.Columns {
		base := toDBColumnName(label)
		if base == "" {
			base = "column_" + strconv.Itoa(i+1)
		}
		name := truncateIdent(base, "")
		for n := 2; used[name]; n++ {
			name = truncateIdent(base, "_"+strconv.Itoa(n))
		}
		used[name] = true

		kind := t.ColumnKind(label)
		out[i] = Column{Label: label, Name: name, Type: pgType(kind), kind: kind}
	}
	return out
}

// truncateIdent cuts base so that base+suffix fits in maxIdentLen bytes.
// Names from toDBColumnName are ASCII, so any byte offset is a rune boundary.
func truncateIdent(base, suffix string) string {
	if keep := maxIdentLen - len(suffix); len(base) > keep {
		base = base[:keep]
	}
	return base + suffix
}

func pgType(k core.Kind) string {
	switch k {
	case core.KindNumber:
		return "double precision"
	case core.KindTime:
		return "timestamptz"
	default:
		return "text"
	}
}

// CreateTableSQL returns the CREATE TABLE statement for cols.
func CreateTableSQL(table string, cols []Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.Type
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", pgx.Identifier{table}.Sanitize(), strings.Join(defs, ", "))
}

func copyRows(t *core.Table, cols []Column) [][]any {
	rows := make([][]any, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]any, len(cols))
		for i, v := range row {
			out[i] = cellValue(v, cols[i].kind)
		}
		rows[r] = out
	}
	return rows
}

// cellValue converts v for a column of the given kind. Text columns take
// the display form of any value.
func cellValue(v core.Value, column core.Kind) any {
	if v.IsMissing() {
		return nil
	}
	switch column {
	case core.KindNumber:
		return v.Num
	case core.KindTime:
		return v.Time
	default:
		return v.String()
	}
}

// toDBColumnName converts a display column name to a database column name.
// "Transaction ID" -> "transaction_id"
func toDBColumnName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.', r == '/':
			b.WriteByte('_')
		}
	}
	return b.String()
}
