// Package warehouse persists extractor tables to a SQL database through
// GORM, supporting sqlite and postgres backends.
package warehouse

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/retailsync/involves-etl/internal/sink"
	"github.com/retailsync/involves-etl/pkg/delta"
	"github.com/retailsync/involves-etl/pkg/logging"
)

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 500

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Warehouse is a GORM-backed sink. All columns are stored as TEXT with the
// first column as primary key; the upstream payloads are stringly enough
// that a typed schema buys nothing and breaks on every API change.
type Warehouse struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to the database selected by driver ("sqlite" or
// "postgres") and dsn.
func Open(driver, dsn string) (*Warehouse, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported warehouse driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	return New(db), nil
}

// New wraps an existing GORM handle.
func New(db *gorm.DB) *Warehouse {
	return &Warehouse{
		db:     db,
		logger: logging.NewLogger("warehouse"),
	}
}

// Write loads the table. ModeReplace drops and recreates the destination;
// ModeAppend upserts by the first column, last write wins. An empty table
// is a no-op.
func (w *Warehouse) Write(ctx context.Context, table sink.Table, mode sink.Mode) error {
	if len(table.Rows) == 0 {
		w.logger.Info().Str("table", table.Name).Msg("No rows to load")
		return nil
	}
	if err := validateTable(table); err != nil {
		return err
	}

	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch mode {
		case sink.ModeReplace:
			if tx.Migrator().HasTable(table.Name) {
				if err := tx.Migrator().DropTable(table.Name); err != nil {
					return fmt.Errorf("drop table %q: %w", table.Name, err)
				}
			}
			if err := createTable(tx, table); err != nil {
				return err
			}
			return w.insert(tx, table, false)

		case sink.ModeAppend:
			if !tx.Migrator().HasTable(table.Name) {
				if err := createTable(tx, table); err != nil {
					return err
				}
			}
			return w.insert(tx, table, true)

		default:
			return fmt.Errorf("unsupported write mode %q", mode)
		}
	})
}

// DistinctColumn returns the distinct non-null values of a column as a
// string set. A missing table yields an empty set: first runs bootstrap
// from nothing.
func (w *Warehouse) DistinctColumn(ctx context.Context, name, column string) (delta.Set, error) {
	if !identPattern.MatchString(name) || !identPattern.MatchString(column) {
		return nil, fmt.Errorf("invalid identifier %q.%q", name, column)
	}

	if !w.db.WithContext(ctx).Migrator().HasTable(name) {
		w.logger.Info().Str("table", name).Msg("Table not found, assuming first run")
		return delta.New(), nil
	}

	quoted := fmt.Sprintf("%q", column)
	var values []string
	err := w.db.WithContext(ctx).
		Table(name).
		Distinct(quoted).
		Where(quoted + " IS NOT NULL").
		Pluck(quoted, &values).Error
	if err != nil {
		return nil, fmt.Errorf("read column %q of %q: %w", column, name, err)
	}

	return delta.New(values...), nil
}

// insert writes the rows in batches. With upsert enabled, conflicting keys
// are overwritten; rows sharing a key within one table keep the last.
func (w *Warehouse) insert(tx *gorm.DB, table sink.Table, upsert bool) error {
	rows := dedupeByKey(table)

	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		stmt := tx.Table(table.Name)
		if upsert {
			if assignable := table.Columns[1:]; len(assignable) > 0 {
				stmt = stmt.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: table.Key()}},
					DoUpdates: clause.AssignmentColumns(assignable),
				})
			} else {
				stmt = stmt.Clauses(clause.OnConflict{DoNothing: true})
			}
		}
		if err := stmt.Create(rows[start:end]).Error; err != nil {
			return fmt.Errorf("insert into %q: %w", table.Name, err)
		}
	}

	w.logger.Info().
		Str("table", table.Name).
		Int("rows", len(rows)).
		Msg("Load complete")
	return nil
}

// dedupeByKey converts rows to their text representation, keeping only the
// last row per key and the original relative order otherwise.
func dedupeByKey(table sink.Table) []map[string]any {
	key := table.Key()
	byKey := make(map[string]int, len(table.Rows))
	out := make([]map[string]any, 0, len(table.Rows))

	for _, row := range table.Rows {
		converted := make(map[string]any, len(table.Columns))
		for _, col := range table.Columns {
			converted[col] = toText(row[col])
		}

		k := ""
		if p, ok := converted[key].(*string); ok && p != nil {
			k = *p
		}
		if pos, seen := byKey[k]; seen {
			out[pos] = converted
			continue
		}
		byKey[k] = len(out)
		out = append(out, converted)
	}
	return out
}

// toText renders a scalar as a nullable TEXT value.
func toText(v any) any {
	switch value := v.(type) {
	case nil:
		return (*string)(nil)
	case *string:
		return value
	case string:
		return &value
	case bool:
		s := "false"
		if value {
			s = "true"
		}
		return &s
	default:
		s := fmt.Sprint(value)
		return &s
	}
}

func validateTable(table sink.Table) error {
	if !identPattern.MatchString(table.Name) {
		return fmt.Errorf("invalid table name %q", table.Name)
	}
	if len(table.Columns) == 0 {
		return fmt.Errorf("table %q has no columns", table.Name)
	}
	for _, col := range table.Columns {
		if !identPattern.MatchString(col) {
			return fmt.Errorf("invalid column name %q in table %q", col, table.Name)
		}
	}
	return nil
}

func createTable(tx *gorm.DB, table sink.Table) error {
	cols := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		cols[i] = fmt.Sprintf("%q TEXT", col)
		if i == 0 {
			cols[i] += " PRIMARY KEY"
		}
	}
	ddl := fmt.Sprintf("CREATE TABLE %q (%s)", table.Name, strings.Join(cols, ", "))
	if err := tx.Exec(ddl).Error; err != nil {
		return fmt.Errorf("create table %q: %w", table.Name, err)
	}
	return nil
}
