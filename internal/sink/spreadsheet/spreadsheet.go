// Package spreadsheet writes extractor tables as xlsx workbooks, one
// timestamped file per table. It is the ad-hoc counterpart of the SQL
// warehouse, meant for analysts pulling one-off extracts.
package spreadsheet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/retailsync/involves-etl/internal/sink"
	"github.com/retailsync/involves-etl/pkg/logging"
)

const sheetName = "Sheet1"

// Writer persists tables as xlsx files under a single output directory.
type Writer struct {
	dir    string
	logger zerolog.Logger

	// now stamps file names; replaced in tests.
	now func() time.Time
}

// New creates the output directory if needed and returns a Writer for it.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %q: %w", dir, err)
	}
	return &Writer{
		dir:    dir,
		logger: logging.NewLogger("spreadsheet"),
		now:    time.Now,
	}, nil
}

// Write renders the table as <name>_<timestamp>.xlsx. Every run produces a
// fresh file, so the write mode does not apply here and is ignored. An
// empty table is a no-op.
func (w *Writer) Write(ctx context.Context, table sink.Table, _ sink.Mode) error {
	if len(table.Rows) == 0 {
		w.logger.Info().Str("table", table.Name).Msg("No rows to export")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", table.Name, err)
	}

	for i, row := range table.Rows {
		cells := make([]any, len(table.Columns))
		for j, col := range table.Columns {
			cells[j] = row[col]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("address row %d of %q: %w", i+2, table.Name, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+2, table.Name, err)
		}
	}

	name := fmt.Sprintf("%s_%s.xlsx", table.Name, w.now().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %q: %w", path, err)
	}

	w.logger.Info().
		Str("table", table.Name).
		Str("file", path).
		Int("rows", len(table.Rows)).
		Msg("Export complete")
	return nil
}
