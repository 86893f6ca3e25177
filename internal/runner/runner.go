// Package runner sequences one full extraction run: every dataset in
// dependency order, rows routed to the sink, one dataset's failure never
// aborting the rest.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/retailsync/involves-etl/internal/dataset"
	"github.com/retailsync/involves-etl/internal/sink"
	"github.com/retailsync/involves-etl/pkg/delta"
	"github.com/retailsync/involves-etl/pkg/logging"
)

// Runner drives the extraction sequence against one environment.
type Runner struct {
	extractor *dataset.Extractor
	writer    sink.Writer
	reader    sink.Reader
	logger    zerolog.Logger
}

// New creates a Runner. reader may be nil for write-only sinks such as
// spreadsheet exports; incremental datasets then reload everything.
func New(extractor *dataset.Extractor, writer sink.Writer, reader sink.Reader) *Runner {
	return &Runner{
		extractor: extractor,
		writer:    writer,
		reader:    reader,
		logger:    logging.NewLogger("runner"),
	}
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Run executes the full sequence. Dataset failures are logged and counted
// but do not stop the following datasets; context cancellation does. The
// returned error reports how many datasets failed, nil when all loaded.
func (r *Runner) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := r.logger.With().Str("run_id", runID).Logger()
	started := time.Now()

	logger.Info().Msg("Extraction run starting")

	steps := []step{
		{"product_dimensions", r.productDimensions},
		{"skus_and_categories", r.skusAndCategories},
		{"pointofsale", r.pointOfSale},
		{"employees", r.employees},
		{"surveys", r.surveys},
		{"visits", r.visits},
	}

	failed := 0
	for _, s := range steps {
		stepStarted := time.Now()
		err := s.run(ctx)
		if err != nil && errors.Is(err, context.Canceled) {
			return err
		}
		if err != nil {
			failed++
			logger.Error().Err(err).Str("dataset", s.name).Msg("Dataset failed")
			continue
		}
		logger.Info().
			Str("dataset", s.name).
			Dur("elapsed", time.Since(stepStarted)).
			Msg("Dataset loaded")
	}

	event := logger.Info()
	if failed > 0 {
		event = logger.Warn()
	}
	event.
		Int("datasets", len(steps)).
		Int("failed", failed).
		Dur("elapsed", time.Since(started)).
		Msg("Extraction run finished")

	if failed > 0 {
		return fmt.Errorf("%d of %d datasets failed", failed, len(steps))
	}
	return nil
}

func (r *Runner) productDimensions(ctx context.Context) error {
	tables, err := r.extractor.ProductDimensions(ctx)
	if err != nil {
		return err
	}
	return r.writeAll(ctx, tables, sink.ModeReplace)
}

func (r *Runner) skusAndCategories(ctx context.Context) error {
	skus, categoryIDs, err := r.extractor.SKUs(ctx)
	if err != nil {
		return err
	}
	if err := r.writer.Write(ctx, skus, sink.ModeReplace); err != nil {
		return err
	}

	categories, err := r.extractor.CategoriesFromSKUs(ctx, categoryIDs)
	if err != nil {
		return err
	}
	return r.writer.Write(ctx, categories, sink.ModeReplace)
}

func (r *Runner) pointOfSale(ctx context.Context) error {
	tables, err := r.extractor.PointOfSaleData(ctx)
	if err != nil {
		return err
	}
	return r.writeAll(ctx, tables, sink.ModeReplace)
}

func (r *Runner) employees(ctx context.Context) error {
	table, err := r.extractor.Employees(ctx)
	if err != nil {
		return err
	}
	return r.writer.Write(ctx, table, sink.ModeReplace)
}

func (r *Runner) surveys(ctx context.Context) error {
	persistedSurveys, err := r.persisted(ctx, "involves_pesquisas", "IDPESQUISA")
	if err != nil {
		return err
	}
	persistedForms, err := r.persisted(ctx, "involves_formularios", "IDFORM")
	if err != nil {
		return err
	}

	surveys, forms, err := r.extractor.Surveys(ctx, persistedSurveys, persistedForms)
	if err != nil {
		return err
	}
	if err := r.writer.Write(ctx, surveys, sink.ModeAppend); err != nil {
		return err
	}
	return r.writer.Write(ctx, forms, sink.ModeAppend)
}

func (r *Runner) visits(ctx context.Context) error {
	visits, justifications, err := r.extractor.Visits(ctx)
	if err != nil {
		return err
	}
	if err := r.writer.Write(ctx, visits, sink.ModeAppend); err != nil {
		return err
	}
	return r.writer.Write(ctx, justifications, sink.ModeAppend)
}

func (r *Runner) writeAll(ctx context.Context, tables []sink.Table, mode sink.Mode) error {
	for _, table := range tables {
		if err := r.writer.Write(ctx, table, mode); err != nil {
			return err
		}
	}
	return nil
}

// persisted reads previously loaded identifiers, or an empty set when the
// sink cannot be read back.
func (r *Runner) persisted(ctx context.Context, table, column string) (delta.Set, error) {
	if r.reader == nil {
		return delta.New(), nil
	}
	return r.reader.DistinctColumn(ctx, table, column)
}
