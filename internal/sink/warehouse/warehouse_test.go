package warehouse

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/retailsync/involves-etl/internal/sink"
)

func openTestWarehouse(t *testing.T) (*Warehouse, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "warehouse.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return New(db), db
}

func productTable(rows ...sink.Row) sink.Table {
	return sink.Table{
		Name:    "involves_produtos",
		Columns: []string{"IDPROD", "NOMEPROD", "ISACTIVE"},
		Rows:    rows,
	}
}

func readColumn(t *testing.T, db *gorm.DB, table, column string) []string {
	t.Helper()

	var values []string
	err := db.Table(table).Order(column).Pluck(column, &values).Error
	require.NoError(t, err)
	return values
}

func TestWriteReplace(t *testing.T) {
	w, db := openTestWarehouse(t)
	ctx := context.Background()

	first := productTable(
		sink.Row{"IDPROD": "1", "NOMEPROD": "Soda 350ml", "ISACTIVE": true},
		sink.Row{"IDPROD": "2", "NOMEPROD": "Soda 600ml", "ISACTIVE": false},
	)
	require.NoError(t, w.Write(ctx, first, sink.ModeReplace))
	assert.Equal(t, []string{"1", "2"}, readColumn(t, db, "involves_produtos", "IDPROD"))

	second := productTable(
		sink.Row{"IDPROD": "3", "NOMEPROD": "Juice 1l", "ISACTIVE": true},
	)
	require.NoError(t, w.Write(ctx, second, sink.ModeReplace))
	assert.Equal(t, []string{"3"}, readColumn(t, db, "involves_produtos", "IDPROD"),
		"replace must drop previously loaded rows")
}

func TestWriteAppendUpserts(t *testing.T) {
	w, db := openTestWarehouse(t)
	ctx := context.Background()

	require.NoError(t, w.Write(ctx, productTable(
		sink.Row{"IDPROD": "1", "NOMEPROD": "Soda 350ml", "ISACTIVE": true},
		sink.Row{"IDPROD": "2", "NOMEPROD": "Soda 600ml", "ISACTIVE": true},
	), sink.ModeAppend))

	require.NoError(t, w.Write(ctx, productTable(
		sink.Row{"IDPROD": "2", "NOMEPROD": "Soda 600ml Zero", "ISACTIVE": false},
		sink.Row{"IDPROD": "3", "NOMEPROD": "Juice 1l", "ISACTIVE": true},
	), sink.ModeAppend))

	assert.Equal(t, []string{"1", "2", "3"}, readColumn(t, db, "involves_produtos", "IDPROD"))

	var names []string
	err := db.Table("involves_produtos").
		Where(`"IDPROD" = ?`, "2").
		Pluck("NOMEPROD", &names).Error
	require.NoError(t, err)
	assert.Equal(t, []string{"Soda 600ml Zero"}, names, "append must overwrite existing keys")
}

func TestWriteDeduplicatesWithinBatch(t *testing.T) {
	w, db := openTestWarehouse(t)

	table := productTable(
		sink.Row{"IDPROD": "1", "NOMEPROD": "Stale", "ISACTIVE": false},
		sink.Row{"IDPROD": "1", "NOMEPROD": "Fresh", "ISACTIVE": true},
	)
	require.NoError(t, w.Write(context.Background(), table, sink.ModeReplace))

	assert.Equal(t, []string{"Fresh"}, readColumn(t, db, "involves_produtos", "NOMEPROD"))
}

func TestWriteConvertsScalars(t *testing.T) {
	w, db := openTestWarehouse(t)

	table := sink.Table{
		Name:    "involves_pdvs",
		Columns: []string{"IDPDV", "NOMEPDV", "ISACTIVE", "REGIONAL"},
		Rows: []sink.Row{
			{"IDPDV": 42, "NOMEPDV": "Market Center", "ISACTIVE": true, "REGIONAL": nil},
		},
	}
	require.NoError(t, w.Write(context.Background(), table, sink.ModeReplace))

	assert.Equal(t, []string{"42"}, readColumn(t, db, "involves_pdvs", "IDPDV"))
	assert.Equal(t, []string{"true"}, readColumn(t, db, "involves_pdvs", "ISACTIVE"))

	var count int64
	err := db.Table("involves_pdvs").Where(`"REGIONAL" IS NULL`).Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "nil values must persist as NULL")
}

func TestWriteEmptyTableIsNoop(t *testing.T) {
	w, db := openTestWarehouse(t)

	require.NoError(t, w.Write(context.Background(), productTable(), sink.ModeReplace))
	assert.False(t, db.Migrator().HasTable("involves_produtos"))
}

func TestWriteRejectsInvalidIdentifiers(t *testing.T) {
	w, _ := openTestWarehouse(t)
	ctx := context.Background()

	bad := sink.Table{
		Name:    "involves_produtos; DROP TABLE x",
		Columns: []string{"IDPROD"},
		Rows:    []sink.Row{{"IDPROD": "1"}},
	}
	assert.Error(t, w.Write(ctx, bad, sink.ModeReplace))

	bad = sink.Table{
		Name:    "involves_produtos",
		Columns: []string{`IDPROD" TEXT, "X`},
		Rows:    []sink.Row{{}},
	}
	assert.Error(t, w.Write(ctx, bad, sink.ModeReplace))

	noCols := sink.Table{Name: "involves_produtos", Rows: []sink.Row{{}}}
	assert.Error(t, w.Write(ctx, noCols, sink.ModeReplace))
}

func TestDistinctColumn(t *testing.T) {
	w, _ := openTestWarehouse(t)
	ctx := context.Background()

	require.NoError(t, w.Write(ctx, sink.Table{
		Name:    "involves_pesquisas",
		Columns: []string{"IDITEM", "IDPESQUISA"},
		Rows: []sink.Row{
			{"IDITEM": "1", "IDPESQUISA": "100"},
			{"IDITEM": "2", "IDPESQUISA": "100"},
			{"IDITEM": "3", "IDPESQUISA": "101"},
			{"IDITEM": "4", "IDPESQUISA": nil},
		},
	}, sink.ModeReplace))

	got, err := w.DistinctColumn(ctx, "involves_pesquisas", "IDPESQUISA")
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "101"}, got.Values(), "nulls and duplicates are dropped")
}

func TestDistinctColumnMissingTable(t *testing.T) {
	w, _ := openTestWarehouse(t)

	got, err := w.DistinctColumn(context.Background(), "involves_visitas", "IDVISITA")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestDistinctColumnRejectsInvalidIdentifiers(t *testing.T) {
	w, _ := openTestWarehouse(t)

	_, err := w.DistinctColumn(context.Background(), "involves_pesquisas", `x" FROM y; --`)
	assert.Error(t, err)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	assert.Error(t, err)
}
