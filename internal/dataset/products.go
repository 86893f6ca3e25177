package dataset

import (
	"context"
	"encoding/json"

	"github.com/retailsync/involves-etl/internal/sink"
	"github.com/retailsync/involves-etl/pkg/delta"
	"github.com/retailsync/involves-etl/pkg/fanout"
)

// ProductDimensions extracts the product dimensions that expose public
// collection listings: brands, supercategories and product lines.
func (e *Extractor) ProductDimensions(ctx context.Context) ([]sink.Table, error) {
	dimensions := []struct {
		endpoint string
		table    string
	}{
		{"brands", "involves_marcas"},
		{"supercategories", "involves_supercategorias"},
		{"productlines", "involves_linhas_de_produto"},
	}

	tables := make([]sink.Table, 0, len(dimensions))
	for _, dim := range dimensions {
		items, err := e.collection(ctx, dim.endpoint)
		if err != nil {
			return nil, err
		}
		tables = append(tables, dimensionTable(dim.table, decodeAll[namedItem](items, e.logger, dim.endpoint)))
	}
	return tables, nil
}

type skuSummary struct {
	ID              flexString      `json:"id"`
	Name            flexString      `json:"name"`
	Active          bool            `json:"active"`
	BarCode         flexString      `json:"barCode"`
	IntegrationCode flexString      `json:"integrationCode"`
	ProductLine     ref             `json:"productLine"`
	Brand           ref             `json:"brand"`
	Category        ref             `json:"category"`
	Supercategory   ref             `json:"supercategory"`
	CustomFields    json.RawMessage `json:"customFields"`
}

var skuColumns = []string{
	"IDPROD", "NOMEPROD", "ISACTIVE", "EAN", "CODPROD",
	"IDLINHAPRODUTO", "IDMARCA", "IDCATEGORIA", "IDSUPERCATEGORIA",
	"CUSTOMFIELDS",
}

// SKUs extracts the product catalogue. The returned set holds the distinct
// category identifiers referenced by the catalogue; the category dimension
// has no public listing, so CategoriesFromSKUs resolves it one by one.
func (e *Extractor) SKUs(ctx context.Context) (sink.Table, delta.Set, error) {
	items, err := e.collection(ctx, "skus")
	if err != nil {
		return sink.Table{}, nil, err
	}

	categoryIDs := delta.New()
	rows := make([]sink.Row, 0, len(items))
	for _, sku := range decodeAll[skuSummary](items, e.logger, "skus") {
		if sku.ID == "" {
			continue
		}
		categoryIDs.Add(string(sku.Category.ID))

		var customFields any
		if raw := string(sku.CustomFields); raw != "" && raw != "null" && raw != "[]" {
			customFields = raw
		}

		rows = append(rows, sink.Row{
			"IDPROD":           sku.ID.value(),
			"NOMEPROD":         sku.Name.value(),
			"ISACTIVE":         sku.Active,
			"EAN":              sku.BarCode.value(),
			"CODPROD":          sku.IntegrationCode.value(),
			"IDLINHAPRODUTO":   sku.ProductLine.ID.value(),
			"IDMARCA":          sku.Brand.ID.value(),
			"IDCATEGORIA":      sku.Category.ID.value(),
			"IDSUPERCATEGORIA": sku.Supercategory.ID.value(),
			"CUSTOMFIELDS":     customFields,
		})
	}

	table := sink.Table{Name: "involves_produtos", Columns: skuColumns, Rows: rows}
	return table, categoryIDs, nil
}

type categoryDetail struct {
	ID            flexString `json:"id"`
	Name          flexString `json:"name"`
	Supercategory ref        `json:"supercategory"`
}

var categoryColumns = []string{"ID", "NOME", "IDSUPERCATEGORIA"}

// CategoriesFromSKUs resolves the category dimension for the identifiers
// referenced by the catalogue.
func (e *Extractor) CategoriesFromSKUs(ctx context.Context, categoryIDs delta.Set) (sink.Table, error) {
	details := e.pool.FetchDetails(ctx, e.detailTemplate("categories"), categoryIDs, fanout.Options{})

	rows := make([]sink.Row, 0, len(details))
	for _, cat := range decodeAll[categoryDetail](details, e.logger, "categories") {
		if cat.ID == "" {
			continue
		}
		rows = append(rows, sink.Row{
			"ID":               cat.ID.value(),
			"NOME":             cat.Name.value(),
			"IDSUPERCATEGORIA": cat.Supercategory.ID.value(),
		})
	}

	table := sink.Table{Name: "involves_categorias", Columns: categoryColumns, Rows: rows}
	return table, ctx.Err()
}
