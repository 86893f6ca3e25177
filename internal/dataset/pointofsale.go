package dataset

import (
	"context"

	"github.com/retailsync/involves-etl/internal/sink"
	"github.com/retailsync/involves-etl/pkg/delta"
	"github.com/retailsync/involves-etl/pkg/fanout"
	"github.com/retailsync/involves-etl/pkg/request"
)

type posDetail struct {
	ID                        flexString `json:"id"`
	LegalBusinessName         flexString `json:"legalBusinessName"`
	TradeName                 flexString `json:"tradeName"`
	Code                      flexString `json:"code"`
	CompanyRegistrationNumber flexString `json:"companyRegistrationNumber"`
	Phone                     flexString `json:"phone"`
	Active                    bool       `json:"active"`
	Macroregional             ref        `json:"macroregional"`
	Regional                  ref        `json:"regional"`
	Banner                    ref        `json:"banner"`
	Type                      ref        `json:"type"`
	Profile                   ref        `json:"profile"`
	Channel                   ref        `json:"channel"`
}

type regionalDetail struct {
	ID            flexString `json:"id"`
	Name          flexString `json:"name"`
	Macroregional ref        `json:"macroregional"`
}

type bannerDetail struct {
	ID    flexString `json:"id"`
	Name  flexString `json:"name"`
	Chain ref        `json:"chain"`
}

type chainDetail struct {
	ID   flexString `json:"id"`
	Name flexString `json:"name"`
	Code flexString `json:"code"`
}

var posColumns = []string{
	"IDPDV", "RAZAOSOCIAL", "FANTASIA", "CODCLI", "CNPJ", "TELEFONE",
	"ISACTIVE", "IDMACROREGIONAL", "IDREGIONAL", "IDBANNER", "IDTIPO",
	"IDPERFIL", "IDCANAL",
}

// PointOfSaleData extracts the points of sale and every dimension they
// reference. The collection listing only carries summaries, so the full
// details come from a per-identifier fan-out; the dimension identifiers
// are then collected from the details and resolved the same way, chains
// last because they are only reachable through banners.
func (e *Extractor) PointOfSaleData(ctx context.Context) ([]sink.Table, error) {
	summaries, err := e.collection(ctx, "pointofsales")
	if err != nil {
		return nil, err
	}

	posIDs := delta.New()
	for _, summary := range decodeAll[ref](summaries, e.logger, "pointofsales") {
		posIDs.Add(string(summary.ID))
	}

	rawDetails := e.pool.FetchDetails(ctx, e.detailTemplate("pointofsales"), posIDs, fanout.Options{})
	details := decodeAll[posDetail](rawDetails, e.logger, "pointofsales")

	macroIDs := delta.New()
	regionalIDs := delta.New()
	bannerIDs := delta.New()
	typeIDs := delta.New()
	profileIDs := delta.New()
	channelIDs := delta.New()

	rows := make([]sink.Row, 0, len(details))
	for _, pdv := range details {
		if pdv.ID == "" {
			continue
		}
		macroIDs.Add(string(pdv.Macroregional.ID))
		regionalIDs.Add(string(pdv.Regional.ID))
		bannerIDs.Add(string(pdv.Banner.ID))
		typeIDs.Add(string(pdv.Type.ID))
		profileIDs.Add(string(pdv.Profile.ID))
		channelIDs.Add(string(pdv.Channel.ID))

		rows = append(rows, sink.Row{
			"IDPDV":           pdv.ID.value(),
			"RAZAOSOCIAL":     pdv.LegalBusinessName.value(),
			"FANTASIA":        pdv.TradeName.value(),
			"CODCLI":          pdv.Code.value(),
			"CNPJ":            pdv.CompanyRegistrationNumber.value(),
			"TELEFONE":        pdv.Phone.value(),
			"ISACTIVE":        pdv.Active,
			"IDMACROREGIONAL": pdv.Macroregional.ID.value(),
			"IDREGIONAL":      pdv.Regional.ID.value(),
			"IDBANNER":        pdv.Banner.ID.value(),
			"IDTIPO":          pdv.Type.ID.value(),
			"IDPERFIL":        pdv.Profile.ID.value(),
			"IDCANAL":         pdv.Channel.ID.value(),
		})
	}

	macros := decodeAll[namedItem](
		e.pool.FetchDetails(ctx, e.detailTemplate("macroregionals"), macroIDs, fanout.Options{}),
		e.logger, "macroregionals")
	regionals := decodeAll[regionalDetail](
		e.pool.FetchDetails(ctx, e.detailTemplate("regionals"), regionalIDs, fanout.Options{}),
		e.logger, "regionals")
	banners := decodeAll[bannerDetail](
		e.pool.FetchDetails(ctx, e.detailTemplate("banners"), bannerIDs, fanout.Options{}),
		e.logger, "banners")

	chainIDs := delta.New()
	for _, banner := range banners {
		chainIDs.Add(string(banner.Chain.ID))
	}
	chains := decodeAll[chainDetail](
		e.pool.FetchDetails(ctx, request.New(e.base).Path("v3", "chains").String()+"/{id}", chainIDs, fanout.Options{}),
		e.logger, "chains")

	posTypes := decodeAll[namedItem](
		e.pool.FetchDetails(ctx, request.New(e.base).Path("v1", "pointofsaletype").String()+"/{id}", typeIDs, fanout.Options{}),
		e.logger, "pointofsaletype")
	posProfiles := decodeAll[namedItem](
		e.pool.FetchDetails(ctx, request.New(e.base).Path("v1", e.envID, "pointofsaleprofile").String()+"/{id}", profileIDs, fanout.Options{}),
		e.logger, "pointofsaleprofile")
	channels := decodeAll[namedItem](
		e.pool.FetchDetails(ctx, request.New(e.base).Path("v3", "pointofsalechannels").String()+"/{id}", channelIDs, fanout.Options{}),
		e.logger, "pointofsalechannels")

	tables := []sink.Table{
		{Name: "involves_pdvs", Columns: posColumns, Rows: rows},
		dimensionTable("involves_macroregionais", macros),
		regionalTable(regionals),
		bannerTable(banners),
		chainTable(chains),
		dimensionTable("involves_tipos_pdv", posTypes),
		dimensionTable("involves_perfis_pdv", posProfiles),
		dimensionTable("involves_canais_pdv", channels),
	}
	return tables, ctx.Err()
}

func regionalTable(regionals []regionalDetail) sink.Table {
	rows := make([]sink.Row, 0, len(regionals))
	for _, item := range regionals {
		if item.ID == "" {
			continue
		}
		rows = append(rows, sink.Row{
			"ID":              item.ID.value(),
			"NOME":            item.Name.value(),
			"IDMACROREGIONAL": item.Macroregional.ID.value(),
		})
	}
	return sink.Table{
		Name:    "involves_regionais",
		Columns: []string{"ID", "NOME", "IDMACROREGIONAL"},
		Rows:    rows,
	}
}

func bannerTable(banners []bannerDetail) sink.Table {
	rows := make([]sink.Row, 0, len(banners))
	for _, item := range banners {
		if item.ID == "" {
			continue
		}
		rows = append(rows, sink.Row{
			"ID":     item.ID.value(),
			"NOME":   item.Name.value(),
			"IDREDE": item.Chain.ID.value(),
		})
	}
	return sink.Table{
		Name:    "involves_banners",
		Columns: []string{"ID", "NOME", "IDREDE"},
		Rows:    rows,
	}
}

func chainTable(chains []chainDetail) sink.Table {
	rows := make([]sink.Row, 0, len(chains))
	for _, item := range chains {
		if item.ID == "" {
			continue
		}
		rows = append(rows, sink.Row{
			"ID":     item.ID.value(),
			"NOME":   item.Name.value(),
			"CODIGO": item.Code.value(),
		})
	}
	return sink.Table{
		Name:    "involves_redes",
		Columns: []string{"ID", "NOME", "CODIGO"},
		Rows:    rows,
	}
}
