package dataset

import (
	"context"

	"github.com/retailsync/involves-etl/internal/sink"
	"github.com/retailsync/involves-etl/pkg/delta"
	"github.com/retailsync/involves-etl/pkg/fanout"
	"github.com/retailsync/involves-etl/pkg/request"
)

type visitItem struct {
	ID          flexString `json:"id"`
	VisitDate   flexString `json:"visitDate"`
	Status      flexString `json:"status"`
	Type        flexString `json:"type"`
	PointOfSale ref        `json:"pointOfSale"`
	Employee    ref        `json:"employee"`
}

type noShowJustification struct {
	VisitID flexString `json:"visitId"`
	Reason  flexString `json:"reason"`
	Comment flexString `json:"comment"`
}

var (
	visitColumns         = []string{"IDVISITA", "IDPDV", "IDCOLAB", "DATAVISITA", "STATUS", "TIPO"}
	justificationColumns = []string{"IDVISITA", "MOTIVO", "COMENTARIO"}
)

// Visits extracts the visit itineraries and probes each visit for a
// no-show justification. Most visits have none: the probe treats 404 as an
// expected outcome and keeps it out of the diagnostics. The justification
// payload does not echo the visit, so the originating identifier is
// attached during the fan-out.
func (e *Extractor) Visits(ctx context.Context) (visits, justifications sink.Table, err error) {
	items, err := e.collection(ctx, "visits")
	if err != nil {
		return sink.Table{}, sink.Table{}, err
	}

	visitIDs := delta.New()
	visitRows := make([]sink.Row, 0, len(items))
	for _, visit := range decodeAll[visitItem](items, e.logger, "visits") {
		if visit.ID == "" {
			continue
		}
		visitIDs.Add(string(visit.ID))
		visitRows = append(visitRows, sink.Row{
			"IDVISITA":   visit.ID.value(),
			"IDPDV":      visit.PointOfSale.ID.value(),
			"IDCOLAB":    visit.Employee.ID.value(),
			"DATAVISITA": visit.VisitDate.value(),
			"STATUS":     visit.Status.value(),
			"TIPO":       visit.Type.value(),
		})
	}

	template := request.New(e.base).Path("v1", e.envID, "visit").String() + "/{id}/noshowjustification"
	probed := decodeAll[noShowJustification](
		e.pool.FetchDetails(ctx, template, visitIDs, fanout.Options{
			AttachIDField: "visitId",
			QuietNotFound: true,
		}),
		e.logger, "noshowjustification")

	justificationRows := make([]sink.Row, 0, len(probed))
	for _, just := range probed {
		if just.VisitID == "" {
			continue
		}
		justificationRows = append(justificationRows, sink.Row{
			"IDVISITA":   just.VisitID.value(),
			"MOTIVO":     just.Reason.value(),
			"COMENTARIO": just.Comment.value(),
		})
	}

	visits = sink.Table{Name: "involves_visitas", Columns: visitColumns, Rows: visitRows}
	justifications = sink.Table{Name: "involves_justificativas", Columns: justificationColumns, Rows: justificationRows}
	return visits, justifications, ctx.Err()
}
