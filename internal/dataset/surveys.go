package dataset

import (
	"context"

	"github.com/retailsync/involves-etl/internal/sink"
	"github.com/retailsync/involves-etl/pkg/delta"
	"github.com/retailsync/involves-etl/pkg/fanout"
	"github.com/retailsync/involves-etl/pkg/request"
)

type surveyDetail struct {
	ID          flexString `json:"id"`
	Label       flexString `json:"label"`
	Status      flexString `json:"status"`
	StartDate   flexString `json:"startDate"`
	EndDate     flexString `json:"endDate"`
	Form        ref        `json:"form"`
	PointOfSale ref        `json:"pointOfSale"`
	Employee    ref        `json:"employee"`
}

type formDetail struct {
	ID        flexString `json:"id"`
	Name      flexString `json:"name"`
	Active    bool       `json:"active"`
	StartDate flexString `json:"startDate"`
	EndDate   flexString `json:"endDate"`
}

var (
	surveyColumns = []string{
		"IDPESQUISA", "LABEL", "STATUS", "IDFORM", "IDPDV", "IDCOLAB",
		"DATAINICIO", "DATAFIM",
	}
	formColumns = []string{"IDFORM", "NOME", "ISACTIVE", "DATAINICIO", "DATAFIM"}
)

// Surveys extracts survey details incrementally: only surveys absent from
// persistedSurveyIDs are fetched in full. The forms referenced by those new
// surveys feed a second incremental lookup against persistedFormIDs, so a
// form definition is fetched exactly once across all runs. Both returned
// tables are meant for append loads.
func (e *Extractor) Surveys(ctx context.Context, persistedSurveyIDs, persistedFormIDs delta.Set) (surveys, forms sink.Table, err error) {
	summaries, err := e.collection(ctx, "surveys")
	if err != nil {
		return sink.Table{}, sink.Table{}, err
	}

	fresh := delta.New()
	for _, summary := range decodeAll[ref](summaries, e.logger, "surveys") {
		fresh.Add(string(summary.ID))
	}

	newSurveyIDs := delta.Diff(fresh, persistedSurveyIDs)
	e.logger.Info().
		Int("observed", fresh.Len()).
		Int("new", newSurveyIDs.Len()).
		Msg("Survey delta resolved")

	details := decodeAll[surveyDetail](
		e.pool.FetchDetails(ctx, e.detailTemplate("surveys"), newSurveyIDs, fanout.Options{}),
		e.logger, "surveys")

	referencedForms := delta.New()
	surveyRows := make([]sink.Row, 0, len(details))
	for _, survey := range details {
		if survey.ID == "" {
			continue
		}
		referencedForms.Add(string(survey.Form.ID))
		surveyRows = append(surveyRows, sink.Row{
			"IDPESQUISA": survey.ID.value(),
			"LABEL":      survey.Label.value(),
			"STATUS":     survey.Status.value(),
			"IDFORM":     survey.Form.ID.value(),
			"IDPDV":      survey.PointOfSale.ID.value(),
			"IDCOLAB":    survey.Employee.ID.value(),
			"DATAINICIO": survey.StartDate.value(),
			"DATAFIM":    survey.EndDate.value(),
		})
	}

	newFormIDs := delta.Diff(referencedForms, persistedFormIDs)
	formTemplate := request.New(e.base).Path("v1", e.envID, "form").String() + "/{id}"
	formDetails := decodeAll[formDetail](
		e.pool.FetchDetails(ctx, formTemplate, newFormIDs, fanout.Options{}),
		e.logger, "forms")

	formRows := make([]sink.Row, 0, len(formDetails))
	for _, form := range formDetails {
		if form.ID == "" {
			continue
		}
		formRows = append(formRows, sink.Row{
			"IDFORM":     form.ID.value(),
			"NOME":       form.Name.value(),
			"ISACTIVE":   form.Active,
			"DATAINICIO": form.StartDate.value(),
			"DATAFIM":    form.EndDate.value(),
		})
	}

	surveys = sink.Table{Name: "involves_pesquisas", Columns: surveyColumns, Rows: surveyRows}
	forms = sink.Table{Name: "involves_formularios", Columns: formColumns, Rows: formRows}
	return surveys, forms, ctx.Err()
}
