package dataset

import (
	"context"

	"github.com/retailsync/involves-etl/internal/sink"
)

type employee struct {
	ID        flexString `json:"id"`
	Name      flexString `json:"name"`
	Login     flexString `json:"login"`
	Email     flexString `json:"email"`
	Enabled   bool       `json:"enabled"`
	UserGroup ref        `json:"userGroup"`
	Leader    ref        `json:"employeeEnvironmentLeader"`
}

var employeeColumns = []string{
	"IDCOLAB", "NOME", "LOGIN", "EMAIL", "ISACTIVE", "IDPERFIL", "IDLIDER",
}

// Employees extracts the field-team roster of the environment.
func (e *Extractor) Employees(ctx context.Context) (sink.Table, error) {
	items, err := e.collection(ctx, "employees")
	if err != nil {
		return sink.Table{}, err
	}

	rows := make([]sink.Row, 0, len(items))
	for _, emp := range decodeAll[employee](items, e.logger, "employees") {
		if emp.ID == "" {
			continue
		}
		rows = append(rows, sink.Row{
			"IDCOLAB":  emp.ID.value(),
			"NOME":     emp.Name.value(),
			"LOGIN":    emp.Login.value(),
			"EMAIL":    emp.Email.value(),
			"ISACTIVE": emp.Enabled,
			"IDPERFIL": emp.UserGroup.ID.value(),
			"IDLIDER":  emp.Leader.ID.value(),
		})
	}

	return sink.Table{Name: "involves_colaboradores", Columns: employeeColumns, Rows: rows}, nil
}
