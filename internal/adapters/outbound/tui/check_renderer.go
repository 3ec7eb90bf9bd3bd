package tui

import (
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderChecks renders check definitions as a table.
func RenderChecks(defs []domain.CheckDefinition) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Name", "Target", "Enabled", "Configured", "Description"})
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 60},
	})

	for _, d := range defs {
		t.AppendRow(table.Row{
			d.Name,
			string(d.TargetEntityType),
			yesNo(d.Enabled),
			yesNo(d.Configured),
			d.Description,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "total", len(defs)})
	return t.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
