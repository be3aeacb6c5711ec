package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/zendesk/sqlitemaster"
)

// objectView is the JSON form of a catalog object.
type objectView struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Table    string  `json:"table"`
	Internal bool    `json:"internal"`
	SQL      *string `json:"sql"`
}

func toObjectViews(objects []sqlitemaster.Object) []objectView {
	views := make([]objectView, 0, len(objects))
	for _, obj := range objects {
		v := objectView{
			Name:     obj.Name,
			Type:     obj.Type.String(),
			Table:    obj.TableName,
			Internal: obj.Internal(),
		}
		if obj.SQL.Valid {
			sql := obj.SQL.String
			v.SQL = &sql
		}
		views = append(views, v)
	}
	return views
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func printObjectTable(w io.Writer, objects []sqlitemaster.Object) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault

	t.AppendHeader(table.Row{"#", "Name", "Type", "Table", "Internal"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignCenter},
	})

	for i, obj := range objects {
		internal := ""
		if obj.Internal() {
			internal = "yes"
		}
		t.AppendRow(table.Row{i + 1, obj.Name, obj.Type.String(), obj.TableName, internal})
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("%d objects", len(objects))})
	t.Render()
}
