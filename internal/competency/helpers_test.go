package competency_test

import (
	"github.com/JonMunkholm/lpcsv/internal/competency"
)

type cols map[competency.Field]string

// line lays fields out in the default column order.
func line(c cols) []string {
	headers := competency.RequiredHeaders()
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = c[competency.Field(h)]
	}
	return out
}

func frameworkLine(idnumber, shortname string) []string {
	return line(cols{
		competency.FieldIDNumber:    idnumber,
		competency.FieldShortName:   shortname,
		competency.FieldIsFramework: "1",
	})
}

func compLine(parent, idnumber, shortname string) []string {
	return line(cols{
		competency.FieldParentIDNumber: parent,
		competency.FieldIDNumber:       idnumber,
		competency.FieldShortName:      shortname,
	})
}

func mapRows(rows ...[]string) []competency.Row {
	var m competency.Mapping
	return m.MapAll(rows)
}

// shape lists "parent>child" idnumber pairs in preorder.
func shape(t *competency.Tree) []string {
	var out []string
	t.Walk(func(idx, parent int) bool {
		p := t.Framework.IDNumber
		if parent >= 0 {
			p = t.Nodes[parent].IDNumber
		}
		out = append(out, p+">"+t.Nodes[idx].IDNumber)
		return true
	})
	return out
}
