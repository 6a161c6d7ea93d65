// Package templates renders the HTML fragments returned to HTMX callers.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

// ErrorAlert renders a dismissable error box.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p class="font-semibold">%s</p><p>%s</p><p class="text-xs">Code: %s</p></div>`,
			templ.EscapeString(message), templ.EscapeString(action), templ.EscapeString(code))
		return err
	})
}

// ImportPrepared renders the mapping step of a two-step import.
func ImportPrepared(importID string, headers []string, mapping map[string]int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<form class="import-mapping" hx-post="/api/imports/%s" hx-ext="json-enc"><table>`,
			templ.EscapeString(importID)); err != nil {
			return err
		}
		for _, field := range competency.RequiredHeaders() {
			if _, err := fmt.Fprintf(w, `<tr><th>%s</th><td><select name="mapping.%s">`,
				templ.EscapeString(field), templ.EscapeString(field)); err != nil {
				return err
			}
			if err := option(w, -1, "(none)", mapping[field] == -1); err != nil {
				return err
			}
			for i, h := range headers {
				if err := option(w, i, h, mapping[field] == i); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</select></td></tr>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</table><button type="submit">Import</button></form>`)
		return err
	})
}

func option(w io.Writer, value int, label string, selected bool) error {
	sel := ""
	if selected {
		sel = " selected"
	}
	_, err := fmt.Fprintf(w, `<option value="%d"%s>%s</option>`, value, sel, templ.EscapeString(label))
	return err
}

// ImportResult renders the summary of a finished import.
func ImportResult(res *competency.Result) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fw := res.Framework
		if _, err := fmt.Fprintf(w,
			`<div class="alert alert-success"><p class="font-semibold">Imported %s (%s)</p><ul>`,
			templ.EscapeString(fw.ShortName), templ.EscapeString(fw.IDNumber)); err != nil {
			return err
		}
		counts := []struct {
			label string
			n     int
		}{
			{"Competencies created", res.Created},
			{"Rows skipped", res.Skipped},
			{"Orphaned rows", res.Orphaned},
			{"Rules applied", res.RulesApplied},
			{"Relations linked", res.RelationsLinked},
		}
		for _, c := range counts {
			if _, err := fmt.Fprintf(w, `<li>%s: %d</li>`, c.label, c.n); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</ul>`); err != nil {
			return err
		}
		if len(res.Warnings) > 0 {
			if _, err := io.WriteString(w, `<ul class="warnings">`); err != nil {
				return err
			}
			for _, warn := range res.Warnings {
				if _, err := fmt.Fprintf(w, `<li>%s</li>`, templ.EscapeString(warn.String())); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</ul>`); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, `<a href="/api/frameworks/%d/export">Download CSV</a></div>`, fw.ID)
		return err
	})
}
