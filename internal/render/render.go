// Package render turns session state into HTML: the full page, the rows of
// the stats table and the body of the history modal.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/DoyleJ11/alliance-stats/internal/engine"
)

var funcMap = template.FuncMap{
	"fmtPower": func(p int64) string {
		switch {
		case p == 0:
			return "—"
		case p >= 1_000_000:
			return fmt.Sprintf("%.1fM", float64(p)/1_000_000)
		case p >= 1000:
			return fmt.Sprintf("%.1fk", float64(p)/1000)
		}
		return strconv.FormatInt(p, 10)
	},
	"arrow": func(dir string) string {
		switch dir {
		case string(engine.Asc):
			return "▲"
		case string(engine.Desc):
			return "▼"
		}
		return ""
	},
}

var tmpl = template.Must(template.New("alliance").Funcs(funcMap).Parse(tmplPage + tmplRows + tmplModal))

// RowView is a row as shown to one user.
type RowView struct {
	engine.Row
	CanEdit bool
}

type HeaderView struct {
	Key   string
	Label string
	Dir   string
}

type PageData struct {
	SessionID string
	User      *engine.User
	Headers   []HeaderView
	Rows      []RowView
	Modal     engine.Modal
}

// Rows builds the views for rows in the given order. History is offered on
// every row, Edit only where user may edit.
func Rows(user *engine.User, rows []engine.Row) []RowView {
	out := make([]RowView, len(rows))
	for i, r := range rows {
		out[i] = RowView{Row: r, CanEdit: engine.CanEditUser(user, r)}
	}
	return out
}

func Headers(s engine.SortState) []HeaderView {
	labels := map[engine.Column]string{
		engine.ColumnRank:    "Rank",
		engine.ColumnName:    "Name",
		engine.ColumnKingdom: "Kingdom",
		engine.ColumnPower:   "Power",
	}
	out := make([]HeaderView, 0, len(engine.SortableColumns))
	for _, c := range engine.SortableColumns {
		h := HeaderView{Key: string(c), Label: labels[c]}
		if s.Column == c {
			h.Dir = string(s.Direction)
		}
		out = append(out, h)
	}
	return out
}

// NewPageData assembles everything the page template needs for state s.
func NewPageData(sessionID string, s engine.State) PageData {
	return PageData{
		SessionID: sessionID,
		User:      s.User,
		Headers:   Headers(s.Sort),
		Rows:      Rows(s.User, s.Rows),
		Modal:     s.Modal,
	}
}

func Page(w io.Writer, data PageData) error {
	return tmpl.ExecuteTemplate(w, "page", data)
}

// Table writes the <tr> elements of the stats table body.
func Table(w io.Writer, user *engine.User, rows []engine.Row) error {
	return tmpl.ExecuteTemplate(w, "rows", Rows(user, rows))
}

// Modal writes the content of the history modal body.
func Modal(w io.Writer, m engine.Modal) error {
	return tmpl.ExecuteTemplate(w, "modal", m)
}

func TableHTML(user *engine.User, rows []engine.Row) (string, error) {
	var buf bytes.Buffer
	if err := Table(&buf, user, rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func ModalHTML(m engine.Modal) (string, error) {
	var buf bytes.Buffer
	if err := Modal(&buf, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}
