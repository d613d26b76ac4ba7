package export

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"cantina/internal/services"
)

// statementTmpl is a printable statement: the operator opens it in the
// browser and uses the print dialog to produce a PDF.
var statementTmpl = template.Must(template.New("statement").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Estado de cuenta - {{.Name}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
h1 { font-size: 1.3rem; }
table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
th, td { border: 1px solid #999; padding: 0.3rem 0.6rem; text-align: left; }
td.amount { text-align: right; }
tfoot td { font-weight: bold; }
.debt { color: #b00020; }
</style>
</head>
<body>
<h1>Estado de cuenta - {{.Name}}</h1>
{{if .GuardianName}}<p>Encargado: {{.GuardianName}}</p>{{end}}
<p>Generado: {{.GeneratedAt}}</p>
<table>
<thead>
<tr><th>Fecha</th><th>Detalle</th><th>Consumo</th><th>Abono</th></tr>
</thead>
<tbody>
{{range .Lines}}<tr>
<td>{{.Date}}</td><td>{{.Label}}</td><td class="amount">{{.Debit}}</td><td class="amount">{{.Credit}}</td>
</tr>
{{end}}</tbody>
<tfoot>
<tr><td colspan="3">Saldo actual</td><td class="amount{{if .InDebt}} debt{{end}}">{{.Balance}}</td></tr>
</tfoot>
</table>
</body>
</html>
`))

type statementData struct {
	Name         string
	GuardianName string
	GeneratedAt  string
	Lines        []statementRow
	Balance      string
	InDebt       bool
}

type statementRow struct {
	Date   string
	Label  string
	Debit  string
	Credit string
}

// RenderStatement writes the printable HTML statement for the person's
// complete history.
func RenderStatement(w io.Writer, h *services.History, now time.Time) error {
	data := statementData{
		Name:         h.Person.Name,
		GuardianName: h.Person.GuardianName,
		GeneratedAt:  now.Format("2006-01-02 15:04"),
		Balance:      h.Person.CurrentBalance.String(),
		InDebt:       h.Person.CurrentBalance.Cents < 0,
	}

	for _, line := range mergeHistory(h) {
		row := statementRow{Date: line.date.String(), Label: line.label}
		if line.isDebit {
			row.Debit = line.debit.String()
		} else {
			row.Credit = line.credit.String()
		}
		data.Lines = append(data.Lines, row)
	}

	if err := statementTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render statement: %w", err)
	}
	return nil
}
