package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
)

const invoiceLayout = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Reference}}</title>
<style>
body { font-family: sans-serif; font-size: 11px; color: #222; }
h1 { font-size: 18px; margin-bottom: 4px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border-bottom: 1px solid #ddd; padding: 6px 4px; text-align: left; }
td.num, th.num { text-align: right; }
tfoot td { font-weight: bold; border-top: 2px solid #222; }
.incident { color: #a33; }
</style>
</head>
<body>
<h1>Invoice {{.Reference}}</h1>
<p>Date: {{.Date}}<br>Bank account: {{.BankAccountID}}<br>Cashflows: {{.CashflowCount}}</p>
<table>
<thead>
<tr><th>Line</th><th class="num">Rate</th><th class="num">Contribution</th><th class="num">Reimbursed</th></tr>
</thead>
<tbody>
{{- range .Lines}}
<tr{{if .Incident}} class="incident"{{end}}><td>{{.Label}}</td><td class="num">{{.Rate}}</td><td class="num">{{.Contribution}}</td><td class="num">{{.Reimbursed}}</td></tr>
{{- end}}
</tbody>
<tfoot>
<tr><td colspan="2">Total</td><td class="num">{{.TotalContribution}}</td><td class="num">{{.Total}}</td></tr>
</tfoot>
</table>
</body>
</html>
`

var invoiceTemplate = template.Must(template.New("invoice").Parse(invoiceLayout))

type invoiceView struct {
	Reference         string
	Date              string
	BankAccountID     string
	CashflowCount     int
	Lines             []invoiceLineView
	TotalContribution string
	Total             string
}

type invoiceLineView struct {
	Label        string
	Incident     bool
	Rate         string
	Contribution string
	Reimbursed   string
}

// InvoiceTemplate lays an invoice out as an HTML page
type InvoiceTemplate struct {
	format *AmountFormatter
}

// NewInvoiceTemplate creates the template with the given formatter
func NewInvoiceTemplate(format *AmountFormatter) *InvoiceTemplate {
	return &InvoiceTemplate{format: format}
}

// Render returns the HTML of invoice
func (t *InvoiceTemplate) Render(invoice *finance.Invoice) (string, error) {
	view := invoiceView{
		Reference:     invoice.Reference,
		Date:          invoice.Date.UTC().Format(time.DateOnly),
		BankAccountID: invoice.BankAccountID.String(),
		CashflowCount: len(invoice.CashflowIDs),
		Lines:         make([]invoiceLineView, 0, len(invoice.Lines)),
		Total:         t.format.Money(invoice.Amount),
	}
	var contribution int64
	for _, l := range invoice.Lines {
		label := t.format.Label(l.Group.Category)
		if l.Group.Incident {
			label = "Incidents " + label
		}
		view.Lines = append(view.Lines, invoiceLineView{
			Label:        label,
			Incident:     l.Group.Incident,
			Rate:         t.format.Rate(l.Rate),
			Contribution: t.format.Money(l.ContributionAmount),
			Reimbursed:   t.format.Money(l.ReimbursedAmount),
		})
		contribution += l.ContributionAmount
	}
	view.TotalContribution = t.format.Money(contribution)

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render invoice %s: %w", invoice.Reference, err)
	}
	return buf.String(), nil
}
