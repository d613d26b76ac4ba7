// Package export renders account statements as printable HTML and as
// WhatsApp messages for guardians.
package export

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"cantina/internal/core"
	"cantina/internal/services"
)

// statementLine is one row of the merged, date-ordered history.
type statementLine struct {
	date    core.Date
	label   string
	debit   core.Money
	credit  core.Money
	isDebit bool
}

// mergeHistory interleaves purchases and payments oldest first.
func mergeHistory(h *services.History) []statementLine {
	lines := make([]statementLine, 0, len(h.Purchases)+len(h.Payments))
	for _, p := range h.Purchases {
		label := p.Description
		if label == "" {
			label = "Consumo"
		}
		lines = append(lines, statementLine{date: p.Date, label: label, debit: p.Amount, isDebit: true})
	}
	for _, p := range h.Payments {
		label := paymentLabel(p.Type)
		if p.Comment != "" {
			label = fmt.Sprintf("%s (%s)", label, p.Comment)
		}
		lines = append(lines, statementLine{date: p.Date, label: label, credit: p.Amount})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].date.String() < lines[j].date.String()
	})
	return lines
}

func paymentLabel(t core.PaymentType) string {
	switch t {
	case core.PaymentPrepaid:
		return "Abono adelantado"
	case core.PaymentDebt:
		return "Pago de deuda"
	case core.PaymentManualAdjustment:
		return "Ajuste manual"
	default:
		return string(t)
	}
}

// WhatsAppMessage builds the plain-text statement sent to guardians. It
// lists recent activity newest first, capped at maxLines entries, and ends
// with the current balance.
func WhatsAppMessage(h *services.History, maxLines int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estado de cuenta - %s\n\n", h.Person.Name)

	lines := mergeHistory(h)
	// Newest first for the message.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	for _, line := range lines {
		if line.isDebit {
			fmt.Fprintf(&b, "%s  %s  -%s\n", line.date, line.label, line.debit)
		} else {
			fmt.Fprintf(&b, "%s  %s  +%s\n", line.date, line.label, line.credit)
		}
	}

	balance := h.Person.CurrentBalance
	switch {
	case balance.Cents < 0:
		fmt.Fprintf(&b, "\nSaldo pendiente: %s\n", balance.Abs())
	case balance.Cents > 0:
		fmt.Fprintf(&b, "\nSaldo a favor: %s\n", balance)
	default:
		b.WriteString("\nCuenta al día.\n")
	}
	return b.String()
}

// WhatsAppLink builds a wa.me link that opens a chat with the guardian's
// phone and the statement prefilled. The phone keeps digits only; an empty
// phone yields a share link without a recipient.
func WhatsAppLink(h *services.History, maxLines int) string {
	text := url.QueryEscape(WhatsAppMessage(h, maxLines))
	phone := digitsOnly(h.Person.GuardianPhone)
	if phone == "" {
		return "https://wa.me/?text=" + text
	}
	return fmt.Sprintf("https://wa.me/%s?text=%s", phone, text)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
