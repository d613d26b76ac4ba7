package core

import "sort"

// PersonTotal is one row of a per-person aggregation.
type PersonTotal struct {
	PersonID string
	Name     string
	Total    Money
}

// PersonBalance is one row of a period balance summary.
type PersonBalance struct {
	PersonID string
	Name     string
	Balance  Money
}

// SummarizeByPerson sums transaction amounts per person. Callers pass a
// homogeneous set (all purchases or all payments) when a single-sign total
// is wanted. Persons no longer on file are labelled "Unknown". Rows are
// sorted by name, then id, for stable output.
func SummarizeByPerson(txs []Transaction, persons []Person) []PersonTotal {
	totals := make(map[string]int64)
	for _, tx := range txs {
		totals[tx.TransactionPerson()] += tx.TransactionAmount().Cents
	}

	names := make(map[string]string, len(persons))
	for _, p := range persons {
		names[p.ID] = p.Name
	}

	out := make([]PersonTotal, 0, len(totals))
	for id, cents := range totals {
		name, ok := names[id]
		if !ok {
			name = "Unknown"
		}
		out = append(out, PersonTotal{PersonID: id, Name: name, Total: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].PersonID < out[j].PersonID
	})
	return out
}

// PeriodBalance is the net movement, payments minus purchases, restricted
// to the supplied transactions. It is NOT the person's current balance,
// which is cumulative since creation.
func PeriodBalance(purchases []Purchase, payments []Payment) Money {
	var net int64
	for _, p := range payments {
		net += p.Amount.Cents
	}
	for _, p := range purchases {
		net -= p.Amount.Cents
	}
	return Money{Cents: net}
}

// BalanceSummary computes each person's net movement over the supplied
// transactions. Persons whose net movement is exactly zero are omitted;
// persons with no transactions at all never produce a row.
func BalanceSummary(persons []Person, purchases []Purchase, payments []Payment) []PersonBalance {
	nets := make(map[string]int64)
	for _, p := range payments {
		nets[p.PersonID] += p.Amount.Cents
	}
	for _, p := range purchases {
		nets[p.PersonID] -= p.Amount.Cents
	}

	names := make(map[string]string, len(persons))
	for _, p := range persons {
		names[p.ID] = p.Name
	}

	out := make([]PersonBalance, 0, len(nets))
	for id, cents := range nets {
		if cents == 0 {
			continue
		}
		name, ok := names[id]
		if !ok {
			name = "Unknown"
		}
		out = append(out, PersonBalance{PersonID: id, Name: name, Balance: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].PersonID < out[j].PersonID
	})
	return out
}

// SplitPayments partitions payments into regular ones and manual
// adjustments. Whether reports group or separate them is a presentation
// choice; both slices are exposed so callers can pick either.
func SplitPayments(payments []Payment) (regular, adjustments []Payment) {
	for _, p := range payments {
		if p.Type == PaymentManualAdjustment {
			adjustments = append(adjustments, p)
		} else {
			regular = append(regular, p)
		}
	}
	return regular, adjustments
}

// PurchaseTransactions adapts purchases for SummarizeByPerson.
func PurchaseTransactions(purchases []Purchase) []Transaction {
	txs := make([]Transaction, len(purchases))
	for i, p := range purchases {
		txs[i] = p
	}
	return txs
}

// PaymentTransactions adapts payments for SummarizeByPerson.
func PaymentTransactions(payments []Payment) []Transaction {
	txs := make([]Transaction, len(payments))
	for i, p := range payments {
		txs[i] = p
	}
	return txs
}
