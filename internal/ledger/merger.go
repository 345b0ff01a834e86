package ledger

import (
	"bilancio/internal/core"
)

// NormalizeAdHoc maps a cash expense or income to a Transaction. The sign
// is kept exactly as authored.
func NormalizeAdHoc(r core.AdHocRecord) core.Transaction {
	return core.Transaction{
		ID:               r.ID,
		Description:      r.Description,
		Amount:           r.Amount,
		AnchorDate:       r.Date,
		IsRecurring:      r.IsRecurring,
		RecurrenceMonths: r.RecurrenceMonths,
		CategoryID:       r.CategoryID,
		Source:           core.SourceAdHoc,
	}
}

// NormalizeBill maps a bill to a Transaction. Only paid bills belong to the
// realized ledger; anything else reports false.
//
// The amount is the paid amount when present, otherwise the billed amount,
// multiplied by -1 for payables and +1 for receivables. The stored sign is
// not normalized first, so a bill stored with a negative amount flips. The
// due date, not the payment date, anchors the transaction.
func NormalizeBill(b core.BillRecord) (core.Transaction, bool) {
	if b.Status != core.BillPaid {
		return core.Transaction{}, false
	}
	amount := b.Amount
	if b.PaidAmount != nil {
		amount = *b.PaidAmount
	}
	return core.Transaction{
		ID:               b.ID,
		Description:      b.Title,
		Amount:           b.Type.Sign().Mul(amount),
		AnchorDate:       b.DueDate,
		IsRecurring:      b.IsRecurring,
		RecurrenceMonths: b.RecurrenceMonths,
		CategoryID:       b.CategoryID,
		Source:           core.SourceBill,
	}, true
}

// Merge normalizes ad-hoc records and paid bills into one stream. The
// order of the result is unspecified.
func Merge(adHoc []core.AdHocRecord, bills []core.BillRecord) []core.Transaction {
	return merge(adHoc, bills, func(core.BillRecord) bool { return true })
}

// MergeSide is Merge restricted to the bills of one ledger side: payables
// for expenses, receivables for incomes. adHoc must already be the records
// of that side.
func MergeSide(side core.Side, adHoc []core.AdHocRecord, bills []core.BillRecord) []core.Transaction {
	want := side.BillType()
	return merge(adHoc, bills, func(b core.BillRecord) bool { return b.Type == want })
}

func merge(adHoc []core.AdHocRecord, bills []core.BillRecord, keep func(core.BillRecord) bool) []core.Transaction {
	out := make([]core.Transaction, 0, len(adHoc)+len(bills))
	for _, r := range adHoc {
		out = append(out, NormalizeAdHoc(r))
	}
	for _, b := range bills {
		if !keep(b) {
			continue
		}
		if t, ok := NormalizeBill(b); ok {
			out = append(out, t)
		}
	}
	return out
}
