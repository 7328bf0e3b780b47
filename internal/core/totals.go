package core

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// ComputeTotals derives the money breakdown of a set of lines.
//
// Tax is charged per line on the undiscounted line amount and split into equal
// CGST/SGST halves. A non-zero discountPercent wins over discountAmount.
// GrandTotal is rawTotal rounded to a whole currency unit and RoundOff carries
// the difference, so Subtotal - Discount + TotalTax + RoundOff == GrandTotal.
//
// Inputs are assumed validated: quantities > 0, rates and percentages >= 0.
func ComputeTotals(lines []LineItem, gstEnabled bool, discountPercent, discountAmount decimal.Decimal) Totals {
	t := Totals{Lines: make([]LineTotals, len(lines))}

	for i, l := range lines {
		lt := LineTotals{Amount: l.Quantity.Mul(l.Rate)}
		if gstEnabled && l.GSTRate.IsPositive() {
			lt.Tax = lt.Amount.Mul(l.GSTRate).Div(hundred)
			lt.CGST = lt.Tax.Div(two)
			lt.SGST = lt.Tax.Sub(lt.CGST)
		}
		t.Lines[i] = lt

		t.Subtotal = t.Subtotal.Add(lt.Amount)
		t.TotalTax = t.TotalTax.Add(lt.Tax)
		t.CGST = t.CGST.Add(lt.CGST)
		t.SGST = t.SGST.Add(lt.SGST)
	}

	switch {
	case discountPercent.IsPositive():
		t.Discount = t.Subtotal.Mul(discountPercent).Div(hundred)
	case discountAmount.IsPositive():
		t.Discount = discountAmount
	}

	t.TaxableAmount = t.Subtotal.Sub(t.Discount)
	raw := t.TaxableAmount.Add(t.TotalTax)
	t.GrandTotal = raw.Round(0)
	t.RoundOff = t.GrandTotal.Sub(raw)
	return t
}

// DueAmount is grandTotal - paid, never below zero.
func DueAmount(grandTotal, paid decimal.Decimal) decimal.Decimal {
	due := grandTotal.Sub(paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// DeriveStatus returns paid when paid covers grandTotal (including a zero
// total), unpaid when nothing is paid, and partial otherwise.
func DeriveStatus(grandTotal, paid decimal.Decimal) InvoiceStatus {
	switch {
	case paid.GreaterThanOrEqual(grandTotal):
		return StatusPaid
	case paid.IsZero():
		return StatusUnpaid
	default:
		return StatusPartial
	}
}

// applyPaymentState re-derives Due and Status from GrandTotal and Paid.
func applyPaymentState(inv *Invoice) {
	inv.Due = DueAmount(inv.GrandTotal, inv.Paid)
	inv.Status = DeriveStatus(inv.GrandTotal, inv.Paid)
}
