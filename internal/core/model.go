package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType identifies the kind of billing document.
type DocumentType string

const (
	DocSale     DocumentType = "sale"
	DocPurchase DocumentType = "purchase"
	DocEstimate DocumentType = "estimate"
	DocProforma DocumentType = "proforma"
	DocChallan  DocumentType = "challan"
)

// DocumentTypes lists every document type in display order.
var DocumentTypes = []DocumentType{DocSale, DocPurchase, DocEstimate, DocProforma, DocChallan}

func (t DocumentType) Valid() bool {
	switch t {
	case DocSale, DocPurchase, DocEstimate, DocProforma, DocChallan:
		return true
	}
	return false
}

// IsFinancial reports whether the document moves stock, party balance and money.
// Estimates, proformas and challans never do.
func (t DocumentType) IsFinancial() bool {
	return t == DocSale || t == DocPurchase
}

type InvoiceStatus string

const (
	StatusUnpaid  InvoiceStatus = "unpaid"
	StatusPartial InvoiceStatus = "partial"
	StatusPaid    InvoiceStatus = "paid"
)

type PartyType string

const (
	PartyCustomer PartyType = "customer"
	PartySupplier PartyType = "supplier"
)

type AccountType string

const (
	AccountCash AccountType = "cash"
	AccountBank AccountType = "bank"
)

type TransactionType string

const (
	TxnPaymentIn  TransactionType = "payment_in"
	TxnPaymentOut TransactionType = "payment_out"
)

// StockDirection is the direction of a stock adjustment.
type StockDirection string

const (
	StockIncrease StockDirection = "increase"
	StockDecrease StockDirection = "decrease"
)

// BalanceDirection moves a party balance on the receivable-positive scale:
// increase means the party owes the business more.
type BalanceDirection string

const (
	BalanceIncrease BalanceDirection = "increase"
	BalanceDecrease BalanceDirection = "decrease"
)

// CashDirection: credit adds to an account balance, debit takes from it.
type CashDirection string

const (
	CashCredit CashDirection = "credit"
	CashDebit  CashDirection = "debit"
)

// Business is the tenant every other record belongs to.
type Business struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	GSTIN     string    `json:"gstin"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Party is a customer or supplier.
// Balance is signed: positive means the party owes the business,
// negative means the business owes the party.
type Party struct {
	ID             int64           `json:"id"`
	BusinessID     int64           `json:"business_id"`
	Type           PartyType       `json:"type"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Address        string          `json:"address"`
	GSTIN          string          `json:"gstin"`
	State          string          `json:"state"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Item is a catalog entry. Stock changes only through the StockLedger.
type Item struct {
	ID            int64           `json:"id"`
	BusinessID    int64           `json:"business_id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	HSN           string          `json:"hsn"`
	Category      string          `json:"category"`
	Unit          string          `json:"unit"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	GSTRate       decimal.Decimal `json:"gst_rate"`
	OpeningStock  decimal.Decimal `json:"opening_stock"`
	Stock         decimal.Decimal `json:"stock"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Account is a cash drawer or bank account.
type Account struct {
	ID             int64           `json:"id"`
	BusinessID     int64           `json:"business_id"`
	Type           AccountType     `json:"type"`
	Name           string          `json:"name"`
	BankName       string          `json:"bank_name"`
	AccountNumber  string          `json:"account_number"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// LineItem is one invoice row. Name, unit, rate and GST rate are snapshots
// taken when the line was added; they never follow later catalog edits.
type LineItem struct {
	ItemID   *int64          `json:"item_id,omitempty"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Quantity decimal.Decimal `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
	GSTRate  decimal.Decimal `json:"gst_rate"`
}

// LineTotals is the per-line breakdown produced by ComputeTotals.
type LineTotals struct {
	Amount decimal.Decimal `json:"amount"`
	Tax    decimal.Decimal `json:"tax"`
	CGST   decimal.Decimal `json:"cgst"`
	SGST   decimal.Decimal `json:"sgst"`
}

// Totals is the derived money breakdown of an invoice.
// Lines is returned by ComputeTotals and is not persisted.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	CGST          decimal.Decimal `json:"cgst"`
	SGST          decimal.Decimal `json:"sgst"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	RoundOff      decimal.Decimal `json:"round_off"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	Lines         []LineTotals    `json:"lines,omitempty"`
}

// Invoice is any billing document: sale, purchase, estimate, proforma or challan.
// Due and Status are always derived from GrandTotal and Paid.
type Invoice struct {
	ID              int64           `json:"id"`
	BusinessID      int64           `json:"business_id"`
	Type            DocumentType    `json:"type"`
	Number          string          `json:"number"`
	Date            string          `json:"date"` // YYYY-MM-DD
	PartyID         *int64          `json:"party_id,omitempty"`
	PartyName       string          `json:"party_name"`
	IsGST           bool            `json:"is_gst"`
	Lines           []LineItem      `json:"lines"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Totals
	Paid        decimal.Decimal `json:"paid"`
	Due         decimal.Decimal `json:"due"`
	Status      InvoiceStatus   `json:"status"`
	PaymentMode string          `json:"payment_mode"`
	Notes       string          `json:"notes"`
	SourceID    *int64          `json:"source_id,omitempty"` // estimate this sale was converted from
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Transaction is an immutable payment record against an invoice.
type Transaction struct {
	ID             int64           `json:"id"`
	BusinessID     int64           `json:"business_id"`
	Type           TransactionType `json:"type"`
	InvoiceID      *int64          `json:"invoice_id,omitempty"`
	PartyID        *int64          `json:"party_id,omitempty"`
	AccountID      *int64          `json:"account_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Mode           string          `json:"mode"`
	Date           string          `json:"date"`
	Reference      string          `json:"reference"`
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Expense is money paid out that is not tied to an invoice.
type Expense struct {
	ID          int64           `json:"id"`
	BusinessID  int64           `json:"business_id"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	AccountID   *int64          `json:"account_id,omitempty"`
	PaymentMode string          `json:"payment_mode"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
}
