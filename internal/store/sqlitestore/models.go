package sqlitestore

import (
	"time"

	"github.com/shopspring/decimal"

	"bizbiller/internal/core"
)

// Row models. Money and quantity columns are TEXT so decimals survive exactly;
// decimal.Decimal scans from and writes to its string form.

type businessRow struct {
	ID        int64 `gorm:"primaryKey"`
	Name      string
	Phone     string
	Email     string
	Address   string
	GSTIN     string `gorm:"column:gstin"`
	State     string
	CreatedAt time.Time
}

func (businessRow) TableName() string { return "businesses" }

type settingRow struct {
	BusinessID int64  `gorm:"uniqueIndex:idx_settings_key;not null"`
	Key        string `gorm:"uniqueIndex:idx_settings_key;not null"`
	Value      string
}

func (settingRow) TableName() string { return "settings" }

type sequenceRow struct {
	BusinessID int64  `gorm:"uniqueIndex:idx_sequences_series;not null"`
	Series     string `gorm:"uniqueIndex:idx_sequences_series;not null"`
	Value      int64  `gorm:"not null"`
}

func (sequenceRow) TableName() string { return "sequences" }

type partyRow struct {
	ID             int64 `gorm:"primaryKey"`
	BusinessID     int64 `gorm:"index;not null"`
	Type           string
	Name           string
	Phone          string
	Email          string
	Address        string
	GSTIN          string          `gorm:"column:gstin"`
	State          string
	OpeningBalance decimal.Decimal `gorm:"type:text;not null"`
	Balance        decimal.Decimal `gorm:"type:text;not null"`
	CreatedAt      time.Time
}

func (partyRow) TableName() string { return "parties" }

type itemRow struct {
	ID            int64 `gorm:"primaryKey"`
	BusinessID    int64 `gorm:"index;not null"`
	Name          string
	SKU           string `gorm:"column:sku"`
	HSN           string `gorm:"column:hsn"`
	Category      string
	Unit          string
	SalePrice     decimal.Decimal `gorm:"type:text;not null"`
	PurchasePrice decimal.Decimal `gorm:"type:text;not null"`
	GSTRate       decimal.Decimal `gorm:"column:gst_rate;type:text;not null"`
	OpeningStock  decimal.Decimal `gorm:"type:text;not null"`
	Stock         decimal.Decimal `gorm:"type:text;not null"`
	CreatedAt     time.Time
}

func (itemRow) TableName() string { return "items" }

type accountRow struct {
	ID             int64 `gorm:"primaryKey"`
	BusinessID     int64 `gorm:"index;not null"`
	Type           string
	Name           string
	BankName       string
	AccountNumber  string
	OpeningBalance decimal.Decimal `gorm:"type:text;not null"`
	Balance        decimal.Decimal `gorm:"type:text;not null"`
	CreatedAt      time.Time
}

func (accountRow) TableName() string { return "accounts" }

type invoiceRow struct {
	ID              int64  `gorm:"primaryKey"`
	BusinessID      int64  `gorm:"uniqueIndex:idx_invoices_number;not null"`
	Type            string `gorm:"uniqueIndex:idx_invoices_number;not null"`
	Number          string `gorm:"uniqueIndex:idx_invoices_number;not null"`
	Date            string `gorm:"index"`
	PartyID         *int64 `gorm:"index"`
	PartyName       string
	IsGST           bool            `gorm:"column:is_gst"`
	DiscountPercent decimal.Decimal `gorm:"type:text;not null"`
	DiscountAmount  decimal.Decimal `gorm:"type:text;not null"`
	Subtotal        decimal.Decimal `gorm:"type:text;not null"`
	Discount        decimal.Decimal `gorm:"type:text;not null"`
	TaxableAmount   decimal.Decimal `gorm:"type:text;not null"`
	CGST            decimal.Decimal `gorm:"column:cgst;type:text;not null"`
	SGST            decimal.Decimal `gorm:"column:sgst;type:text;not null"`
	TotalTax        decimal.Decimal `gorm:"type:text;not null"`
	RoundOff        decimal.Decimal `gorm:"type:text;not null"`
	GrandTotal      decimal.Decimal `gorm:"type:text;not null"`
	Paid            decimal.Decimal `gorm:"type:text;not null"`
	Due             decimal.Decimal `gorm:"type:text;not null"`
	Status          string
	PaymentMode     string
	Notes           string
	SourceID        *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (invoiceRow) TableName() string { return "invoices" }

type invoiceLineRow struct {
	ID        int64 `gorm:"primaryKey"`
	InvoiceID int64 `gorm:"index;not null"`
	Position  int   `gorm:"not null"`
	ItemID    *int64
	Name      string
	Unit      string
	Quantity  decimal.Decimal `gorm:"type:text;not null"`
	Rate      decimal.Decimal `gorm:"type:text;not null"`
	GSTRate   decimal.Decimal `gorm:"column:gst_rate;type:text;not null"`
}

func (invoiceLineRow) TableName() string { return "invoice_lines" }

type transactionRow struct {
	ID             int64  `gorm:"primaryKey"`
	BusinessID     int64  `gorm:"uniqueIndex:idx_transactions_key;not null"`
	Type           string `gorm:"not null"`
	InvoiceID      *int64 `gorm:"index"`
	PartyID        *int64 `gorm:"index"`
	AccountID      *int64 `gorm:"index"`
	Amount         decimal.Decimal `gorm:"type:text;not null"`
	Mode           string
	Date           string `gorm:"index"`
	Reference      string
	IdempotencyKey string `gorm:"uniqueIndex:idx_transactions_key;not null"`
	CreatedAt      time.Time
}

func (transactionRow) TableName() string { return "transactions" }

type expenseRow struct {
	ID          int64 `gorm:"primaryKey"`
	BusinessID  int64 `gorm:"index;not null"`
	Category    string
	Amount      decimal.Decimal `gorm:"type:text;not null"`
	Date        string          `gorm:"index"`
	AccountID   *int64
	PaymentMode string
	Notes       string
	CreatedAt   time.Time
}

func (expenseRow) TableName() string { return "expenses" }

// allModels is the AutoMigrate set, in dependency order.
var allModels = []any{
	&businessRow{},
	&settingRow{},
	&sequenceRow{},
	&partyRow{},
	&itemRow{},
	&accountRow{},
	&invoiceRow{},
	&invoiceLineRow{},
	&transactionRow{},
	&expenseRow{},
}

// ── Row <-> domain conversions ──

func businessFromRow(r businessRow) core.Business {
	return core.Business{
		ID: r.ID, Name: r.Name, Phone: r.Phone, Email: r.Email,
		Address: r.Address, GSTIN: r.GSTIN, State: r.State, CreatedAt: r.CreatedAt,
	}
}

func partyFromRow(r partyRow) core.Party {
	return core.Party{
		ID: r.ID, BusinessID: r.BusinessID, Type: core.PartyType(r.Type), Name: r.Name,
		Phone: r.Phone, Email: r.Email, Address: r.Address, GSTIN: r.GSTIN, State: r.State,
		OpeningBalance: r.OpeningBalance, Balance: r.Balance, CreatedAt: r.CreatedAt,
	}
}

func itemFromRow(r itemRow) core.Item {
	return core.Item{
		ID: r.ID, BusinessID: r.BusinessID, Name: r.Name, SKU: r.SKU, HSN: r.HSN,
		Category: r.Category, Unit: r.Unit, SalePrice: r.SalePrice, PurchasePrice: r.PurchasePrice,
		GSTRate: r.GSTRate, OpeningStock: r.OpeningStock, Stock: r.Stock, CreatedAt: r.CreatedAt,
	}
}

func accountFromRow(r accountRow) core.Account {
	return core.Account{
		ID: r.ID, BusinessID: r.BusinessID, Type: core.AccountType(r.Type), Name: r.Name,
		BankName: r.BankName, AccountNumber: r.AccountNumber,
		OpeningBalance: r.OpeningBalance, Balance: r.Balance, CreatedAt: r.CreatedAt,
	}
}

func invoiceToRow(inv *core.Invoice) invoiceRow {
	return invoiceRow{
		ID:              inv.ID,
		BusinessID:      inv.BusinessID,
		Type:            string(inv.Type),
		Number:          inv.Number,
		Date:            inv.Date,
		PartyID:         inv.PartyID,
		PartyName:       inv.PartyName,
		IsGST:           inv.IsGST,
		DiscountPercent: inv.DiscountPercent,
		DiscountAmount:  inv.DiscountAmount,
		Subtotal:        inv.Subtotal,
		Discount:        inv.Discount,
		TaxableAmount:   inv.TaxableAmount,
		CGST:            inv.CGST,
		SGST:            inv.SGST,
		TotalTax:        inv.TotalTax,
		RoundOff:        inv.RoundOff,
		GrandTotal:      inv.GrandTotal,
		Paid:            inv.Paid,
		Due:             inv.Due,
		Status:          string(inv.Status),
		PaymentMode:     inv.PaymentMode,
		Notes:           inv.Notes,
		SourceID:        inv.SourceID,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

func invoiceFromRow(r invoiceRow, lines []invoiceLineRow) core.Invoice {
	inv := core.Invoice{
		ID:              r.ID,
		BusinessID:      r.BusinessID,
		Type:            core.DocumentType(r.Type),
		Number:          r.Number,
		Date:            r.Date,
		PartyID:         r.PartyID,
		PartyName:       r.PartyName,
		IsGST:           r.IsGST,
		DiscountPercent: r.DiscountPercent,
		DiscountAmount:  r.DiscountAmount,
		Totals: core.Totals{
			Subtotal:      r.Subtotal,
			Discount:      r.Discount,
			TaxableAmount: r.TaxableAmount,
			CGST:          r.CGST,
			SGST:          r.SGST,
			TotalTax:      r.TotalTax,
			RoundOff:      r.RoundOff,
			GrandTotal:    r.GrandTotal,
		},
		Paid:        r.Paid,
		Due:         r.Due,
		Status:      core.InvoiceStatus(r.Status),
		PaymentMode: r.PaymentMode,
		Notes:       r.Notes,
		SourceID:    r.SourceID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Lines:       make([]core.LineItem, 0, len(lines)),
	}
	for _, l := range lines {
		inv.Lines = append(inv.Lines, core.LineItem{
			ItemID: l.ItemID, Name: l.Name, Unit: l.Unit,
			Quantity: l.Quantity, Rate: l.Rate, GSTRate: l.GSTRate,
		})
	}
	return inv
}

func linesToRows(invoiceID int64, lines []core.LineItem) []invoiceLineRow {
	rows := make([]invoiceLineRow, len(lines))
	for i, l := range lines {
		rows[i] = invoiceLineRow{
			InvoiceID: invoiceID, Position: i, ItemID: l.ItemID, Name: l.Name, Unit: l.Unit,
			Quantity: l.Quantity, Rate: l.Rate, GSTRate: l.GSTRate,
		}
	}
	return rows
}

func transactionFromRow(r transactionRow) core.Transaction {
	return core.Transaction{
		ID: r.ID, BusinessID: r.BusinessID, Type: core.TransactionType(r.Type),
		InvoiceID: r.InvoiceID, PartyID: r.PartyID, AccountID: r.AccountID,
		Amount: r.Amount, Mode: r.Mode, Date: r.Date, Reference: r.Reference,
		IdempotencyKey: r.IdempotencyKey, CreatedAt: r.CreatedAt,
	}
}

func expenseFromRow(r expenseRow) core.Expense {
	return core.Expense{
		ID: r.ID, BusinessID: r.BusinessID, Category: r.Category, Amount: r.Amount,
		Date: r.Date, AccountID: r.AccountID, PaymentMode: r.PaymentMode,
		Notes: r.Notes, CreatedAt: r.CreatedAt,
	}
}
