package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CreateItemInput struct {
	Name          string          `json:"name" validate:"required,max=200"`
	SKU           string          `json:"sku" validate:"max=50"`
	HSN           string          `json:"hsn" validate:"omitempty,numeric,max=8"`
	Category      string          `json:"category" validate:"max=100"`
	Unit          string          `json:"unit" validate:"max=20"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	GSTRate       decimal.Decimal `json:"gst_rate"`
	OpeningStock  decimal.Decimal `json:"opening_stock"`
}

// UpdateItemInput changes catalog fields. Nil fields are left as they are.
// Stock moves only through the stock ledger, so it has no field here.
type UpdateItemInput struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	SKU           *string          `json:"sku,omitempty" validate:"omitempty,max=50"`
	HSN           *string          `json:"hsn,omitempty" validate:"omitempty,numeric,max=8"`
	Category      *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Unit          *string          `json:"unit,omitempty" validate:"omitempty,max=20"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	GSTRate       *decimal.Decimal `json:"gst_rate,omitempty"`
}

type ItemService interface {
	Create(ctx context.Context, sess Session, in CreateItemInput) (*Item, error)
	// Update edits the catalog entry. Documents keep the values copied into their lines.
	Update(ctx context.Context, sess Session, itemID int64, in UpdateItemInput) (*Item, error)
	// Delete refuses items that any document line still references.
	Delete(ctx context.Context, sess Session, itemID int64) error
	Get(ctx context.Context, sess Session, itemID int64) (*Item, error)
	List(ctx context.Context, sess Session) ([]Item, error)
	// Search matches query against name (case-insensitive), SKU and HSN code.
	Search(ctx context.Context, sess Session, query string) ([]Item, error)
	// LowStock returns items at or below the business's low-stock threshold.
	LowStock(ctx context.Context, sess Session) ([]Item, decimal.Decimal, error)
}

type itemService struct {
	store  Store
	locker BusinessLocker
}

func NewItemService(store Store, locker BusinessLocker) ItemService {
	return &itemService{store: store, locker: locker}
}

func (s *itemService) Create(ctx context.Context, sess Session, in CreateItemInput) (*Item, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := requireNonNegative("sale_price", in.SalePrice); err != nil {
		return nil, err
	}
	if err := requireNonNegative("purchase_price", in.PurchasePrice); err != nil {
		return nil, err
	}
	if err := requireNonNegative("opening_stock", in.OpeningStock); err != nil {
		return nil, err
	}
	if err := requirePercent("gst_rate", in.GSTRate); err != nil {
		return nil, err
	}
	if in.Unit == "" {
		in.Unit = "pcs"
	}

	unlock, err := lockBusiness(ctx, s.locker, sess)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.GetBusiness(ctx, sess.BusinessID); err != nil {
		return nil, err
	}

	it := &Item{
		BusinessID:    sess.BusinessID,
		Name:          in.Name,
		SKU:           in.SKU,
		HSN:           in.HSN,
		Category:      in.Category,
		Unit:          in.Unit,
		SalePrice:     in.SalePrice,
		PurchasePrice: in.PurchasePrice,
		GSTRate:       in.GSTRate,
		OpeningStock:  in.OpeningStock,
		Stock:         in.OpeningStock,
		CreatedAt:     time.Now().UTC(),
	}
	id, err := tx.InsertItem(ctx, it)
	if err != nil {
		return nil, fmt.Errorf("failed to create item %q: %w", in.Name, err)
	}
	it.ID = id

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit item creation: %w", err)
	}
	return it, nil
}

func (s *itemService) Update(ctx context.Context, sess Session, itemID int64, in UpdateItemInput) (*Item, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, newValidationError("name", "name cannot be empty")
	}
	if in.SalePrice != nil {
		if err := requireNonNegative("sale_price", *in.SalePrice); err != nil {
			return nil, err
		}
	}
	if in.PurchasePrice != nil {
		if err := requireNonNegative("purchase_price", *in.PurchasePrice); err != nil {
			return nil, err
		}
	}
	if in.GSTRate != nil {
		if err := requirePercent("gst_rate", *in.GSTRate); err != nil {
			return nil, err
		}
	}

	unlock, err := lockBusiness(ctx, s.locker, sess)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	it, err := tx.GetItem(ctx, sess.BusinessID, itemID)
	if err != nil {
		return nil, err
	}
	setIfPresent(&it.Name, in.Name)
	setIfPresent(&it.SKU, in.SKU)
	setIfPresent(&it.HSN, in.HSN)
	setIfPresent(&it.Category, in.Category)
	setIfPresent(&it.Unit, in.Unit)
	setIfPresent(&it.SalePrice, in.SalePrice)
	setIfPresent(&it.PurchasePrice, in.PurchasePrice)
	setIfPresent(&it.GSTRate, in.GSTRate)

	if err := tx.UpdateItem(ctx, it); err != nil {
		return nil, fmt.Errorf("failed to update item %d: %w", itemID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit item update: %w", err)
	}
	return it, nil
}

func (s *itemService) Delete(ctx context.Context, sess Session, itemID int64) error {
	unlock, err := lockBusiness(ctx, s.locker, sess)
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	it, err := tx.GetItem(ctx, sess.BusinessID, itemID)
	if err != nil {
		return err
	}
	used, err := tx.ItemInUse(ctx, sess.BusinessID, itemID)
	if err != nil {
		return err
	}
	if used {
		return newValidationError("item", "item %q is used on documents and cannot be deleted", it.Name)
	}
	if err := tx.DeleteItem(ctx, sess.BusinessID, itemID); err != nil {
		return fmt.Errorf("failed to delete item %d: %w", itemID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit item deletion: %w", err)
	}
	return nil
}

func (s *itemService) Get(ctx context.Context, sess Session, itemID int64) (*Item, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	return s.store.GetItem(ctx, sess.BusinessID, itemID)
}

func (s *itemService) List(ctx context.Context, sess Session) ([]Item, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	return s.store.ListItems(ctx, sess.BusinessID)
}

func (s *itemService) Search(ctx context.Context, sess Session, query string) ([]Item, error) {
	items, err := s.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	found := []Item{}
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), needle) ||
			(it.SKU != "" && strings.Contains(strings.ToLower(it.SKU), needle)) ||
			(it.HSN != "" && strings.Contains(it.HSN, needle)) {
			found = append(found, it)
		}
	}
	return found, nil
}

func (s *itemService) LowStock(ctx context.Context, sess Session) ([]Item, decimal.Decimal, error) {
	if err := sess.validate(); err != nil {
		return nil, decimal.Zero, err
	}
	threshold, err := resolveLowStockThreshold(ctx, s.store, sess.BusinessID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	items, err := s.store.ListItems(ctx, sess.BusinessID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to list items: %w", err)
	}
	low := []Item{}
	for _, it := range items {
		if it.Stock.LessThanOrEqual(threshold) {
			low = append(low, it)
		}
	}
	return low, threshold, nil
}
