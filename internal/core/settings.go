package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Setting keys understood by the core.
const (
	SettingInvoicePrefix  = "invoicePrefix"
	SettingPurchasePrefix = "purchasePrefix"
	SettingEstimatePrefix = "estimatePrefix"
	SettingProformaPrefix = "proformaPrefix"
	SettingChallanPrefix  = "challanPrefix"
	SettingLowStockAlert  = "lowStockAlert"
)

// DefaultSettings are written for every new business and used when a key is missing.
var DefaultSettings = map[string]string{
	SettingInvoicePrefix:  "INV",
	SettingPurchasePrefix: "PUR",
	SettingEstimatePrefix: "EST",
	SettingProformaPrefix: "PRO",
	SettingChallanPrefix:  "DC",
	SettingLowStockAlert:  "10",
}

var prefixKeys = map[DocumentType]string{
	DocSale:     SettingInvoicePrefix,
	DocPurchase: SettingPurchasePrefix,
	DocEstimate: SettingEstimatePrefix,
	DocProforma: SettingProformaPrefix,
	DocChallan:  SettingChallanPrefix,
}

// SettingsService reads and writes per-business settings, falling back to DefaultSettings.
type SettingsService interface {
	Get(ctx context.Context, sess Session, key string) (string, error)
	Set(ctx context.Context, sess Session, key, value string) error
	Prefix(ctx context.Context, sess Session, docType DocumentType) (string, error)
	LowStockThreshold(ctx context.Context, sess Session) (decimal.Decimal, error)
}

type settingsService struct {
	store  Store
	locker BusinessLocker
}

func NewSettingsService(store Store, locker BusinessLocker) SettingsService {
	return &settingsService{store: store, locker: locker}
}

func (s *settingsService) Get(ctx context.Context, sess Session, key string) (string, error) {
	if err := sess.validate(); err != nil {
		return "", err
	}
	return resolveSetting(ctx, s.store, sess.BusinessID, key)
}

func (s *settingsService) Set(ctx context.Context, sess Session, key, value string) error {
	if key == "" {
		return newValidationError("key", "setting key is required")
	}
	if err := validateSetting(key, value); err != nil {
		return err
	}

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

	if _, err := tx.GetBusiness(ctx, sess.BusinessID); err != nil {
		return err
	}
	if err := tx.SetSetting(ctx, sess.BusinessID, key, value); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit setting: %w", err)
	}
	return nil
}

func (s *settingsService) Prefix(ctx context.Context, sess Session, docType DocumentType) (string, error) {
	if err := sess.validate(); err != nil {
		return "", err
	}
	return resolvePrefix(ctx, s.store, sess.BusinessID, docType)
}

func (s *settingsService) LowStockThreshold(ctx context.Context, sess Session) (decimal.Decimal, error) {
	if err := sess.validate(); err != nil {
		return decimal.Zero, err
	}
	return resolveLowStockThreshold(ctx, s.store, sess.BusinessID)
}

// ── Shared resolution helpers (usable with a Store or a Tx) ─────────────────

func resolveSetting(ctx context.Context, q Queries, businessID int64, key string) (string, error) {
	v, ok, err := q.GetSetting(ctx, businessID, key)
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	if !ok {
		return DefaultSettings[key], nil
	}
	return v, nil
}

func resolvePrefix(ctx context.Context, q Queries, businessID int64, docType DocumentType) (string, error) {
	key, ok := prefixKeys[docType]
	if !ok {
		return "", newValidationError("type", "unknown document type %q", docType)
	}
	return resolveSetting(ctx, q, businessID, key)
}

func resolveLowStockThreshold(ctx context.Context, q Queries, businessID int64) (decimal.Decimal, error) {
	raw, err := resolveSetting(ctx, q, businessID, SettingLowStockAlert)
	if err != nil {
		return decimal.Zero, err
	}
	threshold, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s setting %q: %w", SettingLowStockAlert, raw, err)
	}
	return threshold, nil
}

func validateSetting(key, value string) error {
	if key == SettingLowStockAlert {
		v, err := decimal.NewFromString(value)
		if err != nil || v.IsNegative() {
			return newValidationError(key, "must be a non-negative number, got %q", value)
		}
	}
	for _, k := range prefixKeys {
		if k == key && len(value) > 10 {
			return newValidationError(key, "prefix must be at most 10 characters")
		}
	}
	return nil
}
