package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCashAccountName is the cash account every new business starts with.
const DefaultCashAccountName = "Cash in Hand"

type CreateBusinessInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone" validate:"max=20"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=500"`
	GSTIN   string `json:"gstin" validate:"omitempty,len=15,alphanum"`
	State   string `json:"state" validate:"max=100"`
}

// BusinessService creates and reads tenants.
type BusinessService interface {
	// Create inserts the business with its default settings and a cash account.
	Create(ctx context.Context, in CreateBusinessInput) (*Business, error)
	Get(ctx context.Context, businessID int64) (*Business, error)
	List(ctx context.Context) ([]Business, error)
}

type businessService struct {
	store       Store
	phoneRegion string
}

// NewBusinessService constructs a BusinessService. phoneRegion is the
// two-letter region phone numbers are parsed against.
func NewBusinessService(store Store, phoneRegion string) BusinessService {
	return &businessService{store: store, phoneRegion: phoneRegion}
}

func (s *businessService) Create(ctx context.Context, in CreateBusinessInput) (*Business, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := validatePhone(in.Phone, s.phoneRegion); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	b := &Business{
		Name:      in.Name,
		Phone:     normalizePhone(in.Phone, s.phoneRegion),
		Email:     in.Email,
		Address:   in.Address,
		GSTIN:     in.GSTIN,
		State:     in.State,
		CreatedAt: now,
	}
	id, err := tx.InsertBusiness(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create business %q: %w", in.Name, err)
	}
	b.ID = id

	keys := make([]string, 0, len(DefaultSettings))
	for k := range DefaultSettings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := tx.SetSetting(ctx, id, k, DefaultSettings[k]); err != nil {
			return nil, fmt.Errorf("failed to write default setting %s: %w", k, err)
		}
	}

	cash := &Account{
		BusinessID:     id,
		Type:           AccountCash,
		Name:           DefaultCashAccountName,
		OpeningBalance: decimal.Zero,
		Balance:        decimal.Zero,
		CreatedAt:      now,
	}
	if _, err := tx.InsertAccount(ctx, cash); err != nil {
		return nil, fmt.Errorf("failed to create default cash account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit business creation: %w", err)
	}
	return b, nil
}

func (s *businessService) Get(ctx context.Context, businessID int64) (*Business, error) {
	return s.store.GetBusiness(ctx, businessID)
}

func (s *businessService) List(ctx context.Context) ([]Business, error) {
	return s.store.ListBusinesses(ctx)
}
