package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
)

const defaultCountry = "Kenya"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages a customer's saved delivery addresses.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*models.Address, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
}

// Lookup resolves a saved address for checkout snapshots.
type Lookup interface {
	FindOwned(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
}

type CreateRequest struct {
	Phone       string `json:"phone" validate:"required"`
	AddressLine string `json:"address_line" validate:"required"`
	City        string `json:"city" validate:"required"`
	Country     string `json:"country"`
	IsDefault   bool   `json:"is_default"`
}

type service struct {
	repo *Repository
	tx   txRunner
}

func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Create stores the address. A new default clears the flag on the others.
func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	addr := &models.Address{
		UserID:      userID,
		Phone:       strings.TrimSpace(req.Phone),
		AddressLine: strings.TrimSpace(req.AddressLine),
		City:        strings.TrimSpace(req.City),
		Country:     strings.TrimSpace(req.Country),
		IsDefault:   req.IsDefault,
	}
	if addr.Phone == "" || addr.AddressLine == "" || addr.City == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone, address_line and city are required")
	}
	if addr.Country == "" {
		addr.Country = defaultCountry
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if addr.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear default address")
			}
		}
		if err := repo.Create(ctx, addr); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
	}
	return out, nil
}

// FindOwned returns NOT_FOUND when the address is missing or owned by someone else.
func (s *service) FindOwned(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	addr, err := s.repo.FindOwned(ctx, userID, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
	}
	return addr, nil
}
