// Package clients manages the shipping contacts orders are delivered to.
package clients

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
)

// ContactInput is the shipping contact as submitted with an order.
type ContactInput struct {
	Name    string  `json:"name" validate:"required"`
	Phone   string  `json:"phone" validate:"required"`
	Address string  `json:"address" validate:"required"`
	City    *string `json:"city,omitempty"`
}

// Repository looks up or creates clients keyed by phone number.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	LookupOrCreate(ctx context.Context, input ContactInput) (*models.Client, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a client repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// LookupOrCreate matches on the normalized phone number. An existing client
// gets its contact details refreshed from the latest order.
func (r *repository) LookupOrCreate(ctx context.Context, input ContactInput) (*models.Client, error) {
	phone := normalizePhone(input.Phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client phone required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client name required")
	}
	if strings.TrimSpace(input.Address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client address required")
	}

	var client models.Client
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&client).Error
	if err == nil {
		client.Name = input.Name
		client.Address = input.Address
		client.City = input.City
		if uerr := r.db.WithContext(ctx).Save(&client).Error; uerr != nil {
			return nil, uerr
		}
		return &client, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	client = models.Client{
		ID:      uuid.New(),
		Name:    input.Name,
		Phone:   phone,
		Address: input.Address,
		City:    input.City,
	}
	if cerr := r.db.WithContext(ctx).Create(&client).Error; cerr != nil {
		return nil, cerr
	}
	return &client, nil
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
