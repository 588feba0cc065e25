package referrals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
)

// Repository manages vendors, referral edges and pack lookups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateVendor(ctx context.Context, vendor *models.Vendor) error
	FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindVendorByReferralCode(ctx context.Context, code string) (*models.Vendor, error)
	CreateEdges(ctx context.Context, edges []models.ReferralEdge) error
	AncestorsOf(ctx context.Context, vendorID uuid.UUID) ([]models.ReferralEdge, error)
	FindActivePack(ctx context.Context, id uuid.UUID) (*models.Pack, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a referrals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *repository) FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindVendorByReferralCode(ctx context.Context, code string) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) CreateEdges(ctx context.Context, edges []models.ReferralEdge) error {
	if len(edges) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&edges).Error
}

// AncestorsOf returns the referral chain above a vendor, closest level first.
func (r *repository) AncestorsOf(ctx context.Context, vendorID uuid.UUID) ([]models.ReferralEdge, error) {
	var edges []models.ReferralEdge
	err := r.db.WithContext(ctx).
		Where("referred_id = ?", vendorID).
		Order("level ASC").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *repository) FindActivePack(ctx context.Context, id uuid.UUID) (*models.Pack, error) {
	var pack models.Pack
	err := r.db.WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&pack).Error
	if err != nil {
		return nil, err
	}
	return &pack, nil
}
