package withdrawals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	"github.com/souqline/souqline-backend/pkg/pagination"
)

// Repository manages persistence for withdrawal requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	ClaimPending(ctx context.Context, id uuid.UUID, status enums.WithdrawalStatus, decidedBy uuid.UUID) (bool, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WithdrawalRequest, string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a withdrawals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// ClaimPending flips a pending request to its terminal status. The pending
// guard in the WHERE clause makes concurrent decisions race-safe: only one
// caller sees a row updated.
func (r *repository) ClaimPending(ctx context.Context, id uuid.UUID, status enums.WithdrawalStatus, decidedBy uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, enums.WithdrawalStatusPending).
		Updates(map[string]any{
			"status":     status,
			"decided_by": decidedBy,
			"decided_at": time.Now().UTC(),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListByWallet(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WithdrawalRequest, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var requests []models.WithdrawalRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(requests) > limit {
		requests = requests[:limit]
		last := requests[len(requests)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return requests, next, nil
}
