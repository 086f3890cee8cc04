package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vibesense/vibesense/internal/database"
	"github.com/vibesense/vibesense/internal/domain"
	apperrors "github.com/vibesense/vibesense/internal/errors"
	"github.com/vibesense/vibesense/internal/utils"
)

// ContextRepository persists the per-user agent context.
type ContextRepository struct {
	db *gorm.DB
}

// NewContextRepository creates a new agent context repository.
func NewContextRepository(db *gorm.DB) *ContextRepository {
	return &ContextRepository{db: db}
}

// Get returns the stored context for a user. A user without history gets
// the zero context ("keep_current", empty query).
func (r *ContextRepository) Get(ctx context.Context, userID string) (domain.AgentContext, error) {
	var record database.UserContext
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.AgentContext{LastAction: "keep_current"}, nil
	}
	if err != nil {
		return domain.AgentContext{}, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}

	return domain.AgentContext{
		LastAction:    record.LastAction,
		LastQuery:     record.LastQuery,
		LastReason:    record.LastReason,
		LastIntensity: record.LastIntensity,
		LastActionAt:  record.LastActionAt,
	}, nil
}

// Set upserts the context for a user.
func (r *ContextRepository) Set(ctx context.Context, userID string, agentCtx domain.AgentContext) error {
	if agentCtx.LastActionAt == 0 {
		agentCtx.LastActionAt = utils.NowUnix()
	}

	record := database.UserContext{
		UserID:        userID,
		LastAction:    agentCtx.LastAction,
		LastQuery:     agentCtx.LastQuery,
		LastReason:    agentCtx.LastReason,
		LastIntensity: agentCtx.LastIntensity,
		LastActionAt:  agentCtx.LastActionAt,
	}

	err := r.db.WithContext(ctx).
		Where(database.UserContext{UserID: userID}).
		Assign(record).
		FirstOrCreate(&database.UserContext{}).Error
	if err != nil {
		return apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}
	return nil
}
