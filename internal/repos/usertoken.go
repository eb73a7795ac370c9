package repos

import (
    "context"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/slotter-org/aristo-backend/internal/logger"
    "github.com/slotter-org/aristo-backend/internal/types"
)

type UserTokenRepo interface {
    // CREATE
    Create(ctx context.Context, tx *gorm.DB, userTokens []*types.UserToken) ([]*types.UserToken, error)

    // READ
    GetByAccessTokens(ctx context.Context, tx *gorm.DB, accessTokens []string) ([]*types.UserToken, error)
    GetByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) ([]*types.UserToken, error)

    // FULL (HARD) DELETE
    FullDeleteByIDs(ctx context.Context, tx *gorm.DB, tokenIDs []uuid.UUID) error
    FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error
}

type userTokenRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
    repoLog := baseLog.With("repo", "UserTokenRepo")
    return &userTokenRepo{db: db, log: repoLog}
}

func (utr *userTokenRepo) Create(ctx context.Context, tx *gorm.DB, userTokens []*types.UserToken) ([]*types.UserToken, error) {
    utr.log.Info("Starting Create UserTokens now...")

    // 1) Transaction check
    transaction := tx
    if transaction == nil {
        transaction = utr.db
        utr.log.Debug("Transaction is nil, using utr.db")
    }

    // 2) If no userTokens, skip
    if len(userTokens) == 0 {
        utr.log.Debug("No userTokens provided, returning empty slice")
        return []*types.UserToken{}, nil
    }

    // 3) Create
    if err := transaction.WithContext(ctx).Create(&userTokens).Error; err != nil {
        utr.log.Error("Failed to create userTokens", "error", err)
        return nil, err
    }
    utr.log.Info("Successfully created userTokens", "count", len(userTokens))
    return userTokens, nil
}

func (utr *userTokenRepo) GetByAccessTokens(ctx context.Context, tx *gorm.DB, accessTokens []string) ([]*types.UserToken, error) {
    return utr.getByColumn(ctx, tx, "access_token", accessTokens)
}

func (utr *userTokenRepo) GetByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) ([]*types.UserToken, error) {
    return utr.getByColumn(ctx, tx, "refresh_token", refreshTokens)
}

func (utr *userTokenRepo) getByColumn(ctx context.Context, tx *gorm.DB, column string, values []string) ([]*types.UserToken, error) {
    utr.log.Info("Starting GetUserTokens now...", "column", column)

    transaction := tx
    if transaction == nil {
        transaction = utr.db
    }

    var results []*types.UserToken
    if len(values) == 0 {
        utr.log.Debug("No tokens provided, returning empty slice")
        return results, nil
    }
    if err := transaction.WithContext(ctx).
        Where(column+" IN ?", values).
        Find(&results).Error; err != nil {
        utr.log.Error("Failed to fetch userTokens", "column", column, "error", err)
        return nil, err
    }
    utr.log.Info("Successfully fetched userTokens", "count", len(results))
    return results, nil
}

func (utr *userTokenRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, tokenIDs []uuid.UUID) error {
    utr.log.Info("Starting FullDeleteByIDs for UserTokens now...")

    transaction := tx
    if transaction == nil {
        transaction = utr.db
    }
    if len(tokenIDs) == 0 {
        return nil
    }
    if err := transaction.WithContext(ctx).
        Unscoped().
        Where("id IN ?", tokenIDs).
        Delete(&types.UserToken{}).Error; err != nil {
        utr.log.Error("Failed to delete userTokens by IDs", "error", err)
        return err
    }
    utr.log.Info("Successfully deleted userTokens", "count", len(tokenIDs))
    return nil
}

func (utr *userTokenRepo) FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
    utr.log.Info("Starting FullDeleteByUserIDs for UserTokens now...")

    transaction := tx
    if transaction == nil {
        transaction = utr.db
    }
    if len(userIDs) == 0 {
        return nil
    }
    if err := transaction.WithContext(ctx).
        Unscoped().
        Where("user_id IN ?", userIDs).
        Delete(&types.UserToken{}).Error; err != nil {
        utr.log.Error("Failed to delete userTokens by userIDs", "error", err)
        return err
    }
    utr.log.Info("Successfully deleted userTokens for users", "count", len(userIDs))
    return nil
}
