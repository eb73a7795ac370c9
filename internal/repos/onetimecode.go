package repos

import (
    "context"

    "github.com/google/uuid"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/slotter-org/aristo-backend/internal/logger"
    "github.com/slotter-org/aristo-backend/internal/types"
)

type OneTimeCodeRepo interface {
    Create(ctx context.Context, tx *gorm.DB, otCodes []*types.OneTimeCode) ([]*types.OneTimeCode, error)
    // GetByCodeForUpdate locks the row; call it inside a transaction.
    GetByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*types.OneTimeCode, error)
    MarkUsed(ctx context.Context, tx *gorm.DB, otCodeID uuid.UUID) error
}

type oneTimeCodeRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewOneTimeCodeRepo(db *gorm.DB, baseLog *logger.Logger) OneTimeCodeRepo {
    repoLog := baseLog.With("repo", "OneTimeCodeRepo")
    return &oneTimeCodeRepo{db: db, log: repoLog}
}

func (ocr *oneTimeCodeRepo) Create(ctx context.Context, tx *gorm.DB, otCodes []*types.OneTimeCode) ([]*types.OneTimeCode, error) {
    ocr.log.Info("Starting Create OneTimeCodes now...")

    transaction := tx
    if transaction == nil {
        transaction = ocr.db
    }
    if len(otCodes) == 0 {
        return []*types.OneTimeCode{}, nil
    }
    if err := transaction.WithContext(ctx).Create(&otCodes).Error; err != nil {
        ocr.log.Error("Failed to create one-time codes", "error", err)
        return nil, err
    }
    ocr.log.Info("Successfully created one-time codes", "count", len(otCodes))
    return otCodes, nil
}

func (ocr *oneTimeCodeRepo) GetByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*types.OneTimeCode, error) {
    ocr.log.Info("Starting GetByCodeForUpdate now...")

    transaction := tx
    if transaction == nil {
        transaction = ocr.db
    }
    var otc types.OneTimeCode
    if err := transaction.WithContext(ctx).
        Clauses(clause.Locking{Strength: "UPDATE"}).
        Where("code = ?", code).
        First(&otc).Error; err != nil {
        ocr.log.Debug("One-time code lookup failed", "error", err)
        return nil, err
    }
    return &otc, nil
}

func (ocr *oneTimeCodeRepo) MarkUsed(ctx context.Context, tx *gorm.DB, otCodeID uuid.UUID) error {
    ocr.log.Info("Starting MarkUsed for OneTimeCode now...", "otCodeID", otCodeID)

    transaction := tx
    if transaction == nil {
        transaction = ocr.db
    }
    if otCodeID == uuid.Nil {
        ocr.log.Debug("otCodeID is nil, skipping MarkUsed")
        return nil
    }
    if err := transaction.WithContext(ctx).
        Model(&types.OneTimeCode{}).
        Where("id = ?", otCodeID).
        Update("used", true).Error; err != nil {
        ocr.log.Error("Failed to mark one-time code used", "error", err)
        return err
    }
    ocr.log.Info("Successfully marked one-time code as used", "otCodeID", otCodeID)
    return nil
}
