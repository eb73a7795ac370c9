package repos

import (
    "context"
    "errors"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/slotter-org/aristo-backend/internal/logger"
    "github.com/slotter-org/aristo-backend/internal/types"
)

type ResourceRepo interface {
    ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]types.Resource, error)
    Insert(ctx context.Context, tx *gorm.DB, resource types.Resource) error
    // Delete removes the row and returns it, or nil when nothing matched.
    Delete(ctx context.Context, tx *gorm.DB, userID uuid.UUID, resourceID string) (*types.Resource, error)
    ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]types.Resource, error)
    Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type resourceRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
    repoLog := baseLog.With("repo", "ResourceRepo")
    return &resourceRepo{db: db, log: repoLog}
}

func (rr *resourceRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]types.Resource, error) {
    rr.log.Info("Starting ListByUser for Resources now...", "userID", userID)

    transaction := tx
    if transaction == nil {
        transaction = rr.db
    }

    results := []types.Resource{}
    if userID == uuid.Nil {
        return results, nil
    }
    if err := transaction.WithContext(ctx).
        Where("user_id = ?", userID).
        Order("uploaded_at ASC").
        Find(&results).Error; err != nil {
        rr.log.Error("Failed to list resources", "error", err)
        return nil, err
    }
    rr.log.Info("Successfully listed resources", "count", len(results))
    return results, nil
}

func (rr *resourceRepo) Insert(ctx context.Context, tx *gorm.DB, resource types.Resource) error {
    rr.log.Info("Starting Insert Resource now...", "resourceID", resource.ID)

    transaction := tx
    if transaction == nil {
        transaction = rr.db
    }
    if err := transaction.WithContext(ctx).Create(&resource).Error; err != nil {
        rr.log.Error("Failed to insert resource", "error", err)
        return err
    }
    rr.log.Info("Successfully inserted resource", "resourceID", resource.ID)
    return nil
}

func (rr *resourceRepo) Delete(ctx context.Context, tx *gorm.DB, userID uuid.UUID, resourceID string) (*types.Resource, error) {
    rr.log.Info("Starting Delete Resource now...", "resourceID", resourceID)

    transaction := tx
    if transaction == nil {
        transaction = rr.db
    }

    var deleted *types.Resource
    err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
        // 1) Load the row so the caller can clean up its object
        var existing types.Resource
        if err := inner.Where("id = ? AND user_id = ?", resourceID, userID).First(&existing).Error; err != nil {
            if errors.Is(err, gorm.ErrRecordNotFound) {
                return nil
            }
            return err
        }

        // 2) Delete
        if err := inner.Delete(&existing).Error; err != nil {
            return err
        }
        deleted = &existing
        return nil
    })
    if err != nil {
        rr.log.Error("Failed to delete resource", "error", err)
        return nil, err
    }
    rr.log.Info("Finished Delete Resource", "resourceID", resourceID, "found", deleted != nil)
    return deleted, nil
}

func (rr *resourceRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]types.Resource, error) {
    transaction := tx
    if transaction == nil {
        transaction = rr.db
    }
    if limit <= 0 {
        limit = 10
    }
    results := []types.Resource{}
    if err := transaction.WithContext(ctx).
        Order("uploaded_at DESC").
        Limit(limit).
        Find(&results).Error; err != nil {
        rr.log.Error("Failed to list recent resources", "error", err)
        return nil, err
    }
    return results, nil
}

func (rr *resourceRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
    transaction := tx
    if transaction == nil {
        transaction = rr.db
    }
    var count int64
    if err := transaction.WithContext(ctx).Model(&types.Resource{}).Count(&count).Error; err != nil {
        rr.log.Error("Failed to count resources", "error", err)
        return 0, err
    }
    return count, nil
}
