package repos

import (
    "context"
    "fmt"
    "strings"

    "github.com/google/uuid"
    "gorm.io/datatypes"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/slotter-org/aristo-backend/internal/logger"
    "github.com/slotter-org/aristo-backend/internal/types"
)

type UserRepo interface {
    // CREATE
    Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)

    // READ
    GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error)
    GetByEmails(ctx context.Context, tx *gorm.DB, userEmails []string) ([]*types.User, error)
    EmailExists(ctx context.Context, tx *gorm.DB, userEmail string) (bool, error)
    Count(ctx context.Context, tx *gorm.DB) (int64, error)

    // PARTIAL UPDATE
    UpdateProfile(ctx context.Context, tx *gorm.DB, userID uuid.UUID, update types.ProfileUpdate) (*types.User, error)
    UpdatePassword(ctx context.Context, tx *gorm.DB, userID uuid.UUID, passwordHash string) error
    UpdateAvatar(ctx context.Context, tx *gorm.DB, userID uuid.UUID, avatarURL, bucketKey string) error
}

type userRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
    repoLog := baseLog.With("repo", "UserRepo")
    return &userRepo{db: db, log: repoLog}
}

// ----------------------------------------------------------------
// CREATE
// ----------------------------------------------------------------

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
    ur.log.Info("Starting Create Users now...")

    // 1) Check transaction
    transaction := tx
    if transaction == nil {
        transaction = ur.db
        ur.log.Debug("Transaction is nil, using ur.db instead")
    }

    // 2) Check if empty
    if len(users) == 0 {
        ur.log.Debug("Users array is empty, returning empty slice", "count", 0)
        return []*types.User{}, nil
    }
    for _, u := range users {
        u.Email = strings.ToLower(strings.TrimSpace(u.Email))
    }

    // 3) Create
    ur.log.Info("Creating users now in DB...", "count", len(users))
    if err := transaction.WithContext(ctx).Create(&users).Error; err != nil {
        ur.log.Error("Failed to create users", "error", err)
        return nil, err
    }
    ur.log.Info("Successfully created users", "count", len(users))
    return users, nil
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (ur *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
    ur.log.Info("Starting GetByIDs for Users now...")

    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }

    var results []*types.User
    if len(userIDs) == 0 {
        ur.log.Debug("No userIDs provided, returning empty slice")
        return results, nil
    }

    if err := transaction.WithContext(ctx).
        Where("id IN ?", userIDs).
        Find(&results).Error; err != nil {
        ur.log.Error("Failed to fetch users by IDs", "error", err)
        return nil, err
    }
    ur.log.Info("Successfully fetched users by IDs", "count", len(results))
    return results, nil
}

func (ur *userRepo) GetByEmails(ctx context.Context, tx *gorm.DB, userEmails []string) ([]*types.User, error) {
    ur.log.Info("Starting GetByEmails for Users now...")

    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }

    var results []*types.User
    if len(userEmails) == 0 {
        ur.log.Debug("No userEmails provided, returning empty slice")
        return results, nil
    }
    normalized := make([]string, 0, len(userEmails))
    for _, e := range userEmails {
        normalized = append(normalized, strings.ToLower(strings.TrimSpace(e)))
    }

    if err := transaction.WithContext(ctx).
        Where("email IN ?", normalized).
        Find(&results).Error; err != nil {
        ur.log.Error("Failed to fetch users by emails", "error", err)
        return nil, err
    }
    ur.log.Info("Successfully fetched users by emails", "count", len(results))
    return results, nil
}

func (ur *userRepo) EmailExists(ctx context.Context, tx *gorm.DB, userEmail string) (bool, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }

    var count int64
    if err := transaction.WithContext(ctx).
        Model(&types.User{}).
        Where("email = ?", strings.ToLower(strings.TrimSpace(userEmail))).
        Count(&count).Error; err != nil {
        ur.log.Error("Failed to check email existence", "error", err)
        return false, err
    }
    return count > 0, nil
}

func (ur *userRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    var count int64
    if err := transaction.WithContext(ctx).Model(&types.User{}).Count(&count).Error; err != nil {
        ur.log.Error("Failed to count users", "error", err)
        return 0, err
    }
    return count, nil
}

// ----------------------------------------------------------------
// PARTIAL UPDATE
// ----------------------------------------------------------------

// UpdateProfile writes the set fields to their columns and merges them into metadata.
func (ur *userRepo) UpdateProfile(ctx context.Context, tx *gorm.DB, userID uuid.UUID, update types.ProfileUpdate) (*types.User, error) {
    ur.log.Info("Starting UpdateProfile now...", "userID", userID)

    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }

    // 1) Lock the row
    var user types.User
    if err := transaction.WithContext(ctx).
        Clauses(clause.Locking{Strength: "UPDATE"}).
        Where("id = ?", userID).
        First(&user).Error; err != nil {
        ur.log.Error("Failed to load user for profile update", "error", err)
        return nil, err
    }

    // 2) Apply columns and metadata
    update.ApplyTo(&user)
    if user.Metadata == nil {
        user.Metadata = datatypes.JSONMap{}
    }
    for k, v := range update.Fields() {
        user.Metadata[k] = v
    }

    // 3) Save
    if err := transaction.WithContext(ctx).Save(&user).Error; err != nil {
        ur.log.Error("Failed to save profile update", "error", err)
        return nil, err
    }
    ur.log.Info("Successfully updated profile", "userID", userID)
    return &user, nil
}

func (ur *userRepo) UpdatePassword(ctx context.Context, tx *gorm.DB, userID uuid.UUID, passwordHash string) error {
    ur.log.Info("Starting UpdatePassword now...", "userID", userID)

    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    res := transaction.WithContext(ctx).
        Model(&types.User{}).
        Where("id = ?", userID).
        Update("password", passwordHash)
    if res.Error != nil {
        ur.log.Error("Failed to update password", "error", res.Error)
        return res.Error
    }
    if res.RowsAffected == 0 {
        return fmt.Errorf("user %s not found", userID)
    }
    return nil
}

func (ur *userRepo) UpdateAvatar(ctx context.Context, tx *gorm.DB, userID uuid.UUID, avatarURL, bucketKey string) error {
    ur.log.Info("Starting UpdateAvatar now...", "userID", userID)

    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    if err := transaction.WithContext(ctx).
        Model(&types.User{}).
        Where("id = ?", userID).
        Updates(map[string]interface{}{
            "avatar_url":        avatarURL,
            "avatar_bucket_key": bucketKey,
        }).Error; err != nil {
        ur.log.Error("Failed to update avatar", "error", err)
        return err
    }
    return nil
}
