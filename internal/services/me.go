package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/repos"
  "github.com/slotter-org/aristo-backend/internal/requestdata"
  "github.com/slotter-org/aristo-backend/internal/socket"
  "github.com/slotter-org/aristo-backend/internal/types"
)

type MeService interface {
  GetMe(ctx context.Context, tx *gorm.DB) (*types.User, error)
  UpdateProfile(ctx context.Context, userID uuid.UUID, update types.ProfileUpdate) (*types.User, error)
  UploadAvatar(ctx context.Context, userID uuid.UUID, content []byte) (*types.User, error)
}

type meService struct {
  db            *gorm.DB
  log           *logger.Logger
  userRepo      repos.UserRepo
  avatarService AvatarService
  bucket        BucketService
  hub           *socket.Hub
}

func NewMeService(
  db *gorm.DB,
  log *logger.Logger,
  userRepo repos.UserRepo,
  avatarService AvatarService,
  bucket BucketService,
  hub *socket.Hub,
) MeService {
  serviceLog := log.With("service", "MeService")
  return &meService{
    db:            db,
    log:           serviceLog,
    userRepo:      userRepo,
    avatarService: avatarService,
    bucket:        bucket,
    hub:           hub,
  }
}

func (ms *meService) GetMe(ctx context.Context, tx *gorm.DB) (*types.User, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    ms.log.Warn("Request Data is not set in context.")
    return nil, fmt.Errorf("Request Data is not set in context.")
  }
  if rd.UserID == uuid.Nil {
    ms.log.Warn("User ID not set in Request Data.")
    return nil, fmt.Errorf("User ID not set in Request Data.")
  }
  foundUsers, err := ms.userRepo.GetByIDs(ctx, tx, []uuid.UUID{rd.UserID})
  if err != nil {
    return nil, fmt.Errorf("error fetching user: %w", err)
  }
  if len(foundUsers) == 0 {
    return nil, fmt.Errorf("user does not exist")
  }
  return foundUsers[0], nil
}

// UpdateProfile writes the set fields of update to the user row and its metadata.
func (ms *meService) UpdateProfile(ctx context.Context, userID uuid.UUID, update types.ProfileUpdate) (*types.User, error) {
  if update.IsEmpty() {
    return nil, fmt.Errorf("no profile fields to update")
  }
  var updated *types.User
  if err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    u, uErr := ms.userRepo.UpdateProfile(ctx, tx, userID, update)
    if uErr != nil {
      return uErr
    }
    updated = u
    return nil
  }); err != nil {
    ms.log.Warn("Profile update failed", "userID", userID, "error", err)
    return nil, err
  }
  ms.publish(ctx, updated)
  return updated, nil
}

func (ms *meService) UploadAvatar(ctx context.Context, userID uuid.UUID, content []byte) (*types.User, error) {
  //1) Current user, for the old object key
  users, err := ms.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
  if err != nil {
    return nil, fmt.Errorf("error fetching user: %w", err)
  }
  if len(users) == 0 {
    return nil, fmt.Errorf("user does not exist")
  }
  user := users[0]
  oldKey := user.AvatarBucketKey

  //2) Resize and store
  avatarURL, key, err := ms.avatarService.ProcessUpload(ctx, userID, content)
  if err != nil {
    return nil, err
  }

  //3) Save
  if err := ms.userRepo.UpdateAvatar(ctx, nil, userID, avatarURL, key); err != nil {
    return nil, err
  }
  user.AvatarURL = avatarURL
  user.AvatarBucketKey = key

  //4) Old object is dropped best effort
  if ms.bucket != nil && oldKey != "" && oldKey != key {
    if dErr := ms.bucket.DeleteFile(ctx, oldKey); dErr != nil {
      ms.log.Warn("Failed to delete previous avatar object", "key", oldKey, "error", dErr)
    }
  }
  ms.publish(ctx, user)
  return user, nil
}

func (ms *meService) publish(ctx context.Context, user *types.User) {
  if ms.hub == nil || user == nil {
    return
  }
  ms.hub.PublishToUser(ctx, user.ID, socket.EventProfileUpdated, user)
}
