package services

import (
  "context"

  "github.com/google/uuid"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/repos"
  "github.com/slotter-org/aristo-backend/internal/socket"
  "github.com/slotter-org/aristo-backend/internal/types"
)

// SyncService persists a client's notes and resources and tells the user's other clients.
type SyncService struct {
  log          *logger.Logger
  noteRepo     repos.NoteRepo
  resourceRepo repos.ResourceRepo
  bucket       BucketService
  hub          *socket.Hub
}

// NewSyncService builds the store's persistence. bucket and hub may be nil.
func NewSyncService(log *logger.Logger, noteRepo repos.NoteRepo, resourceRepo repos.ResourceRepo, bucket BucketService, hub *socket.Hub) *SyncService {
  return &SyncService{
    log:          log.With("service", "SyncService"),
    noteRepo:     noteRepo,
    resourceRepo: resourceRepo,
    bucket:       bucket,
    hub:          hub,
  }
}

func (ss *SyncService) FetchNotes(ctx context.Context, userID uuid.UUID) ([]types.Note, error) {
  return ss.noteRepo.ListByAuthor(ctx, nil, userID)
}

func (ss *SyncService) FetchResources(ctx context.Context, userID uuid.UUID) ([]types.Resource, error) {
  return ss.resourceRepo.ListByUser(ctx, nil, userID)
}

func (ss *SyncService) UpsertNote(ctx context.Context, userID uuid.UUID, note types.Note) error {
  note.AuthorID = userID
  if err := ss.noteRepo.Upsert(ctx, nil, note); err != nil {
    return err
  }
  ss.publish(ctx, userID, socket.EventNotesChanged, map[string]interface{}{"op": "upsert", "id": note.ID})
  return nil
}

func (ss *SyncService) DeleteNote(ctx context.Context, userID uuid.UUID, noteID string) error {
  if err := ss.noteRepo.Delete(ctx, nil, userID, noteID); err != nil {
    return err
  }
  ss.publish(ctx, userID, socket.EventNotesChanged, map[string]interface{}{"op": "delete", "id": noteID})
  return nil
}

func (ss *SyncService) InsertResource(ctx context.Context, userID uuid.UUID, resource types.Resource) error {
  resource.UserID = userID
  if err := ss.resourceRepo.Insert(ctx, nil, resource); err != nil {
    return err
  }
  ss.publish(ctx, userID, socket.EventResourcesChanged, map[string]interface{}{"op": "insert", "id": resource.ID})
  return nil
}

// DeleteResource removes the row and, when it was uploaded to the bucket, the object too.
func (ss *SyncService) DeleteResource(ctx context.Context, userID uuid.UUID, resourceID string) error {
  deleted, err := ss.resourceRepo.Delete(ctx, nil, userID, resourceID)
  if err != nil {
    return err
  }
  if deleted == nil {
    return nil
  }
  if ss.bucket != nil && deleted.BucketKey != "" {
    if bErr := ss.bucket.DeleteFile(ctx, deleted.BucketKey); bErr != nil {
      ss.log.Warn("Resource row deleted but object was not", "key", deleted.BucketKey, "error", bErr)
    }
  }
  ss.publish(ctx, userID, socket.EventResourcesChanged, map[string]interface{}{"op": "delete", "id": resourceID})
  return nil
}

func (ss *SyncService) publish(ctx context.Context, userID uuid.UUID, event string, data interface{}) {
  if ss.hub == nil {
    return
  }
  ss.hub.PublishToUser(ctx, userID, event, data)
}
