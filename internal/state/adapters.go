package state

import (
  "context"

  "github.com/google/uuid"

  "github.com/slotter-org/aristo-backend/internal/types"
)

// Persistence is the table store behind a client's notes and resources.
type Persistence interface {
  FetchNotes(ctx context.Context, userID uuid.UUID) ([]types.Note, error)
  FetchResources(ctx context.Context, userID uuid.UUID) ([]types.Resource, error)
  UpsertNote(ctx context.Context, userID uuid.UUID, note types.Note) error
  DeleteNote(ctx context.Context, userID uuid.UUID, noteID string) error
  InsertResource(ctx context.Context, userID uuid.UUID, resource types.Resource) error
  DeleteResource(ctx context.Context, userID uuid.UUID, resourceID string) error
}

// Identity is the account service a store signs out of and pushes profile edits to.
type Identity interface {
  SignOut(ctx context.Context) error
  UpdateProfile(ctx context.Context, userID uuid.UUID, update types.ProfileUpdate) error
}
