package services

import (
  "context"
  "errors"
  "testing"

  "github.com/google/uuid"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/socket"
  "github.com/slotter-org/aristo-backend/internal/types"
)

func TestSyncNotes(t *testing.T) {
  notes := &fakeNoteRepo{}
  ss := NewSyncService(logger.NewNop(), notes, &fakeResourceRepo{}, nil, socket.NewHub(logger.NewNop()))
  userID := uuid.New()

  require.NoError(t, ss.UpsertNote(context.Background(), userID, types.Note{ID: "n1", Title: "Optics"}))
  got, err := ss.FetchNotes(context.Background(), userID)
  require.NoError(t, err)
  require.Len(t, got, 1)
  assert.Equal(t, userID, got[0].AuthorID)

  require.NoError(t, ss.DeleteNote(context.Background(), userID, "n1"))
  assert.Equal(t, []string{"n1"}, notes.deletes)
}

func TestSyncNoteFailurePropagates(t *testing.T) {
  notes := &fakeNoteRepo{err: errors.New("db down")}
  ss := NewSyncService(logger.NewNop(), notes, &fakeResourceRepo{}, nil, nil)
  assert.Error(t, ss.UpsertNote(context.Background(), uuid.New(), types.Note{ID: "n1"}))
}

func TestSyncDeleteResourceRemovesObject(t *testing.T) {
  resources := &fakeResourceRepo{}
  bucket := newFakeBucket()
  ss := NewSyncService(logger.NewNop(), &fakeNoteRepo{}, resources, bucket, nil)
  userID := uuid.New()

  require.NoError(t, ss.InsertResource(context.Background(), userID, types.Resource{ID: "r1", BucketKey: "resources/x/r1/a.pdf"}))
  require.NoError(t, ss.InsertResource(context.Background(), userID, types.Resource{ID: "r2"}))
  got, err := ss.FetchResources(context.Background(), userID)
  require.NoError(t, err)
  assert.Len(t, got, 2)

  require.NoError(t, ss.DeleteResource(context.Background(), userID, "r1"))
  require.NoError(t, ss.DeleteResource(context.Background(), userID, "r2"))
  require.NoError(t, ss.DeleteResource(context.Background(), userID, "missing"))
  assert.Equal(t, []string{"resources/x/r1/a.pdf"}, bucket.deleted)
  assert.Equal(t, []string{"r1", "r2"}, resources.deletes)
}

func TestAdminOverview(t *testing.T) {
  users := newFakeUserRepo(&types.User{ID: uuid.New()}, &types.User{ID: uuid.New()})
  resources := &fakeResourceRepo{rows: []types.Resource{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
  notes := &fakeNoteRepo{upserts: []types.Note{{ID: "n"}}}
  as := NewAdminService(logger.NewNop(), users, notes, resources, func() int { return 4 })

  ov, err := as.Overview(context.Background(), 2)
  require.NoError(t, err)
  assert.Equal(t, int64(2), ov.Users)
  assert.Equal(t, int64(1), ov.Notes)
  assert.Equal(t, int64(3), ov.Resources)
  assert.Len(t, ov.RecentResources, 2)
  assert.Equal(t, 4, ov.ActiveClients)
}
