package services

import (
  "context"
  "io"
  "sync"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/slotter-org/aristo-backend/internal/ai"
  "github.com/slotter-org/aristo-backend/internal/types"
)

type fakeUserRepo struct {
  users map[uuid.UUID]*types.User
}

func newFakeUserRepo(users ...*types.User) *fakeUserRepo {
  r := &fakeUserRepo{users: map[uuid.UUID]*types.User{}}
  for _, u := range users {
    r.users[u.ID] = u
  }
  return r
}

func (r *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
  for _, u := range users {
    r.users[u.ID] = u
  }
  return users, nil
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
  var out []*types.User
  for _, id := range ids {
    if u, ok := r.users[id]; ok {
      out = append(out, u)
    }
  }
  return out, nil
}

func (r *fakeUserRepo) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.User, error) {
  var out []*types.User
  for _, e := range emails {
    for _, u := range r.users {
      if u.Email == e {
        out = append(out, u)
      }
    }
  }
  return out, nil
}

func (r *fakeUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
  found, _ := r.GetByEmails(ctx, tx, []string{email})
  return len(found) > 0, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
  return int64(len(r.users)), nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, tx *gorm.DB, userID uuid.UUID, update types.ProfileUpdate) (*types.User, error) {
  u, ok := r.users[userID]
  if !ok {
    return nil, gorm.ErrRecordNotFound
  }
  update.ApplyTo(u)
  return u, nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, tx *gorm.DB, userID uuid.UUID, hash string) error {
  if u, ok := r.users[userID]; ok {
    u.Password = hash
  }
  return nil
}

func (r *fakeUserRepo) UpdateAvatar(ctx context.Context, tx *gorm.DB, userID uuid.UUID, avatarURL, key string) error {
  if u, ok := r.users[userID]; ok {
    u.AvatarURL = avatarURL
    u.AvatarBucketKey = key
  }
  return nil
}

type fakeTokenRepo struct {
  rows []*types.UserToken
}

func (r *fakeTokenRepo) Create(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) ([]*types.UserToken, error) {
  r.rows = append(r.rows, tokens...)
  return tokens, nil
}

func (r *fakeTokenRepo) GetByAccessTokens(ctx context.Context, tx *gorm.DB, tokens []string) ([]*types.UserToken, error) {
  var out []*types.UserToken
  for _, t := range tokens {
    for _, row := range r.rows {
      if row.AccessToken == t {
        out = append(out, row)
      }
    }
  }
  return out, nil
}

func (r *fakeTokenRepo) GetByRefreshTokens(ctx context.Context, tx *gorm.DB, tokens []string) ([]*types.UserToken, error) {
  var out []*types.UserToken
  for _, t := range tokens {
    for _, row := range r.rows {
      if row.RefreshToken == t {
        out = append(out, row)
      }
    }
  }
  return out, nil
}

func (r *fakeTokenRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
  kept := r.rows[:0]
  for _, row := range r.rows {
    drop := false
    for _, id := range ids {
      if row.ID == id {
        drop = true
      }
    }
    if !drop {
      kept = append(kept, row)
    }
  }
  r.rows = kept
  return nil
}

func (r *fakeTokenRepo) FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
  kept := r.rows[:0]
  for _, row := range r.rows {
    drop := false
    for _, id := range ids {
      if row.UserID == id {
        drop = true
      }
    }
    if !drop {
      kept = append(kept, row)
    }
  }
  r.rows = kept
  return nil
}

type fakeNoteRepo struct {
  mu      sync.Mutex
  upserts []types.Note
  deletes []string
  err     error
}

func (r *fakeNoteRepo) ListByAuthor(ctx context.Context, tx *gorm.DB, authorID uuid.UUID) ([]types.Note, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  var out []types.Note
  for _, n := range r.upserts {
    if n.AuthorID == authorID {
      out = append(out, n)
    }
  }
  return out, r.err
}

func (r *fakeNoteRepo) Upsert(ctx context.Context, tx *gorm.DB, note types.Note) error {
  r.mu.Lock()
  defer r.mu.Unlock()
  if r.err != nil {
    return r.err
  }
  r.upserts = append(r.upserts, note)
  return nil
}

func (r *fakeNoteRepo) Delete(ctx context.Context, tx *gorm.DB, authorID uuid.UUID, noteID string) error {
  r.mu.Lock()
  defer r.mu.Unlock()
  if r.err != nil {
    return r.err
  }
  r.deletes = append(r.deletes, noteID)
  return nil
}

func (r *fakeNoteRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
  return int64(len(r.upserts)), r.err
}

type fakeResourceRepo struct {
  mu      sync.Mutex
  rows    []types.Resource
  deletes []string
}

func (r *fakeResourceRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]types.Resource, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  var out []types.Resource
  for _, row := range r.rows {
    if row.UserID == userID {
      out = append(out, row)
    }
  }
  return out, nil
}

func (r *fakeResourceRepo) Insert(ctx context.Context, tx *gorm.DB, resource types.Resource) error {
  r.mu.Lock()
  defer r.mu.Unlock()
  r.rows = append(r.rows, resource)
  return nil
}

func (r *fakeResourceRepo) Delete(ctx context.Context, tx *gorm.DB, userID uuid.UUID, id string) (*types.Resource, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  for i, row := range r.rows {
    if row.ID == id && row.UserID == userID {
      r.rows = append(r.rows[:i], r.rows[i+1:]...)
      r.deletes = append(r.deletes, id)
      return &row, nil
    }
  }
  return nil, nil
}

func (r *fakeResourceRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]types.Resource, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  if limit > len(r.rows) {
    limit = len(r.rows)
  }
  return append([]types.Resource(nil), r.rows[:limit]...), nil
}

func (r *fakeResourceRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  return int64(len(r.rows)), nil
}

type fakeBucket struct {
  mu       sync.Mutex
  uploaded map[string][]byte
  deleted  []string
}

func newFakeBucket() *fakeBucket {
  return &fakeBucket{uploaded: map[string][]byte{}}
}

func (b *fakeBucket) UploadFile(ctx context.Context, key, contentType string, r io.Reader) error {
  data, err := io.ReadAll(r)
  if err != nil {
    return err
  }
  b.mu.Lock()
  b.uploaded[key] = data
  b.mu.Unlock()
  return nil
}

func (b *fakeBucket) DeleteFile(ctx context.Context, key string) error {
  b.mu.Lock()
  b.deleted = append(b.deleted, key)
  b.mu.Unlock()
  return nil
}

func (b *fakeBucket) GetPublicURL(key string) string {
  return "https://bucket.test/" + key
}

func (b *fakeBucket) Close() error { return nil }

type fakeGenerator struct {
  stream  ai.Stream
  openErr error
  prompts []string
}

func (g *fakeGenerator) Stream(ctx context.Context, prompt string) (ai.Stream, error) {
  g.prompts = append(g.prompts, prompt)
  if g.openErr != nil {
    return nil, g.openErr
  }
  return g.stream, nil
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Close() error { return nil }
