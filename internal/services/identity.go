package services

import (
  "context"

  "github.com/google/uuid"

  "github.com/slotter-org/aristo-backend/internal/types"
)

// Identity adapts the auth and profile services to the client store.
type Identity struct {
  auth AuthService
  me   MeService
}

func NewIdentity(auth AuthService, me MeService) *Identity {
  return &Identity{auth: auth, me: me}
}

// SignOut revokes the session carried by ctx.
func (i *Identity) SignOut(ctx context.Context) error {
  return i.auth.Logout(ctx)
}

func (i *Identity) UpdateProfile(ctx context.Context, userID uuid.UUID, update types.ProfileUpdate) error {
  _, err := i.me.UpdateProfile(ctx, userID, update)
  return err
}
