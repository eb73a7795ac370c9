package utils

import (
  "context"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/types"
)

func TestHashAndCheckPassword(t *testing.T) {
  u := &types.User{Password: "hunter22"}
  require.NoError(t, HashPassword(context.Background(), logger.NewNop(), u))
  assert.NotEqual(t, "hunter22", u.Password)
  assert.True(t, CheckPassword(u.Password, "hunter22"))
  assert.False(t, CheckPassword(u.Password, "hunter23"))
}

func TestValidateEmail(t *testing.T) {
  assert.NoError(t, ValidateEmail("scholar@aristo.app"))
  assert.Error(t, ValidateEmail(""))
  assert.Error(t, ValidateEmail("not-an-email"))
  assert.Error(t, ValidateEmail("Scholar <scholar@aristo.app>"))
}

func TestValidatePassword(t *testing.T) {
  assert.Error(t, ValidatePassword("12345"))
  assert.NoError(t, ValidatePassword("123456"))
}

func TestLoginValidation(t *testing.T) {
  log := logger.NewNop()
  ctx := context.Background()
  assert.Error(t, InputValidation(ctx, PurposeLogin, nil, log, &types.User{Email: " ", Password: "x"}))
  assert.Error(t, InputValidation(ctx, PurposeLogin, nil, log, &types.User{Email: "a@b.c"}))
  assert.NoError(t, InputValidation(ctx, PurposeLogin, nil, log, &types.User{Email: "a@b.c", Password: "x"}))
  assert.Error(t, InputValidation(ctx, InputPurpose("reset"), nil, log, &types.User{}))
}

func TestNormalizeUserFields(t *testing.T) {
  u := &types.User{Email: "  Admin@Aristo.App ", Name: " Rafi ", Password: " keep "}
  NormalizeUserFields(u)
  assert.Equal(t, "admin@aristo.app", u.Email)
  assert.Equal(t, "Rafi", u.Name)
  assert.Equal(t, " keep ", u.Password)
}
