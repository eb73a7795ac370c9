package utils

import (
  "os"
  "path/filepath"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/slotter-org/aristo-backend/internal/logger"
)

func TestGetEnv(t *testing.T) {
  log := logger.NewNop()
  t.Setenv("ARISTO_TEST_STR", "hello")
  assert.Equal(t, "hello", GetEnv("ARISTO_TEST_STR", "x", log))
  assert.Equal(t, "x", GetEnv("ARISTO_TEST_MISSING", "x", log))
  assert.Equal(t, "x", GetEnv("ARISTO_TEST_MISSING", "x", nil))
}

func TestGetEnvAsInt(t *testing.T) {
  log := logger.NewNop()
  t.Setenv("ARISTO_TEST_INT", " 42 ")
  t.Setenv("ARISTO_TEST_BAD_INT", "forty")
  assert.Equal(t, 42, GetEnvAsInt("ARISTO_TEST_INT", 1, log))
  assert.Equal(t, 1, GetEnvAsInt("ARISTO_TEST_BAD_INT", 1, log))
  assert.Equal(t, 7, GetEnvAsInt("ARISTO_TEST_MISSING", 7, log))
}

func TestGetEnvAsBool(t *testing.T) {
  t.Setenv("ARISTO_TEST_BOOL", "true")
  t.Setenv("ARISTO_TEST_BAD_BOOL", "maybe")
  assert.True(t, GetEnvAsBool("ARISTO_TEST_BOOL", false, nil))
  assert.False(t, GetEnvAsBool("ARISTO_TEST_BAD_BOOL", false, nil))
  assert.True(t, GetEnvAsBool("ARISTO_TEST_MISSING", true, nil))
}

func TestGetEnvAsList(t *testing.T) {
  t.Setenv("ARISTO_TEST_LIST", "a@x.com, ,b@x.com")
  assert.Equal(t, []string{"a@x.com", "b@x.com"}, GetEnvAsList("ARISTO_TEST_LIST", nil, nil))
  assert.Equal(t, []string{"d"}, GetEnvAsList("ARISTO_TEST_MISSING", []string{"d"}, nil))
}

func TestLoadDotEnv(t *testing.T) {
  dir := t.TempDir()
  path := filepath.Join(dir, "test.env")
  require.NoError(t, os.WriteFile(path, []byte("ARISTO_DOTENV_VALUE=loaded\n"), 0o600))
  t.Cleanup(func() { os.Unsetenv("ARISTO_DOTENV_VALUE") })

  LoadDotEnv(logger.NewNop(), path, filepath.Join(dir, "missing.env"))
  assert.Equal(t, "loaded", os.Getenv("ARISTO_DOTENV_VALUE"))
}
