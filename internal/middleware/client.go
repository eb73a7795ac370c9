package middleware

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/requestdata"
  "github.com/slotter-org/aristo-backend/internal/state"
)

const (
  ClientHeader = "X-Aristo-Client"
  ClientQuery  = "client"
  storeKey     = "aristo.store"
)

type ClientMiddleware struct {
  log      *logger.Logger
  registry *state.Registry
}

func NewClientMiddleware(log *logger.Logger, registry *state.Registry) *ClientMiddleware {
  return &ClientMiddleware{log: log.With("Middleware", "ClientMiddleware"), registry: registry}
}

// RequireClient resolves the caller's store from the client header or query parameter.
func (cm *ClientMiddleware) RequireClient() gin.HandlerFunc {
  return func(c *gin.Context) {
    if !cm.attach(c) {
      c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown client, create one first"})
      return
    }
    c.Next()
  }
}

// OptionalClient attaches the store when the request names a known client.
func (cm *ClientMiddleware) OptionalClient() gin.HandlerFunc {
  return func(c *gin.Context) {
    cm.attach(c)
    c.Next()
  }
}

// RequireBoundUser runs after RequireAuth and RequireClient. The store must be signed in as
// the token's user.
func (cm *ClientMiddleware) RequireBoundUser() gin.HandlerFunc {
  return func(c *gin.Context) {
    store := Store(c)
    rd := requestdata.GetRequestData(c.Request.Context())
    if store == nil || !rd.Authenticated() {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
      return
    }
    user := store.User()
    if user == nil || user.ID != rd.UserID {
      cm.log.Warn("Token user does not match client user", "clientID", store.ID(), "userID", rd.UserID)
      c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "client is not signed in as this user"})
      return
    }
    c.Next()
  }
}

func (cm *ClientMiddleware) attach(c *gin.Context) bool {
  id := c.GetHeader(ClientHeader)
  if id == "" {
    id = c.Query(ClientQuery)
  }
  if id == "" {
    return false
  }
  store, ok := cm.registry.Get(id)
  if !ok {
    return false
  }
  c.Set(storeKey, store)
  ctx, rd := requestdata.Ensure(c.Request.Context())
  rd.ClientID = id
  c.Request = c.Request.WithContext(ctx)
  return true
}

// Store returns the store attached by RequireClient, or nil.
func Store(c *gin.Context) *state.Store {
  v, ok := c.Get(storeKey)
  if !ok {
    return nil
  }
  store, _ := v.(*state.Store)
  return store
}

// SetStore attaches store to c. Used when a handler creates the client itself.
func SetStore(c *gin.Context, store *state.Store) {
  c.Set(storeKey, store)
}
