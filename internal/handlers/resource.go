package handlers

import (
  "io"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/middleware"
  "github.com/slotter-org/aristo-backend/internal/services"
  "github.com/slotter-org/aristo-backend/internal/types"
)

type ResourceHandler struct {
  log             *logger.Logger
  resourceService services.ResourceService
}

func NewResourceHandler(log *logger.Logger, resourceService services.ResourceService) *ResourceHandler {
  return &ResourceHandler{log: log.With("handler", "ResourceHandler"), resourceService: resourceService}
}

// Upload takes one multipart "file" field.
func (rh *ResourceHandler) Upload(c *gin.Context) {
  store := middleware.Store(c)
  fh, err := c.FormFile("file")
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
    return
  }
  if fh.Size > services.MaxUploadBytes {
    c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large"})
    return
  }
  f, err := fh.Open()
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
    return
  }
  defer f.Close()
  content, err := io.ReadAll(io.LimitReader(f, services.MaxUploadBytes+1))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
    return
  }

  user := store.User()
  if user == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "no signed-in user"})
    return
  }
  res, err := rh.resourceService.FromUpload(c.Request.Context(), user.ID, fh.Filename, fh.Header.Get("Content-Type"), content)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  rh.add(c, []types.Resource{res})
}

func (rh *ResourceHandler) Link(c *gin.Context) {
  var req struct {
    URL  string `json:"url"`
    Name string `json:"name"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  res, err := rh.resourceService.FromLink(c.Request.Context(), req.URL, req.Name)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  rh.add(c, []types.Resource{res})
}

func (rh *ResourceHandler) Feed(c *gin.Context) {
  var req struct {
    URL   string `json:"url"`
    Limit int    `json:"limit"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  items, err := rh.resourceService.FromFeed(c.Request.Context(), req.URL, req.Limit)
  if err != nil {
    c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
    return
  }
  rh.add(c, items)
}

func (rh *ResourceHandler) Delete(c *gin.Context) {
  store := middleware.Store(c)
  store.DeleteResource(c.Request.Context(), c.Param("id"))
  c.JSON(http.StatusOK, store.Snapshot())
}

func (rh *ResourceHandler) add(c *gin.Context, items []types.Resource) {
  store := middleware.Store(c)
  added := make([]types.Resource, 0, len(items))
  for _, item := range items {
    res, err := store.AddResource(c.Request.Context(), item)
    if err != nil {
      respondStoreError(c, err)
      return
    }
    added = append(added, res)
  }
  c.JSON(http.StatusCreated, gin.H{"resources": added})
}
