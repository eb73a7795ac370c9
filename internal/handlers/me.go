package handlers

import (
  "io"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/aristo-backend/internal/middleware"
  "github.com/slotter-org/aristo-backend/internal/requestdata"
  "github.com/slotter-org/aristo-backend/internal/services"
  "github.com/slotter-org/aristo-backend/internal/types"
)

type MeHandler struct {
  meService services.MeService
}

func NewMeHandler(meService services.MeService) *MeHandler {
  return &MeHandler{meService: meService}
}

func (mh *MeHandler) GetMe(c *gin.Context) {
  me, err := mh.meService.GetMe(c.Request.Context(), nil)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, gin.H{"me": me})
}

// UpdateProfile applies the edit to the client right away; the account is updated in the
// background.
func (mh *MeHandler) UpdateProfile(c *gin.Context) {
  var update types.ProfileUpdate
  if err := c.ShouldBindJSON(&update); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if update.IsEmpty() {
    c.JSON(http.StatusBadRequest, gin.H{"error": "no profile fields to update"})
    return
  }
  user, err := middleware.Store(c).UpdateProfile(c.Request.Context(), update)
  if err != nil {
    respondStoreError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"me": user})
}

func (mh *MeHandler) UploadAvatar(c *gin.Context) {
  fh, err := c.FormFile("avatar")
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
    return
  }
  f, err := fh.Open()
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
    return
  }
  defer f.Close()
  content, err := io.ReadAll(io.LimitReader(f, 6<<20))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
    return
  }

  ctx := c.Request.Context()
  rd := requestdata.GetRequestData(ctx)
  user, err := mh.meService.UploadAvatar(ctx, rd.UserID, content)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  if store := middleware.Store(c); store != nil {
    avatar := user.AvatarURL
    if _, sErr := store.UpdateProfile(ctx, types.ProfileUpdate{Avatar: &avatar}); sErr != nil {
      respondStoreError(c, sErr)
      return
    }
  }
  c.JSON(http.StatusOK, gin.H{"me": user})
}
