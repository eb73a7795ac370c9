package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/aristo-backend/internal/middleware"
  "github.com/slotter-org/aristo-backend/internal/state"
  "github.com/slotter-org/aristo-backend/internal/types"
)

type NoteHandler struct{}

func NewNoteHandler() *NoteHandler {
  return &NoteHandler{}
}

// Edit opens the editor on a note, or on a blank one when no id is given.
func (nh *NoteHandler) Edit(c *gin.Context) {
  var req struct {
    ID string `json:"id"`
  }
  if c.Request.ContentLength > 0 {
    if err := c.ShouldBindJSON(&req); err != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
      return
    }
  }
  store := middleware.Store(c)
  store.EditNote(req.ID)
  c.JSON(http.StatusOK, store.Snapshot())
}

func (nh *NoteHandler) Read(c *gin.Context) {
  store := middleware.Store(c)
  store.ReadNote(c.Param("id"))
  c.JSON(http.StatusOK, store.Snapshot())
}

func (nh *NoteHandler) Save(c *gin.Context) {
  var note types.Note
  if err := c.ShouldBindJSON(&note); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  saved, err := middleware.Store(c).UpsertNote(c.Request.Context(), note)
  if err != nil {
    respondStoreError(c, err)
    return
  }
  c.JSON(http.StatusOK, saved)
}

func (nh *NoteHandler) Delete(c *gin.Context) {
  store := middleware.Store(c)
  store.DeleteNote(c.Request.Context(), c.Param("id"))
  c.JSON(http.StatusOK, store.Snapshot())
}

func respondStoreError(c *gin.Context, err error) {
  if errors.Is(err, state.ErrNoUser) {
    c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
