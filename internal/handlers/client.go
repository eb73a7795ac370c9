package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/aristo-backend/internal/errordata"
  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/middleware"
  "github.com/slotter-org/aristo-backend/internal/requestdata"
  "github.com/slotter-org/aristo-backend/internal/services"
  "github.com/slotter-org/aristo-backend/internal/state"
  "github.com/slotter-org/aristo-backend/internal/types"
)

type ClientHandler struct {
  log       *logger.Logger
  registry  *state.Registry
  meService services.MeService
}

func NewClientHandler(log *logger.Logger, registry *state.Registry, meService services.MeService) *ClientHandler {
  return &ClientHandler{log: log.With("handler", "ClientHandler"), registry: registry, meService: meService}
}

// Create registers a new client. A request carrying a valid token starts signed in.
func (ch *ClientHandler) Create(c *gin.Context) {
  ctx := c.Request.Context()
  store := ch.registry.Create()
  if rd := requestdata.GetRequestData(ctx); rd.Authenticated() {
    user, err := ch.meService.GetMe(ctx, nil)
    if err != nil {
      ch.log.Warn("Could not restore user for new client", "userID", rd.UserID, "error", err)
    } else {
      store.SetUser(user)
    }
  }
  c.JSON(http.StatusCreated, gin.H{"clientId": store.ID(), "state": store.Snapshot()})
}

func (ch *ClientHandler) State(c *gin.Context) {
  c.JSON(http.StatusOK, middleware.Store(c).Snapshot())
}

// SetView navigates. Without a user anything but the landing view only opens the sign-in prompt.
func (ch *ClientHandler) SetView(c *gin.Context) {
  var req struct {
    View string `json:"view"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  view, err := types.ParseAppView(req.View)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  store := middleware.Store(c)
  changed := store.SetView(view)
  c.JSON(http.StatusOK, gin.H{"changed": changed, "state": store.Snapshot()})
}

func (ch *ClientHandler) SetFlags(c *gin.Context) {
  var req struct {
    ChatOpen      *bool `json:"isChatOpen"`
    AuthModalOpen *bool `json:"isAuthModalOpen"`
    VoiceActive   *bool `json:"isVoiceActive"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  store := middleware.Store(c)
  if req.ChatOpen != nil {
    store.SetChatOpen(*req.ChatOpen)
  }
  if req.AuthModalOpen != nil {
    store.SetAuthModalOpen(*req.AuthModalOpen)
  }
  if req.VoiceActive != nil {
    store.SetVoiceActive(*req.VoiceActive)
  }
  c.JSON(http.StatusOK, store.Snapshot())
}

func (ch *ClientHandler) Delete(c *gin.Context) {
  ch.registry.Remove(middleware.Store(c).ID())
  c.Status(http.StatusNoContent)
}

func respondError(c *gin.Context, err error, fallbackStatus int) {
  status, msg := errordata.Resolve(c.Request.Context(), err, fallbackStatus)
  c.JSON(status, gin.H{"error": msg})
}

func resolveRecorded(c *gin.Context) (int, string) {
  ed := errordata.GetErrorData(c.Request.Context())
  if ed == nil || !ed.HasMessage() {
    return 0, ""
  }
  if ed.Status == 0 {
    return http.StatusBadRequest, ed.Message
  }
  return ed.Status, ed.Message
}
