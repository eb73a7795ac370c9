package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/middleware"
  "github.com/slotter-org/aristo-backend/internal/voice"
)

type VoiceHandler struct {
  log  *logger.Logger
  dial voice.DialFunc
}

// NewVoiceHandler serves realtime voice. A nil dial disables the endpoint.
func NewVoiceHandler(log *logger.Logger, dial voice.DialFunc) *VoiceHandler {
  return &VoiceHandler{log: log.With("handler", "VoiceHandler"), dial: dial}
}

// Serve connects the upstream live session first, then upgrades the browser connection and
// bridges the two until either side closes.
func (vh *VoiceHandler) Serve(c *gin.Context) {
  store := middleware.Store(c)
  if vh.dial == nil {
    store.SetVoiceActive(false)
    c.JSON(http.StatusServiceUnavailable, gin.H{"error": "voice is not configured"})
    return
  }
  ctx := c.Request.Context()

  upstream, err := vh.dial(ctx)
  if err != nil {
    vh.log.Warn("Failed to connect live session", "clientID", store.ID(), "error", err)
    store.SetVoiceActive(false)
    c.JSON(http.StatusBadGateway, gin.H{"error": "voice connection failed"})
    return
  }

  conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
  if err != nil {
    vh.log.Warn("Failed to upgrade to websocket", "error", err)
    _ = upstream.Close()
    store.SetVoiceActive(false)
    return
  }

  session := voice.NewSession(conn, upstream, store, nil, vh.log.With("clientID", store.ID()))
  if err := session.Run(ctx); err != nil {
    vh.log.Info("Voice session ended with error", "clientID", store.ID(), "error", err)
  }
}
