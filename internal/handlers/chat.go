package handlers

import (
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/aristo-backend/internal/ai"
  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/middleware"
  "github.com/slotter-org/aristo-backend/internal/services"
)

type ChatHandler struct {
  log         *logger.Logger
  chatService *services.ChatService
}

func NewChatHandler(log *logger.Logger, chatService *services.ChatService) *ChatHandler {
  return &ChatHandler{log: log.With("handler", "ChatHandler"), chatService: chatService}
}

func (ch *ChatHandler) NewSession(c *gin.Context) {
  store := middleware.Store(c)
  sess := store.StartNewChat()
  c.JSON(http.StatusCreated, gin.H{"session": sess, "state": store.Snapshot()})
}

func (ch *ChatHandler) SetCurrentSession(c *gin.Context) {
  store := middleware.Store(c)
  store.SetCurrentSession(c.Param("id"))
  c.JSON(http.StatusOK, store.Snapshot())
}

func (ch *ChatHandler) DeleteSession(c *gin.Context) {
  store := middleware.Store(c)
  store.DeleteSession(c.Param("id"))
  c.JSON(http.StatusOK, store.Snapshot())
}

func (ch *ChatHandler) DeleteMessage(c *gin.Context) {
  store := middleware.Store(c)
  store.DeleteMessage(c.Param("id"))
  c.JSON(http.StatusOK, store.Snapshot())
}

// SendMessage streams the reply as server-sent events: "fragment" per piece of text, then
// "done" with the final text, or "error" with the fallback reply when generation failed.
func (ch *ChatHandler) SendMessage(c *gin.Context) {
  var req struct {
    Prompt string `json:"prompt"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if strings.TrimSpace(req.Prompt) == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": ai.ErrEmptyPrompt.Error()})
    return
  }
  store := middleware.Store(c)

  c.Header("Content-Type", "text/event-stream")
  c.Header("Cache-Control", "no-cache")
  c.Header("Connection", "keep-alive")
  c.Header("X-Accel-Buffering", "no")

  res, err := ch.chatService.Send(c.Request.Context(), store, req.Prompt, func(fragment, text string) error {
    if cErr := c.Request.Context().Err(); cErr != nil {
      return cErr
    }
    c.SSEvent("fragment", gin.H{"fragment": fragment, "text": text})
    c.Writer.Flush()
    return nil
  })
  if err != nil {
    c.SSEvent("error", gin.H{"message": err.Error()})
    c.Writer.Flush()
    return
  }
  if res.Err != nil {
    c.SSEvent("error", gin.H{"sessionId": res.SessionID, "text": res.Text, "message": ai.FallbackReply})
  } else {
    c.SSEvent("done", gin.H{"sessionId": res.SessionID, "text": res.Text})
  }
  c.Writer.Flush()
}
