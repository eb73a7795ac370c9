package handlers

import (
  "context"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/gorilla/websocket"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/requestdata"
  "github.com/slotter-org/aristo-backend/internal/socket"
)

var upgrader = websocket.Upgrader{
  CheckOrigin: func(r *http.Request) bool {
    return true
  },
}

// WsHandler streams account events to the caller: its own user channel, plus the admin
// channel for admins.
func WsHandler(hub *socket.Hub, log *logger.Logger) gin.HandlerFunc {
  return func(c *gin.Context) {
    rd := requestdata.GetRequestData(c.Request.Context())
    if !rd.Authenticated() {
      c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
      return
    }
    conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
    if err != nil {
      log.Warn("Failed to upgrade to websocket", "error", err)
      return
    }

    // The connection outlives the request.
    ctx, cancel := context.WithCancel(context.Background())
    client := socket.NewClient(conn, hub, rd.UserID, cancel, log)
    client.Admin = rd.IsAdmin

    channels := []string{socket.UserChannel(rd.UserID)}
    if rd.IsAdmin {
      channels = append(channels, socket.AdminChannel)
    }
    hub.Subscribe(client, channels)

    go client.WriteLoop(ctx)
    go client.ReadLoop(ctx)
  }
}
