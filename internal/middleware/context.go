package middleware

import (
  "github.com/gin-gonic/gin"

  "github.com/slotter-org/aristo-backend/internal/errordata"
  "github.com/slotter-org/aristo-backend/internal/eventdata"
  "github.com/slotter-org/aristo-backend/internal/requestdata"
  "github.com/slotter-org/aristo-backend/internal/socket"
)

// AttachRequestContext puts fresh request, error and event data on every request. Events the
// handlers queued are broadcast once the handler chain has run. hub may be nil.
func AttachRequestContext(hub *socket.Hub) gin.HandlerFunc {
  return func(c *gin.Context) {
    ctx := c.Request.Context()
    ctx = eventdata.WithEventData(ctx)
    ctx = errordata.WithErrorData(ctx)
    ctx, _ = requestdata.Ensure(ctx)
    c.Request = c.Request.WithContext(ctx)
    c.Next()

    if c.Writer.Status() < 400 {
      eventdata.Flush(c.Request.Context(), hub)
    }
  }
}
