package types

type ChatRole string

const (
  ChatRoleUser      ChatRole = "user"
  ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
  ID          string          `json:"id"`
  Role        ChatRole        `json:"role"`
  Content     string          `json:"content"`
  Timestamp   int64           `json:"timestamp"`
}
