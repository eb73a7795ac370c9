package types

// ChatSession lives only in a client's state store and is never persisted.
// LastUpdated is unix milliseconds.
type ChatSession struct {
  ID          string            `json:"id"`
  Title       string            `json:"title"`
  Messages    []ChatMessage     `json:"messages"`
  LastUpdated int64             `json:"lastUpdated"`
}

func (s ChatSession) Clone() ChatSession {
  out := s
  out.Messages = append([]ChatMessage(nil), s.Messages...)
  return out
}
