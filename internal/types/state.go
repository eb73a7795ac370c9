package types

// AppState is a point-in-time copy of one client's state store.
type AppState struct {
  ClientID          string          `json:"clientId"`
  CurrentView       AppView         `json:"currentView"`
  User              *User           `json:"user"`
  ChatSessions      []ChatSession   `json:"chatSessions"`
  CurrentSessionID  *string         `json:"currentSessionId"`
  Notes             []Note          `json:"notes"`
  SelectedNoteID    *string         `json:"selectedNoteId"`
  Resources         []Resource      `json:"resources"`
  IsChatOpen        bool            `json:"isChatOpen"`
  IsAuthModalOpen   bool            `json:"isAuthModalOpen"`
  IsVoiceActive     bool            `json:"isVoiceActive"`
}

// CurrentSession returns the current chat session, if any.
func (s AppState) CurrentSession() (ChatSession, bool) {
  if s.CurrentSessionID == nil {
    return ChatSession{}, false
  }
  for _, sess := range s.ChatSessions {
    if sess.ID == *s.CurrentSessionID {
      return sess, true
    }
  }
  return ChatSession{}, false
}
