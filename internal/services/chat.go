package services

import (
  "context"
  "strings"

  "github.com/slotter-org/aristo-backend/internal/ai"
  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/state"
  "github.com/slotter-org/aristo-backend/internal/types"
)

// ChatResult describes one finished exchange. Err is set when the fallback reply was used.
type ChatResult struct {
  SessionID string `json:"sessionId"`
  Text      string `json:"text"`
  Err       error  `json:"-"`
}

type ChatService struct {
  log       *logger.Logger
  generator ai.TextGenerator
}

func NewChatService(log *logger.Logger, generator ai.TextGenerator) *ChatService {
  return &ChatService{
    log:       log.With("service", "ChatService"),
    generator: generator,
  }
}

// Send adds prompt to the store's current chat and streams the reply into it, calling emit for
// every fragment. Without a current session a new one is started. Generation failures keep the
// partial reply and add the fallback reply after it.
func (cs *ChatService) Send(ctx context.Context, store *state.Store, prompt string, emit func(fragment, text string) error) (ChatResult, error) {
  if strings.TrimSpace(prompt) == "" {
    return ChatResult{}, ai.ErrEmptyPrompt
  }

  //1) Current session
  snap := store.Snapshot()
  sess, ok := snap.CurrentSession()
  if !ok {
    sess = store.StartNewChat()
  }
  result := ChatResult{SessionID: sess.ID}

  //2) User message
  store.AddMessage(types.ChatMessage{Role: types.ChatRoleUser, Content: prompt})

  //3) Open the stream
  stream, err := cs.generator.Stream(ctx, prompt)
  if err != nil {
    cs.log.Warn("Failed to open text stream", "provider", cs.generator.Name(), "error", err)
    cs.fallback(store)
    result.Text = ai.FallbackReply
    result.Err = err
    return result, nil
  }

  //4) Assistant message grows with the stream
  store.AddMessage(types.ChatMessage{Role: types.ChatRoleAssistant, Content: ""})
  text, err := ai.Drain(stream, func(fragment, text string) error {
    store.UpdateLastMessage(text)
    if emit != nil {
      return emit(fragment, text)
    }
    return nil
  })
  result.Text = text
  if err != nil {
    cs.log.Warn("Text stream ended with error", "provider", cs.generator.Name(), "error", err, "partialLen", len(text))
    cs.fallback(store)
    result.Err = err
  }
  return result, nil
}

func (cs *ChatService) fallback(store *state.Store) {
  store.AddMessage(types.ChatMessage{Role: types.ChatRoleAssistant, Content: ai.FallbackReply})
}

func (cs *ChatService) Provider() string {
  return cs.generator.Name()
}
