package services

import (
  "context"
  "errors"
  "testing"

  "github.com/google/uuid"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/slotter-org/aristo-backend/internal/ai"
  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/state"
  "github.com/slotter-org/aristo-backend/internal/types"
)

func newChatStore() *state.Store {
  s := state.NewStore("client-chat", state.Options{Run: func(f func()) { f() }})
  s.SetUser(&types.User{ID: uuid.New(), Name: "Rahim"})
  return s
}

func lastMessages(t *testing.T, s *state.Store) []types.ChatMessage {
  sess, ok := s.Snapshot().CurrentSession()
  require.True(t, ok)
  return sess.Messages
}

func TestChatSendStreamsIntoStore(t *testing.T) {
  gen := &fakeGenerator{stream: ai.NewSliceStream([]string{"Photo", "", "synthesis"}, nil)}
  cs := NewChatService(logger.NewNop(), gen)
  store := newChatStore()
  store.StartNewChat()

  var seen []string
  res, err := cs.Send(context.Background(), store, "What is photosynthesis?", func(fragment, text string) error {
    seen = append(seen, text)
    return nil
  })
  require.NoError(t, err)
  assert.NoError(t, res.Err)
  assert.Equal(t, "Photosynthesis", res.Text)
  assert.Equal(t, []string{"Photo", "Photosynthesis"}, seen)
  assert.Equal(t, []string{"What is photosynthesis?"}, gen.prompts)

  msgs := lastMessages(t, store)
  require.Len(t, msgs, 3)
  assert.Equal(t, types.ChatRoleUser, msgs[1].Role)
  assert.Equal(t, types.ChatRoleAssistant, msgs[2].Role)
  assert.Equal(t, "Photosynthesis", msgs[2].Content)
}

func TestChatSendStartsSessionWhenNoneCurrent(t *testing.T) {
  gen := &fakeGenerator{stream: ai.NewSliceStream([]string{"ok"}, nil)}
  cs := NewChatService(logger.NewNop(), gen)
  store := newChatStore()

  res, err := cs.Send(context.Background(), store, "hello", nil)
  require.NoError(t, err)
  snap := store.Snapshot()
  require.NotNil(t, snap.CurrentSessionID)
  assert.Equal(t, *snap.CurrentSessionID, res.SessionID)
  assert.Equal(t, "hello...", snap.ChatSessions[0].Title)
}

func TestChatSendKeepsPartialTextOnError(t *testing.T) {
  boom := errors.New("connection reset")
  gen := &fakeGenerator{stream: ai.NewSliceStream([]string{"Half an ", "answer"}, boom)}
  cs := NewChatService(logger.NewNop(), gen)
  store := newChatStore()
  store.StartNewChat()

  res, err := cs.Send(context.Background(), store, "explain", nil)
  require.NoError(t, err)
  assert.ErrorIs(t, res.Err, boom)
  assert.Equal(t, "Half an answer", res.Text)

  msgs := lastMessages(t, store)
  require.Len(t, msgs, 4)
  assert.Equal(t, "Half an answer", msgs[2].Content)
  assert.Equal(t, ai.FallbackReply, msgs[3].Content)
}

func TestChatSendOpenFailure(t *testing.T) {
  gen := &fakeGenerator{openErr: errors.New("quota")}
  cs := NewChatService(logger.NewNop(), gen)
  store := newChatStore()
  store.StartNewChat()

  res, err := cs.Send(context.Background(), store, "explain", nil)
  require.NoError(t, err)
  assert.Error(t, res.Err)

  msgs := lastMessages(t, store)
  require.Len(t, msgs, 3)
  assert.Equal(t, types.ChatRoleUser, msgs[1].Role)
  assert.Equal(t, ai.FallbackReply, msgs[2].Content)
}

func TestChatSendRejectsEmptyPrompt(t *testing.T) {
  cs := NewChatService(logger.NewNop(), &fakeGenerator{})
  _, err := cs.Send(context.Background(), newChatStore(), "   ", nil)
  assert.ErrorIs(t, err, ai.ErrEmptyPrompt)
}

func TestChatSendWithDemoGenerator(t *testing.T) {
  cs := NewChatService(logger.NewNop(), ai.NewDemoGenerator())
  store := newChatStore()
  res, err := cs.Send(context.Background(), store, "hi", nil)
  require.NoError(t, err)
  assert.Equal(t, ai.DemoReply, res.Text)
  assert.Equal(t, ai.ProviderDemo, cs.Provider())
}
