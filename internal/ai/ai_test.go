package ai

import (
  "context"
  "errors"
  "io"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/slotter-org/aristo-backend/internal/logger"
)

func TestAccumulator(t *testing.T) {
  var acc Accumulator
  assert.Equal(t, "", acc.Text())
  assert.Equal(t, "Hel", acc.Append("Hel"))
  assert.Equal(t, "Hello", acc.Append("lo"))
  assert.Equal(t, 2, acc.Fragments())
}

func TestDrainOrdersFragments(t *testing.T) {
  var seen []string
  text, err := Drain(NewSliceStream([]string{"A", "", "B", "C"}, nil), func(fragment, text string) error {
    seen = append(seen, text)
    return nil
  })
  require.NoError(t, err)
  assert.Equal(t, "ABC", text)
  assert.Equal(t, []string{"A", "AB", "ABC"}, seen)
}

func TestDrainKeepsPartialTextOnError(t *testing.T) {
  boom := errors.New("boom")
  text, err := Drain(NewSliceStream([]string{"par", "tial"}, boom), nil)
  assert.ErrorIs(t, err, boom)
  assert.Equal(t, "partial", text)
}

func TestDrainStopsWhenCallbackFails(t *testing.T) {
  stop := errors.New("client gone")
  s := NewSliceStream([]string{"a", "b", "c"}, nil)
  text, err := Drain(s, func(fragment, text string) error {
    if text == "ab" {
      return stop
    }
    return nil
  })
  assert.ErrorIs(t, err, stop)
  assert.Equal(t, "ab", text)

  _, err = s.Next()
  assert.ErrorIs(t, err, io.EOF, "stream is closed after drain")
}

func TestDemoGenerator(t *testing.T) {
  g := NewDemoGenerator()
  assert.Equal(t, ProviderDemo, g.Name())

  _, err := g.Stream(context.Background(), "   ")
  assert.ErrorIs(t, err, ErrEmptyPrompt)

  s, err := g.Stream(context.Background(), "Explain entropy")
  require.NoError(t, err)
  text, err := Drain(s, nil)
  require.NoError(t, err)
  assert.Equal(t, DemoReply, text)
}

func TestNewTextGeneratorFallsBackToDemo(t *testing.T) {
  log := logger.NewNop()

  g, err := NewTextGenerator(context.Background(), Config{}, log)
  require.NoError(t, err)
  assert.Equal(t, ProviderDemo, g.Name())

  g, err = NewTextGenerator(context.Background(), Config{Provider: "OpenAI"}, log)
  require.NoError(t, err)
  assert.Equal(t, ProviderDemo, g.Name())

  _, err = NewTextGenerator(context.Background(), Config{Provider: "llama"}, log)
  assert.Error(t, err)
}

func TestNewTextGeneratorOpenAI(t *testing.T) {
  g, err := NewTextGenerator(context.Background(), Config{Provider: "openai", OpenAIAPIKey: "sk-test"}, logger.NewNop())
  require.NoError(t, err)
  assert.Equal(t, ProviderOpenAI, g.Name())
  assert.NoError(t, g.Close())
}
