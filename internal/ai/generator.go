// Package ai holds the text generation side of the AI companion: providers that turn a prompt
// into an ordered stream of text fragments, and the consumer that stitches them back together.
package ai

import (
  "context"
  "errors"
  "fmt"
  "io"
  "strings"

  "github.com/slotter-org/aristo-backend/internal/logger"
)

const (
  SystemInstruction = "You are Aristo, a brilliant world-class educational AI companion. " +
    "You help students with notes, research, and learning strategies in a supportive and brilliant manner. " +
    "Respond in the language the user uses (Bengali or English). " +
    "Provide high-quality, concise academic assistance."

  DemoReply     = "I'm currently in demo mode. Connect your Gemini API Key to enable my full intelligent features!"
  FallbackReply = "Neural link error. Please try again."

  ProviderGemini = "gemini"
  ProviderOpenAI = "openai"
  ProviderDemo   = "demo"
)

var ErrEmptyPrompt = errors.New("prompt is empty")

// Stream yields text fragments in emission order. Next returns io.EOF once the reply is
// complete; any other error ends the stream.
type Stream interface {
  Next() (string, error)
  Close() error
}

type TextGenerator interface {
  Stream(ctx context.Context, prompt string) (Stream, error)
  Name() string
  Close() error
}

type Config struct {
  Provider      string
  GeminiAPIKey  string
  GeminiModel   string
  OpenAIAPIKey  string
  OpenAIBaseURL string
  OpenAIModel   string
}

// NewTextGenerator picks a provider from cfg. A provider without an API key falls back to the
// demo generator so the companion still answers.
func NewTextGenerator(ctx context.Context, cfg Config, log *logger.Logger) (TextGenerator, error) {
  provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
  if provider == "" {
    provider = ProviderGemini
  }
  switch provider {
  case ProviderGemini:
    if cfg.GeminiAPIKey == "" {
      log.Warn("GEMINI_API_KEY not set, AI companion runs in demo mode")
      return NewDemoGenerator(), nil
    }
    return NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
  case ProviderOpenAI:
    if cfg.OpenAIAPIKey == "" {
      log.Warn("OPENAI_API_KEY not set, AI companion runs in demo mode")
      return NewDemoGenerator(), nil
    }
    return NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, log), nil
  case ProviderDemo:
    return NewDemoGenerator(), nil
  default:
    return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
  }
}

// Accumulator concatenates fragments in arrival order. Text is the visible cursor: what has
// been received so far.
type Accumulator struct {
  b strings.Builder
  n int
}

func (a *Accumulator) Append(fragment string) string {
  a.b.WriteString(fragment)
  a.n++
  return a.b.String()
}

func (a *Accumulator) Text() string {
  return a.b.String()
}

func (a *Accumulator) Fragments() int {
  return a.n
}

// Drain reads s to the end, calling fn with each non-empty fragment and the text so far.
// It returns the accumulated text together with the first error from the stream or from fn;
// the text received before an error is still returned.
func Drain(s Stream, fn func(fragment, text string) error) (string, error) {
  defer s.Close()
  var acc Accumulator
  for {
    fragment, err := s.Next()
    if errors.Is(err, io.EOF) {
      return acc.Text(), nil
    }
    if err != nil {
      return acc.Text(), err
    }
    if fragment == "" {
      continue
    }
    text := acc.Append(fragment)
    if fn != nil {
      if err := fn(fragment, text); err != nil {
        return text, err
      }
    }
  }
}

// SliceStream replays fixed fragments, then ends with err (io.EOF when nil).
type SliceStream struct {
  fragments []string
  err       error
  pos       int
  closed    bool
}

func NewSliceStream(fragments []string, err error) *SliceStream {
  return &SliceStream{fragments: fragments, err: err}
}

func (s *SliceStream) Next() (string, error) {
  if s.closed {
    return "", io.EOF
  }
  if s.pos < len(s.fragments) {
    f := s.fragments[s.pos]
    s.pos++
    return f, nil
  }
  if s.err != nil {
    return "", s.err
  }
  return "", io.EOF
}

func (s *SliceStream) Close() error {
  s.closed = true
  return nil
}

type demoGenerator struct{}

// NewDemoGenerator answers every prompt with DemoReply.
func NewDemoGenerator() TextGenerator {
  return demoGenerator{}
}

func (demoGenerator) Stream(ctx context.Context, prompt string) (Stream, error) {
  if strings.TrimSpace(prompt) == "" {
    return nil, ErrEmptyPrompt
  }
  return NewSliceStream([]string{DemoReply}, nil), nil
}

func (demoGenerator) Name() string { return ProviderDemo }

func (demoGenerator) Close() error { return nil }
