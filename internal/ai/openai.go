package ai

import (
  "context"
  "fmt"
  "io"
  "net/http"
  "strings"
  "time"

  openaigo "github.com/openai/openai-go/v3"
  "github.com/openai/openai-go/v3/option"
  "github.com/openai/openai-go/v3/packages/ssestream"

  "github.com/slotter-org/aristo-backend/internal/logger"
)

const (
  DefaultOpenAIBaseURL = "https://api.openai.com/v1"
  DefaultOpenAIModel   = "gpt-4o-mini"

  openAIRequestTimeout = 75 * time.Second
)

type openAIGenerator struct {
  client openaigo.Client
  model  string
  log    *logger.Logger
}

// NewOpenAIGenerator talks to any OpenAI compatible chat completions endpoint.
// Retries are disabled; a failed request surfaces as a stream error.
func NewOpenAIGenerator(apiKey, baseURL, model string, log *logger.Logger) TextGenerator {
  if strings.TrimSpace(baseURL) == "" {
    baseURL = DefaultOpenAIBaseURL
  }
  if strings.TrimSpace(model) == "" {
    model = DefaultOpenAIModel
  }
  client := openaigo.NewClient(
    option.WithBaseURL(strings.TrimRight(strings.TrimSpace(baseURL), "/")),
    option.WithAPIKey(strings.TrimSpace(apiKey)),
    option.WithHTTPClient(&http.Client{}),
    option.WithMaxRetries(0),
    option.WithRequestTimeout(openAIRequestTimeout),
  )
  return &openAIGenerator{client: client, model: model, log: log.With("generator", "openai", "model", model)}
}

func (g *openAIGenerator) Stream(ctx context.Context, prompt string) (Stream, error) {
  if strings.TrimSpace(prompt) == "" {
    return nil, ErrEmptyPrompt
  }
  params := openaigo.ChatCompletionNewParams{
    Model: openaigo.ChatModel(g.model),
    Messages: []openaigo.ChatCompletionMessageParamUnion{
      openaigo.SystemMessage(SystemInstruction),
      openaigo.UserMessage(prompt),
    },
  }
  g.log.Debug("Opening openai text stream", "promptLen", len(prompt))
  return &openAIStream{s: g.client.Chat.Completions.NewStreaming(ctx, params)}, nil
}

func (g *openAIGenerator) Name() string { return ProviderOpenAI }

func (g *openAIGenerator) Close() error { return nil }

type openAIStream struct {
  s *ssestream.Stream[openaigo.ChatCompletionChunk]
}

func (o *openAIStream) Next() (string, error) {
  if !o.s.Next() {
    if err := o.s.Err(); err != nil {
      return "", fmt.Errorf("openai stream failed: %w", err)
    }
    return "", io.EOF
  }
  chunk := o.s.Current()
  if len(chunk.Choices) == 0 {
    return "", nil
  }
  return chunk.Choices[0].Delta.Content, nil
}

func (o *openAIStream) Close() error {
  return o.s.Close()
}
