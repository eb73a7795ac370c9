package ai

import (
  "context"
  "errors"
  "fmt"
  "io"
  "strings"

  "github.com/google/generative-ai-go/genai"
  "google.golang.org/api/iterator"
  "google.golang.org/api/option"

  "github.com/slotter-org/aristo-backend/internal/logger"
)

const DefaultGeminiModel = "gemini-3-flash-preview"

type geminiGenerator struct {
  client *genai.Client
  model  string
  log    *logger.Logger
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string, log *logger.Logger) (TextGenerator, error) {
  if model == "" {
    model = DefaultGeminiModel
  }
  client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
  if err != nil {
    return nil, fmt.Errorf("failed to create gemini client: %w", err)
  }
  return &geminiGenerator{client: client, model: model, log: log.With("generator", "gemini", "model", model)}, nil
}

func (g *geminiGenerator) Stream(ctx context.Context, prompt string) (Stream, error) {
  if strings.TrimSpace(prompt) == "" {
    return nil, ErrEmptyPrompt
  }
  model := g.client.GenerativeModel(g.model)
  model.SystemInstruction = &genai.Content{
    Parts: []genai.Part{genai.Text(SystemInstruction)},
  }
  g.log.Debug("Opening gemini text stream", "promptLen", len(prompt))
  return &geminiStream{it: model.GenerateContentStream(ctx, genai.Text(prompt))}, nil
}

func (g *geminiGenerator) Name() string { return ProviderGemini }

func (g *geminiGenerator) Close() error {
  return g.client.Close()
}

type geminiStream struct {
  it   *genai.GenerateContentResponseIterator
  done bool
}

// Next returns the text of the next response chunk. Chunks with no text parts yield "".
func (s *geminiStream) Next() (string, error) {
  if s.done {
    return "", io.EOF
  }
  resp, err := s.it.Next()
  if errors.Is(err, iterator.Done) {
    s.done = true
    return "", io.EOF
  }
  if err != nil {
    s.done = true
    return "", fmt.Errorf("gemini stream failed: %w", err)
  }
  return responseText(resp), nil
}

func (s *geminiStream) Close() error {
  s.done = true
  return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
  if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
    return ""
  }
  var b strings.Builder
  for _, part := range resp.Candidates[0].Content.Parts {
    if txt, ok := part.(genai.Text); ok {
      b.WriteString(string(txt))
    }
  }
  return b.String()
}
