package ai

import (
  "context"
  "fmt"
  "net/http"
  "net/http/httptest"
  "testing"

  "github.com/google/generative-ai-go/genai"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/slotter-org/aristo-backend/internal/logger"
)

func chunkFrame(content string) string {
  return fmt.Sprintf(`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"test-model","choices":[{"index":0,"delta":{"content":%q}}]}`+"\n\n", content)
}

func newCompletionsServer(t *testing.T, frames ...string) *httptest.Server {
  t.Helper()
  srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/chat/completions" {
      http.NotFound(w, r)
      return
    }
    w.Header().Set("Content-Type", "text/event-stream")
    w.WriteHeader(http.StatusOK)
    for _, f := range frames {
      fmt.Fprint(w, f)
      w.(http.Flusher).Flush()
    }
  }))
  t.Cleanup(srv.Close)
  return srv
}

func TestOpenAIStreamOrdersFragments(t *testing.T) {
  srv := newCompletionsServer(t,
    `data: {"id":"c0","object":"chat.completion.chunk","created":1,"model":"test-model","choices":[]}`+"\n\n",
    chunkFrame("Hel"),
    chunkFrame("lo"),
    "data: [DONE]\n\n",
  )
  g := NewOpenAIGenerator("sk-test", srv.URL, "test-model", logger.NewNop())
  s, err := g.Stream(context.Background(), "Explain entropy")
  require.NoError(t, err)

  var seen []string
  text, err := Drain(s, func(fragment, text string) error {
    seen = append(seen, fragment)
    return nil
  })
  require.NoError(t, err)
  assert.Equal(t, "Hello", text)
  assert.Equal(t, []string{"Hel", "lo"}, seen)
}

func TestOpenAIStreamKeepsPartialTextOnBrokenFrame(t *testing.T) {
  srv := newCompletionsServer(t,
    chunkFrame("Entropy "),
    chunkFrame("measures"),
    `data: {"id":"c2","choices":[`+"\n\n",
  )
  g := NewOpenAIGenerator("sk-test", srv.URL, "test-model", logger.NewNop())
  s, err := g.Stream(context.Background(), "Explain entropy")
  require.NoError(t, err)

  text, err := Drain(s, nil)
  require.Error(t, err)
  assert.Contains(t, err.Error(), "openai stream failed")
  assert.Equal(t, "Entropy measures", text)
}

func TestOpenAIStreamHTTPError(t *testing.T) {
  srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusInternalServerError)
    fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
  }))
  t.Cleanup(srv.Close)
  g := NewOpenAIGenerator("sk-test", srv.URL, "test-model", logger.NewNop())
  s, err := g.Stream(context.Background(), "hi")
  require.NoError(t, err)

  text, err := Drain(s, nil)
  assert.Error(t, err)
  assert.Empty(t, text)
}

func TestOpenAIRejectsEmptyPrompt(t *testing.T) {
  g := NewOpenAIGenerator("sk-test", "http://127.0.0.1:1", "", logger.NewNop())
  _, err := g.Stream(context.Background(), "   ")
  assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestGeminiResponseText(t *testing.T) {
  assert.Equal(t, "", responseText(nil))
  assert.Equal(t, "", responseText(&genai.GenerateContentResponse{}))
  assert.Equal(t, "", responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))

  resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
    Content: &genai.Content{Parts: []genai.Part{
      genai.Text("Photo"),
      genai.Blob{MIMEType: "image/png", Data: []byte{1}},
      genai.Text("synthesis"),
    }},
  }}}
  assert.Equal(t, "Photosynthesis", responseText(resp))
}
