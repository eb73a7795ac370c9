package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/slotter-org/aristo-backend/internal/logger"
)

const (
	LiveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	LiveModel    = "gemini-2.5-flash-native-audio-preview-12-2025"
	LiveVoice    = "Zephyr"

	liveWriteWait = 10 * time.Second
	liveReadLimit = 8 << 20
)

// ServerEvent is one message from the upstream model, reduced to what playback needs.
type ServerEvent struct {
	Audio         []byte
	MimeType      string
	Interrupted   bool
	TurnComplete  bool
	SetupComplete bool
}

// Upstream is the model side of a voice session.
type Upstream interface {
	SendAudio(pcm []byte) error
	Receive() (ServerEvent, error)
	Close() error
}

// DialFunc opens a new upstream for one browser session.
type DialFunc func(ctx context.Context) (Upstream, error)

type LiveConfig struct {
	APIKey            string
	Endpoint          string
	Model             string
	Voice             string
	SystemInstruction string
}

//wire formats

type liveSetupMessage struct {
	Setup liveSetup `json:"setup"`
}

type liveSetup struct {
	Model             string               `json:"model"`
	GenerationConfig  liveGenerationConfig `json:"generationConfig"`
	SystemInstruction liveContent          `json:"systemInstruction"`
}

type liveGenerationConfig struct {
	ResponseModalities []string         `json:"responseModalities"`
	SpeechConfig       liveSpeechConfig `json:"speechConfig"`
}

type liveSpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type liveContent struct {
	Parts []livePart `json:"parts"`
}

type livePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *liveInlineData `json:"inlineData,omitempty"`
}

type liveInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type liveRealtimeInput struct {
	RealtimeInput struct {
		MediaChunks []liveInlineData `json:"mediaChunks"`
	} `json:"realtimeInput"`
}

type liveServerMessage struct {
	SetupComplete *struct{} `json:"setupComplete,omitempty"`
	ServerContent *struct {
		ModelTurn    *liveContent `json:"modelTurn,omitempty"`
		Interrupted  bool         `json:"interrupted,omitempty"`
		TurnComplete bool         `json:"turnComplete,omitempty"`
	} `json:"serverContent,omitempty"`
}

// LiveClient is a gorilla websocket connection to the Gemini Live bidirectional endpoint.
type LiveClient struct {
	conn    *websocket.Conn
	log     *logger.Logger
	writeMu sync.Mutex
}

func (cfg LiveConfig) withDefaults() LiveConfig {
	if cfg.Endpoint == "" {
		cfg.Endpoint = LiveEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = LiveModel
	}
	if cfg.Voice == "" {
		cfg.Voice = LiveVoice
	}
	return cfg
}

// Dialer returns a DialFunc bound to cfg, ready to hand to the voice handler.
func Dialer(cfg LiveConfig, log *logger.Logger) DialFunc {
	return func(ctx context.Context) (Upstream, error) {
		return DialLive(ctx, cfg, log)
	}
}

// DialLive connects and sends the setup message. The returned client is ready for audio.
func DialLive(ctx context.Context, cfg LiveConfig, log *logger.Logger) (*LiveClient, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("voice companion requires an API key")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid live endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", cfg.APIKey)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial live endpoint: %w", err)
	}
	conn.SetReadLimit(liveReadLimit)

	lc := &LiveClient{conn: conn, log: log.With("upstream", "gemini-live", "model", cfg.Model)}
	if err := lc.writeJSON(newSetupMessage(cfg)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send live setup: %w", err)
	}
	lc.log.Debug("Live session setup sent")
	return lc, nil
}

func newSetupMessage(cfg LiveConfig) liveSetupMessage {
	var msg liveSetupMessage
	msg.Setup.Model = "models/" + cfg.Model
	msg.Setup.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	msg.Setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = cfg.Voice
	msg.Setup.SystemInstruction = liveContent{Parts: []livePart{{Text: cfg.SystemInstruction + " Listen and speak naturally."}}}
	return msg
}

func (lc *LiveClient) SendAudio(pcm []byte) error {
	var msg liveRealtimeInput
	msg.RealtimeInput.MediaChunks = []liveInlineData{{MimeType: InputMIME, Data: EncodeFrame(pcm)}}
	return lc.writeJSON(msg)
}

func (lc *LiveClient) Receive() (ServerEvent, error) {
	_, data, err := lc.conn.ReadMessage()
	if err != nil {
		return ServerEvent{}, err
	}
	return parseServerMessage(data)
}

func (lc *LiveClient) Close() error {
	lc.writeMu.Lock()
	_ = lc.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	_ = lc.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	lc.writeMu.Unlock()
	return lc.conn.Close()
}

func (lc *LiveClient) writeJSON(v interface{}) error {
	lc.writeMu.Lock()
	defer lc.writeMu.Unlock()
	_ = lc.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return lc.conn.WriteJSON(v)
}

// parseServerMessage concatenates every inline audio part of a model turn.
func parseServerMessage(data []byte) (ServerEvent, error) {
	var msg liveServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerEvent{}, fmt.Errorf("invalid live server message: %w", err)
	}
	ev := ServerEvent{SetupComplete: msg.SetupComplete != nil}
	if msg.ServerContent == nil {
		return ev, nil
	}
	ev.Interrupted = msg.ServerContent.Interrupted
	ev.TurnComplete = msg.ServerContent.TurnComplete
	if msg.ServerContent.ModelTurn == nil {
		return ev, nil
	}
	for _, part := range msg.ServerContent.ModelTurn.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		pcm, err := DecodeFrame(part.InlineData.Data)
		if err != nil {
			return ServerEvent{}, err
		}
		ev.Audio = append(ev.Audio, pcm...)
		if ev.MimeType == "" {
			ev.MimeType = part.InlineData.MimeType
		}
	}
	return ev, nil
}
