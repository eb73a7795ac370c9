package voice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/slotter-org/aristo-backend/internal/logger"
)

// Browser message types.
const (
	MsgAudio       = "audio"
	MsgMute        = "mute"
	MsgClose       = "close"
	MsgOpen        = "open"
	MsgInterrupted = "interrupted"
	MsgError       = "error"
	MsgClosed      = "closed"
)

var errClosedByPeer = errors.New("voice session closed by peer")

// Peer is the browser side of a voice session. *websocket.Conn satisfies it.
type Peer interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// VoiceState receives the session's active flag.
type VoiceState interface {
	SetVoiceActive(active bool)
}

type ClientMessage struct {
	Type  string `json:"type"`
	Data  string `json:"data,omitempty"`
	Rate  int    `json:"rate,omitempty"`
	Muted bool   `json:"muted,omitempty"`
}

// ServerMessage goes to the browser. StartAt and Duration are seconds on the session timeline.
type ServerMessage struct {
	Type     string  `json:"type"`
	Data     string  `json:"data,omitempty"`
	MimeType string  `json:"mimeType,omitempty"`
	StartAt  float64 `json:"startAt,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type Session struct {
	peer     Peer
	upstream Upstream
	sched    *Scheduler
	state    VoiceState
	log      *logger.Logger

	writeMu   sync.Mutex
	muted     atomic.Bool
	closeOnce sync.Once
}

func NewSession(peer Peer, upstream Upstream, state VoiceState, sched *Scheduler, log *logger.Logger) *Session {
	if sched == nil {
		sched = NewScheduler(nil)
	}
	return &Session{
		peer:     peer,
		upstream: upstream,
		sched:    sched,
		state:    state,
		log:      log,
	}
}

// Run pumps both directions until the browser closes, either socket fails or ctx ends.
// A browser initiated close returns nil.
func (s *Session) Run(ctx context.Context) error {
	s.setActive(true)
	s.write(ServerMessage{Type: MsgOpen})

	errc := make(chan error, 2)
	go func() { errc <- s.pumpPeer() }()
	go func() { errc <- s.pumpUpstream() }()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-errc:
	}

	if errors.Is(err, errClosedByPeer) {
		err = nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("Voice session ended with error", "error", err)
		s.write(ServerMessage{Type: MsgError, Error: err.Error()})
	}
	s.Close()
	return err
}

// Close stops scheduled output, closes both sockets and clears the active flag. Safe to call
// more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		cancelled := s.sched.Interrupt()
		s.sched.Close()
		_ = s.upstream.Close()
		s.write(ServerMessage{Type: MsgClosed})
		_ = s.peer.Close()
		s.setActive(false)
		s.log.Debug("Voice session closed", "cancelledBuffers", cancelled)
	})
}

func (s *Session) Muted() bool {
	return s.muted.Load()
}

func (s *Session) pumpPeer() error {
	for {
		var msg ClientMessage
		if err := s.peer.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case MsgAudio:
			if s.muted.Load() {
				continue
			}
			if err := s.forwardAudio(msg); err != nil {
				return err
			}
		case MsgMute:
			s.muted.Store(msg.Muted)
			s.log.Debug("Voice mute toggled", "muted", msg.Muted)
		case MsgClose:
			return errClosedByPeer
		default:
			s.log.Debug("Unhandled voice message", "type", msg.Type)
		}
	}
}

func (s *Session) forwardAudio(msg ClientMessage) error {
	raw, err := DecodeFrame(msg.Data)
	if err != nil {
		s.log.Debug("Dropping bad audio frame", "error", err)
		return nil
	}
	pcm, err := ResamplePCM16(raw, msg.Rate)
	if err != nil {
		s.log.Debug("Dropping bad audio frame", "error", err)
		return nil
	}
	return s.upstream.SendAudio(pcm)
}

func (s *Session) pumpUpstream() error {
	for {
		ev, err := s.upstream.Receive()
		if err != nil {
			return err
		}
		if ev.Interrupted {
			n := s.sched.Interrupt()
			s.log.Debug("Upstream interrupted playback", "cancelledBuffers", n)
			s.write(ServerMessage{Type: MsgInterrupted})
		}
		if len(ev.Audio) == 0 {
			continue
		}
		rate := RateFromMIME(ev.MimeType, OutputSampleRate)
		slot, err := s.sched.Schedule(PCMDuration(len(ev.Audio), rate))
		if err != nil {
			return err
		}
		mime := ev.MimeType
		if mime == "" {
			mime = "audio/pcm;rate=24000"
		}
		s.write(ServerMessage{
			Type:     MsgAudio,
			Data:     EncodeFrame(ev.Audio),
			MimeType: mime,
			StartAt:  slot.Start.Seconds(),
			Duration: slot.Duration.Seconds(),
		})
	}
}

func (s *Session) write(msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.peer.WriteJSON(msg); err != nil {
		s.log.Debug("Failed writing to voice peer", "type", msg.Type, "error", err)
	}
}

func (s *Session) setActive(active bool) {
	if s.state != nil {
		s.state.SetVoiceActive(active)
	}
}
