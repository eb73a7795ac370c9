package voice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotter-org/aristo-backend/internal/logger"
)

func TestPCMRoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, -1, 0.25}
	pcm := EncodePCM16(in)
	require.Len(t, pcm, len(in)*2)

	out, err := DecodePCM16(pcm)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	clipped, err := DecodePCM16(EncodePCM16([]float32{1.5, -2}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, clipped[0], 0.001)
	assert.Equal(t, float32(-1), clipped[1])

	_, err = DecodePCM16([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrOddPCM)
}

func TestResample(t *testing.T) {
	assert.Equal(t, []float32{0, 2, 4}, Resample([]float32{0, 1, 2, 3, 4, 5}, 32000, 16000))
	assert.Equal(t, []float32{0, 3}, Resample([]float32{0, 1, 2, 3, 4, 5}, 48000, 16000))
	assert.Equal(t, []float32{0, 0.5, 1, 1.5, 2, 2}, Resample([]float32{0, 1, 2}, 8000, 16000))

	same := []float32{1, 2}
	assert.Equal(t, same, Resample(same, 16000, 16000))
}

func TestResamplePCM16(t *testing.T) {
	pcm := EncodePCM16([]float32{0, 0.25, 0.5, 0.75})
	out, err := ResamplePCM16(pcm, 32000)
	require.NoError(t, err)
	samples, err := DecodePCM16(out)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5}, samples)

	passthrough, err := ResamplePCM16(pcm, InputSampleRate)
	require.NoError(t, err)
	assert.Equal(t, pcm, passthrough)

	_, err = ResamplePCM16(pcm, -1)
	assert.Error(t, err)
}

func TestResamplePCM16UpsamplesLowRates(t *testing.T) {
	pcm := EncodePCM16([]float32{0, 0.5})
	out, err := ResamplePCM16(pcm, 8000)
	require.NoError(t, err)
	samples, err := DecodePCM16(out)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.25, 0.5, 0.5}, samples)
	assert.Equal(t, PCMDuration(len(pcm), 8000), PCMDuration(len(out), InputSampleRate))
}

func TestFramesAndDurations(t *testing.T) {
	b, err := DecodeFrame(EncodeFrame([]byte{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, b)

	_, err = DecodeFrame("%%%")
	assert.Error(t, err)

	assert.Equal(t, 100*time.Millisecond, PCMDuration(4800, 24000))
	assert.Equal(t, time.Duration(0), PCMDuration(4800, 0))
	assert.Equal(t, 24000, RateFromMIME("audio/pcm;rate=24000", 16000))
	assert.Equal(t, 16000, RateFromMIME("audio/pcm", 16000))
}

type manualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *manualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

func TestSchedulerBackToBack(t *testing.T) {
	clock := &manualClock{}
	s := NewScheduler(clock.Now)

	a, err := s.Schedule(100 * time.Millisecond)
	require.NoError(t, err)
	b, err := s.Schedule(50 * time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), a.Start)
	assert.Equal(t, a.End(), b.Start, "no gap and no overlap")
	assert.Equal(t, 150*time.Millisecond, s.NextStart())
	assert.Equal(t, 2, s.Active())

	clock.Advance(time.Second)
	assert.Equal(t, 0, s.Active())
	c, err := s.Schedule(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.Start, "never starts in the past")
}

func TestSchedulerInterruptAndClose(t *testing.T) {
	clock := &manualClock{}
	s := NewScheduler(clock.Now)
	for i := 0; i < 3; i++ {
		_, err := s.Schedule(time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.Interrupt())
	assert.Equal(t, time.Duration(0), s.NextStart())
	assert.Equal(t, 0, s.Active())

	slot, err := s.Schedule(time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), slot.Start)

	s.Close()
	assert.Equal(t, 0, s.Active())
	_, err = s.Schedule(time.Second)
	assert.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestParseServerMessage(t *testing.T) {
	payload := `{"serverContent":{"modelTurn":{"parts":[` +
		`{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"` + EncodeFrame([]byte{1, 2}) + `"}},` +
		`{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"` + EncodeFrame([]byte{3, 4}) + `"}}]}}}`
	ev, err := parseServerMessage([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, ev.Audio)
	assert.Equal(t, "audio/pcm;rate=24000", ev.MimeType)

	ev, err = parseServerMessage([]byte(`{"serverContent":{"interrupted":true}}`))
	require.NoError(t, err)
	assert.True(t, ev.Interrupted)
	assert.Empty(t, ev.Audio)

	ev, err = parseServerMessage([]byte(`{"setupComplete":{}}`))
	require.NoError(t, err)
	assert.True(t, ev.SetupComplete)
}

func TestSetupMessage(t *testing.T) {
	msg := newSetupMessage(LiveConfig{SystemInstruction: "Be kind."}.withDefaults())
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	setup := decoded["setup"]
	assert.Equal(t, "models/"+LiveModel, setup["model"])
	assert.Contains(t, string(raw), `"voiceName":"Zephyr"`)
	assert.Contains(t, string(raw), `"responseModalities":["AUDIO"]`)
	assert.Contains(t, string(raw), "Be kind. Listen and speak naturally.")
}

//fakes

type fakePeer struct {
	in     chan ClientMessage
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	out    []ServerMessage
	closed bool
}

func newFakePeer() *fakePeer {
	return &fakePeer{in: make(chan ClientMessage, 16), done: make(chan struct{})}
}

func (p *fakePeer) ReadJSON(v interface{}) error {
	select {
	case msg := <-p.in:
		raw, _ := json.Marshal(msg)
		return json.Unmarshal(raw, v)
	case <-p.done:
		return io.EOF
	}
}

func (p *fakePeer) WriteJSON(v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, v.(ServerMessage))
	return nil
}

func (p *fakePeer) Close() error {
	p.once.Do(func() { close(p.done) })
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) sent(kind string) []ServerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ServerMessage
	for _, m := range p.out {
		if m.Type == kind {
			out = append(out, m)
		}
	}
	return out
}

type fakeUpstream struct {
	events chan ServerEvent
	fail   chan error
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	audio  [][]byte
	closed bool
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{events: make(chan ServerEvent, 16), fail: make(chan error, 1), done: make(chan struct{})}
}

func (u *fakeUpstream) SendAudio(pcm []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.audio = append(u.audio, pcm)
	return nil
}

func (u *fakeUpstream) Receive() (ServerEvent, error) {
	select {
	case ev := <-u.events:
		return ev, nil
	case err := <-u.fail:
		return ServerEvent{}, err
	case <-u.done:
		return ServerEvent{}, io.EOF
	}
}

func (u *fakeUpstream) Close() error {
	u.once.Do(func() { close(u.done) })
	u.mu.Lock()
	u.closed = true
	u.mu.Unlock()
	return nil
}

func (u *fakeUpstream) sentFrames() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.audio)
}

type flagRecorder struct {
	mu      sync.Mutex
	history []bool
}

func (f *flagRecorder) SetVoiceActive(active bool) {
	f.mu.Lock()
	f.history = append(f.history, active)
	f.mu.Unlock()
}

func (f *flagRecorder) values() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.history...)
}

func startSession(t *testing.T) (*fakePeer, *fakeUpstream, *flagRecorder, *Scheduler, chan error) {
	t.Helper()
	peer := newFakePeer()
	up := newFakeUpstream()
	flags := &flagRecorder{}
	sched := NewScheduler((&manualClock{}).Now)
	s := NewSession(peer, up, flags, sched, logger.NewNop())
	result := make(chan error, 1)
	go func() { result <- s.Run(context.Background()) }()
	return peer, up, flags, sched, result
}

func waitResult(t *testing.T, result chan error) error {
	t.Helper()
	select {
	case err := <-result:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("voice session did not finish")
		return nil
	}
}

func TestSessionSchedulesUpstreamAudio(t *testing.T) {
	peer, up, flags, _, result := startSession(t)

	chunk := make([]byte, 4800)
	up.events <- ServerEvent{Audio: chunk, MimeType: "audio/pcm;rate=24000"}
	up.events <- ServerEvent{Audio: chunk, MimeType: "audio/pcm;rate=24000"}

	require.Eventually(t, func() bool { return len(peer.sent(MsgAudio)) == 2 }, time.Second, 5*time.Millisecond)
	audio := peer.sent(MsgAudio)
	assert.InDelta(t, 0.0, audio[0].StartAt, 1e-9)
	assert.InDelta(t, 0.1, audio[0].Duration, 1e-9)
	assert.InDelta(t, 0.1, audio[1].StartAt, 1e-9)

	peer.in <- ClientMessage{Type: MsgClose}
	require.NoError(t, waitResult(t, result))

	assert.Equal(t, []bool{true, false}, flags.values())
	assert.True(t, up.closed)
	assert.True(t, peer.closed)
	assert.Len(t, peer.sent(MsgClosed), 1)
}

func TestSessionMuteStopsForwarding(t *testing.T) {
	peer, up, _, _, result := startSession(t)
	frame := EncodeFrame(EncodePCM16([]float32{0.1, 0.2}))

	peer.in <- ClientMessage{Type: MsgAudio, Data: frame, Rate: InputSampleRate}
	peer.in <- ClientMessage{Type: MsgMute, Muted: true}
	peer.in <- ClientMessage{Type: MsgAudio, Data: frame, Rate: InputSampleRate}
	peer.in <- ClientMessage{Type: MsgMute, Muted: false}
	peer.in <- ClientMessage{Type: MsgAudio, Data: frame, Rate: InputSampleRate}
	peer.in <- ClientMessage{Type: MsgClose}

	require.NoError(t, waitResult(t, result))
	assert.Equal(t, 2, up.sentFrames())
}

func TestSessionInterruptClearsPlayback(t *testing.T) {
	peer, up, _, sched, result := startSession(t)

	up.events <- ServerEvent{Audio: make([]byte, 48000)}
	require.Eventually(t, func() bool { return len(peer.sent(MsgAudio)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, time.Second, sched.NextStart())

	up.events <- ServerEvent{Interrupted: true}
	require.Eventually(t, func() bool { return len(peer.sent(MsgInterrupted)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, sched.Active())
	assert.Equal(t, time.Duration(0), sched.NextStart())

	peer.in <- ClientMessage{Type: MsgClose}
	require.NoError(t, waitResult(t, result))
}

func TestSessionUpstreamFailure(t *testing.T) {
	peer, up, flags, _, result := startSession(t)

	boom := errors.New("upstream dropped")
	up.fail <- boom
	err := waitResult(t, result)
	assert.ErrorIs(t, err, boom)

	errs := peer.sent(MsgError)
	require.Len(t, errs, 1)
	assert.Equal(t, "upstream dropped", errs[0].Error)
	assert.Equal(t, []bool{true, false}, flags.values())
}
