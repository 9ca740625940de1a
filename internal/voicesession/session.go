package voicesession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/baoagent/voice-gateway/internal/audio"
	"github.com/baoagent/voice-gateway/internal/conversation"
	"github.com/baoagent/voice-gateway/internal/dispatch"
	"github.com/baoagent/voice-gateway/internal/generation"
	"github.com/baoagent/voice-gateway/internal/shared"
	"github.com/baoagent/voice-gateway/internal/stream"
	"github.com/baoagent/voice-gateway/internal/synthesis"
	"github.com/baoagent/voice-gateway/internal/transcription"
	"github.com/baoagent/voice-gateway/internal/transport"
	"github.com/baoagent/voice-gateway/internal/vad"
	"github.com/google/uuid"
)

type State string

const (
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateResponding State = "responding"
	StateClosed     State = "closed"
)

const (
	// DefaultQueueDepth bounds how many flushed utterances may wait for the
	// pipeline before the oldest is dropped.
	DefaultQueueDepth = 8

	overloadRetryDelay = 50 * time.Millisecond
)

type Config struct {
	VAD           vad.Config
	QueueDepth    int
	MaxTurns      int
	FallbackReply string
}

// VoiceSession drives one connection's conversation loop: inbound frames
// feed the activity buffer, flushed utterances run transcribe, generate and
// synthesize strictly in arrival order, and each reply streams back before
// the next utterance is dispatched. Audio arriving while a reply is in
// flight is still buffered and queued, never discarded.
type VoiceSession struct {
	sessionID string
	startedAt time.Time

	conn     transport.Connection
	buffer   *vad.Buffer
	pool     *dispatch.Pool
	stt      transcription.Transcriber
	adapter  *conversation.Adapter
	tts      synthesis.Synthesizer
	streamer *stream.Streamer

	// latestSeq is the newest utterance to have started processing; replies
	// answering an older sequence are discarded before streaming.
	latestSeq  atomic.Uint64
	utterances chan *vad.Utterance
	vadRate    int

	stateMu sync.Mutex
	state   State

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	log       *slog.Logger
}

type Capabilities struct {
	Pool        *dispatch.Pool
	Transcriber transcription.Transcriber
	Generator   generation.Generator
	Synthesizer synthesis.Synthesizer
	Streamer    *stream.Streamer
}

func New(conn transport.Connection, caps Capabilities, cfg Config, log *slog.Logger) *VoiceSession {
	if log == nil {
		log = slog.Default()
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}

	sessionID := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	log = log.With("session_id", sessionID)

	vadCfg := cfg.VAD
	buffer := vad.NewBuffer(vadCfg)

	return &VoiceSession{
		sessionID: sessionID,
		startedAt: time.Now(),
		conn:      conn,
		buffer:    buffer,
		pool:      caps.Pool,
		stt:       caps.Transcriber,
		adapter: conversation.NewAdapter(caps.Generator, conversation.AdapterConfig{
			MaxTurns:      cfg.MaxTurns,
			FallbackReply: cfg.FallbackReply,
		}, log),
		tts:        caps.Synthesizer,
		streamer:   caps.Streamer,
		utterances: make(chan *vad.Utterance, cfg.QueueDepth),
		vadRate:    buffer.SampleRate(),
		state:      StateListening,
		ctx:        ctx,
		cancel:     cancel,
		log:        log.With("component", "voicesession"),
	}
}

// Start launches the read and pipeline loops. The session owns its own
// lifecycle from here; it closes itself when the connection's frame channel
// closes.
func (s *VoiceSession) Start() {
	s.wg.Add(2)
	go s.readLoop()
	go s.pipelineLoop()
	s.log.Info("session started")
}

func (s *VoiceSession) ID() string           { return s.sessionID }
func (s *VoiceSession) StartedAt() time.Time { return s.startedAt }

func (s *VoiceSession) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *VoiceSession) setState(next State) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = next
}

// History returns the session's conversation turns so far.
func (s *VoiceSession) History() []conversation.Turn {
	return s.adapter.History()
}

// Close cancels the session and closes its connection. Idempotent and safe
// to call from any goroutine, including the session's own loops.
func (s *VoiceSession) Close() {
	s.closeOnce.Do(func() {
		s.stateMu.Lock()
		s.state = StateClosed
		s.stateMu.Unlock()

		s.cancel()
		if err := s.conn.Close(); err != nil {
			s.log.Debug("connection close", "error", err)
		}
		s.log.Info("session closed")
	})
}

// Wait blocks until both loops have exited.
func (s *VoiceSession) Wait() {
	s.wg.Wait()
}

func (s *VoiceSession) readLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case frame, ok := <-s.conn.Frames():
			if !ok {
				s.Close()
				return
			}
			s.handleFrame(frame)
		}
	}
}

func (s *VoiceSession) handleFrame(frame transport.InboundFrame) {
	samples, err := audio.Decode(frame.Format, frame.Data)
	if err != nil {
		s.log.Warn("dropping malformed frame", "error", err, "bytes", len(frame.Data))
		s.sendError("malformed audio frame")
		return
	}

	if frame.SampleRate > 0 && frame.SampleRate != s.vadRate {
		samples = audio.ResampleInt16(samples, frame.SampleRate, s.vadRate)
	}

	if u := s.buffer.Push(samples); u != nil {
		s.enqueue(u)
	}
}

// enqueue hands a flushed utterance to the pipeline. When the queue is full
// the oldest queued utterance is dropped in favor of the new one; stale
// audio is worth less than fresh audio.
func (s *VoiceSession) enqueue(u *vad.Utterance) {
	for {
		select {
		case s.utterances <- u:
			s.log.Debug("utterance queued", "seq", u.Seq, "duration", u.Duration)
			return
		default:
		}
		select {
		case dropped := <-s.utterances:
			s.log.Warn("utterance queue full, dropping oldest", "dropped_seq", dropped.Seq, "seq", u.Seq)
		default:
		}
	}
}

func (s *VoiceSession) pipelineLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case u := <-s.utterances:
			s.processUtterance(u)
		}
	}
}

// processUtterance runs one utterance through the full pipeline. Stages run
// on the shared worker pool; this loop holds the session's single-flight
// position until the reply has finished streaming, which is what serializes
// utterances per connection.
func (s *VoiceSession) processUtterance(u *vad.Utterance) {
	s.latestSeq.Store(u.Seq)
	s.setState(StateProcessing)
	defer s.setState(StateListening)

	transcript, err := s.transcribe(u)
	if err != nil {
		s.log.Warn("transcription failed, discarding utterance", "seq", u.Seq, "error", err)
		return
	}
	if transcript == "" {
		s.log.Debug("empty transcript, nothing to answer", "seq", u.Seq)
		return
	}

	if err := s.send(transport.ServerMessage{
		Type: transport.MessageTypeTranscription,
		Text: transcript,
		Seq:  u.Seq,
	}); err != nil {
		return
	}

	reply, err := s.generate(u.Seq, transcript)
	if err != nil && !errors.Is(err, shared.ErrGenerationUnavailable) {
		s.log.Warn("generation failed", "seq", u.Seq, "error", err)
		return
	}
	if reply == "" {
		return
	}

	s.setState(StateResponding)

	pcm, rate, err := s.synthesize(u.Seq, reply)
	if err != nil {
		// The user still gets the reply as text when speech is unavailable.
		s.log.Warn("synthesis failed, sending text only", "seq", u.Seq, "error", err)
		s.send(transport.ServerMessage{
			Type: transport.MessageTypeTranscription,
			Text: reply,
			Seq:  u.Seq,
		})
		return
	}

	if err := s.streamer.Stream(s.ctx, s.conn, pcm, rate, u.Seq, s.latestSeq.Load); err != nil {
		s.log.Warn("reply streaming interrupted", "seq", u.Seq, "error", err)
	}
}

func (s *VoiceSession) transcribe(u *vad.Utterance) (string, error) {
	res, err := s.dispatch(dispatch.Task{
		SessionID: s.sessionID,
		Seq:       u.Seq,
		Kind:      dispatch.KindTranscribe,
		Ctx:       s.ctx,
		Run: func(ctx context.Context) (any, error) {
			return s.stt.Transcribe(ctx, u.Samples, u.SampleRate)
		},
	})
	if err != nil {
		return "", err
	}
	text, _ := res.(string)
	return text, nil
}

func (s *VoiceSession) generate(seq uint64, transcript string) (string, error) {
	res, err := s.dispatch(dispatch.Task{
		SessionID: s.sessionID,
		Seq:       seq,
		Kind:      dispatch.KindGenerate,
		Ctx:       s.ctx,
		Run: func(ctx context.Context) (any, error) {
			return s.adapter.Reply(ctx, transcript)
		},
	})
	text, _ := res.(string)
	return text, err
}

type synthesized struct {
	pcm  []int16
	rate int
}

func (s *VoiceSession) synthesize(seq uint64, text string) ([]int16, int, error) {
	res, err := s.dispatch(dispatch.Task{
		SessionID: s.sessionID,
		Seq:       seq,
		Kind:      dispatch.KindSynthesize,
		Ctx:       s.ctx,
		Run: func(ctx context.Context) (any, error) {
			pcm, rate, err := s.tts.Synthesize(ctx, text)
			if err != nil {
				return nil, err
			}
			return synthesized{pcm: pcm, rate: rate}, nil
		},
	})
	if err != nil {
		return nil, 0, err
	}
	out, ok := res.(synthesized)
	if !ok {
		return nil, 0, shared.ErrSynthesisFailed
	}
	return out.pcm, out.rate, nil
}

// dispatch submits a task and waits for its result. Pool overload sheds the
// session's own oldest queued utterance and retries instead of failing the
// in-flight stage.
func (s *VoiceSession) dispatch(task dispatch.Task) (any, error) {
	var out <-chan dispatch.Result
	for {
		var err error
		out, err = s.pool.Submit(task)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrOverloaded) {
			return nil, err
		}

		select {
		case dropped := <-s.utterances:
			s.log.Warn("pool overloaded, dropping oldest queued utterance", "dropped_seq", dropped.Seq)
		default:
		}
		select {
		case <-s.ctx.Done():
			return nil, s.ctx.Err()
		case <-time.After(overloadRetryDelay):
		}
	}

	select {
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	case res := <-out:
		return res.Value, res.Err
	}
}

func (s *VoiceSession) send(msg transport.ServerMessage) error {
	if err := s.conn.Send(s.ctx, msg); err != nil {
		s.log.Debug("send failed", "type", msg.Type, "error", err)
		return err
	}
	return nil
}

func (s *VoiceSession) sendError(message string) {
	s.send(transport.ServerMessage{
		Type:    transport.MessageTypeError,
		Message: message,
	})
}
