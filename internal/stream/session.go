package stream

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kpatel2913/Faceable/internal/bus"
	"github.com/kpatel2913/Faceable/internal/canvas"
	"github.com/kpatel2913/Faceable/internal/engine"
	"github.com/kpatel2913/Faceable/internal/metrics"
)

// limiterBurst frames may arrive back to back before the cap applies.
const limiterBurst = 3

// SessionConfig is the per-stream configuration, captured when the stream opens.
type SessionConfig struct {
	Engine  engine.Config
	Tools   []canvas.Tool
	Palette []string
	MaxFPS  float64 // 0 disables the cap
}

// Session is one connected frame stream: an Engine feeding a canvas. Not
// safe for concurrent use; the server drives each session from its read loop.
type Session struct {
	ID string

	cfg     SessionConfig
	engine  *engine.Engine
	canvas  *canvas.Session
	limiter *rate.Limiter
	bus     *bus.EventBus
	logger  zerolog.Logger

	epoch time.Time
}

// NewSession creates a session whose client timestamps count from epoch.
func NewSession(cfg SessionConfig, b *bus.EventBus, logger zerolog.Logger, epoch time.Time) *Session {
	id := uuid.New().String()

	var limiter *rate.Limiter
	if cfg.MaxFPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxFPS), limiterBurst)
	}

	return &Session{
		ID:      id,
		cfg:     cfg,
		engine:  engine.New(cfg.Engine),
		canvas:  canvas.NewSession(cfg.Tools, cfg.Palette),
		limiter: limiter,
		bus:     b,
		logger:  logger.With().Str("session", id).Logger(),
		epoch:   epoch,
	}
}

// Hello is the greeting sent when the stream opens.
func (s *Session) Hello() HelloMessage {
	return HelloMessage{Type: TypeHello, Session: s.ID, State: s.canvas.Snapshot()}
}

// Snapshot returns the current canvas state.
func (s *Session) Snapshot() canvas.Snapshot {
	return s.canvas.Snapshot()
}

// Stats returns the engine counters.
func (s *Session) Stats() engine.Stats {
	return s.engine.Stats()
}

// Handle processes one decoded client message at wall time now and returns
// the replies to send, in order. Replies to every known message type end with
// an ack carrying the message's sequence number.
func (s *Session) Handle(msg *InboundMessage, now time.Time) []any {
	switch msg.Type {
	case TypeFrame:
		return s.handleFrame(msg, now)
	case TypeReset:
		s.reset()
		return s.stateReply(msg)
	case TypeClear:
		s.canvas.Clear()
		s.logger.Debug().Msg("Canvas cleared")
		return s.stateReply(msg)
	case TypeSelectTool:
		if err := s.canvas.SelectTool(msg.Tool); err != nil {
			return s.rejectReply(msg, err)
		}
		s.logger.Debug().Str("tool", msg.Tool).Msg("Tool selected")
		return s.stateReply(msg)
	case TypeSelectColor:
		if err := s.canvas.SelectColor(msg.Color); err != nil {
			return s.rejectReply(msg, err)
		}
		s.logger.Debug().Str("color", msg.Color).Msg("Colour selected")
		return s.stateReply(msg)
	default:
		return []any{ErrorMessage{Type: TypeError, Message: fmt.Sprintf("unknown message type %q", msg.Type)}}
	}
}

func (s *Session) stateReply(msg *InboundMessage) []any {
	return []any{
		StateMessage{Type: TypeState, State: s.canvas.Snapshot()},
		AckMessage{Type: TypeAck, Sequence: msg.Sequence},
	}
}

func (s *Session) rejectReply(msg *InboundMessage, err error) []any {
	return []any{
		ErrorMessage{Type: TypeError, Message: err.Error()},
		AckMessage{Type: TypeAck, Sequence: msg.Sequence},
	}
}

func (s *Session) handleFrame(msg *InboundMessage, now time.Time) []any {
	if s.limiter != nil && !s.limiter.AllowN(now, 1) {
		s.drop(metrics.ReasonRateLimited)
		return []any{AckMessage{Type: TypeAck, Sequence: msg.Sequence, Dropped: true}}
	}

	in, err := msg.Input(s.epoch, now)
	if err != nil {
		s.drop(metrics.ReasonMalformed)
		return []any{
			ErrorMessage{Type: TypeError, Message: err.Error()},
			AckMessage{Type: TypeAck, Sequence: msg.Sequence, Dropped: true},
		}
	}

	start := time.Now()
	events := s.engine.Process(in)
	metrics.ObserveFrame(time.Since(start))

	ts := float64(in.Timestamp.Sub(s.epoch)) / float64(time.Millisecond)
	replies := make([]any, 0, len(events)+2)
	for _, ev := range events {
		s.bus.PublishSync(bus.FromGesture(s.ID, ev))
		replies = append(replies, EventMessage{Type: TypeEvent, Event: ev, Timestamp: ts})
		if ev.IsDiscrete() {
			s.logger.Debug().Str("event", ev.String()).Float64("timestamp", ts).Msg("Gesture")
		}
	}

	strokes, changed := s.canvas.ApplyAll(events)
	if changed {
		replies = append(replies, StateMessage{Type: TypeState, State: s.canvas.Snapshot(), Strokes: strokes})
	}
	return append(replies, AckMessage{Type: TypeAck, Sequence: msg.Sequence})
}

func (s *Session) reset() {
	s.engine.Reset()
	s.canvas = canvas.NewSession(s.cfg.Tools, s.cfg.Palette)
	s.bus.PublishSync(bus.Event{Type: bus.EventTypeSessionReset, Data: map[string]any{"session": s.ID}})
	s.logger.Info().Msg("Session reset")
}

func (s *Session) drop(reason string) {
	s.bus.PublishSync(bus.Event{
		Type: bus.EventTypeFrameDropped,
		Data: map[string]any{"session": s.ID, "reason": reason},
	})
}
