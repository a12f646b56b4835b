// Package feed provides tick sources for the pipeline manager: a WebSocket
// client for live JSON tick streams and a deterministic simulator for local
// runs and integration tests. Both push into anything implementing Sink,
// normally *pipeline.Manager.
package feed

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trading-corev1/internal/model"
)

// Sink receives normalized ticks. Push must never block.
type Sink interface {
	Push(model.Tick)
}

// WSConfig holds configuration for the WebSocket feed.
type WSConfig struct {
	// URL of the tick WebSocket server, e.g. "ws://localhost:9001/ws"
	URL string

	// ReconnectDelay is the initial delay before reconnection attempts.
	// Defaults to 2 seconds if zero.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff. Defaults to 30s.
	MaxReconnectDelay time.Duration
}

func (c *WSConfig) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// WS connects to a plain-JSON WebSocket tick server and pushes model.Tick
// values into the sink. The wire format is model.Tick's JSON encoding.
type WS struct {
	cfg WSConfig
	log zerolog.Logger

	// Optional hook, called each time a reconnection happens.
	OnReconnect func()
}

// NewWS creates a WebSocket feed. Returns an error if the URL is unparseable.
func NewWS(cfg WSConfig, log zerolog.Logger) (*WS, error) {
	cfg.defaults()
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, err
	}
	return &WS{cfg: cfg, log: log.With().Str("component", "feed.ws").Logger()}, nil
}

// Start streams ticks into the sink. Blocks until ctx is cancelled.
// Reconnects automatically on disconnect with exponential backoff.
func (w *WS) Start(ctx context.Context, sink Sink) error {
	delay := w.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := w.runOnce(ctx, sink)
		if err == nil {
			return nil
		}

		w.log.Warn().Err(err).Dur("retry_in", delay).Msg("disconnected, reconnecting")
		if w.OnReconnect != nil {
			w.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > w.cfg.MaxReconnectDelay {
			delay = w.cfg.MaxReconnectDelay
		}
	}
}

// runOnce makes a single connection attempt and reads until disconnect or
// ctx cancellation.
func (w *WS) runOnce(ctx context.Context, sink Sink) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	w.log.Info().Str("url", w.cfg.URL).Msg("connected")

	// Closes the connection when ctx is cancelled so ReadMessage unblocks.
	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		var tick model.Tick
		if err := json.Unmarshal(raw, &tick); err != nil {
			w.log.Warn().Err(err).Bytes("raw", raw).Msg("parse error, skipping")
			continue
		}
		if tick.Instrument == "" {
			w.log.Warn().Msg("skipping tick with empty instrument")
			continue
		}
		if tick.TS.IsZero() {
			tick.TS = time.Now().UTC()
		}

		sink.Push(tick)
	}
}
