// Package redis publishes closed bars and risk decisions to Redis Streams so
// out-of-process consumers (executors, dashboards) can tail them. Streams are
// trimmed to a bounded window; the engine runs fine without Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"trading-corev1/internal/model"
)

const (
	// ~3h of bars per stream, whatever the timeframe.
	barWindowSeconds = 10800

	decisionMaxLen   = 1000
	defaultLatestTTL = 30 * time.Minute
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes bars and decisions to Redis.
type Publisher struct {
	client *goredis.Client
	log    zerolog.Logger
}

// New creates a Publisher and pings the server.
func New(cfg Config, log zerolog.Logger) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	l := log.With().Str("component", "redis").Logger()
	l.Info().Str("addr", cfg.Addr).Msg("connected")
	return &Publisher{client: client, log: l}, nil
}

// Client returns the underlying client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// RunBars drains the closed-bar channel into Redis.
// Blocks until ctx is cancelled or the channel is closed.
func (p *Publisher) RunBars(ctx context.Context, bars <-chan model.Bar) {
	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-bars:
			if !ok {
				return
			}
			p.publishBar(ctx, bar)
		}
	}
}

// RunDecisions drains the decision channel into Redis.
// Blocks until ctx is cancelled or the channel is closed.
func (p *Publisher) RunDecisions(ctx context.Context, decisions <-chan model.RiskDecision) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-decisions:
			if !ok {
				return
			}
			p.publishDecision(ctx, d)
		}
	}
}

// publishBar does XADD + SET latest + PUBLISH in one pipeline roundtrip.
func (p *Publisher) publishBar(ctx context.Context, bar model.Bar) {
	streamKey := bar.StreamKey()

	// proportional trim: ~3h of bars at this timeframe
	maxLen := int64(barWindowSeconds/bar.TF) + 100
	if maxLen < 200 {
		maxLen = 200
	}

	jsonData := string(bar.JSON())
	latestKey := "bar:" + model.TFLabel(bar.TF) + ":latest:" + bar.Instrument

	pipe := p.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, "pub:"+streamKey, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Error().Err(err).Str("stream", streamKey).Msg("bar pipeline error")
	}
}

// publishDecision does XADD + PUBLISH for a risk decision.
func (p *Publisher) publishDecision(ctx context.Context, d model.RiskDecision) {
	streamKey := d.StreamKey()
	jsonData := string(d.JSON())

	pipe := p.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: decisionMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Publish(ctx, "pub:"+streamKey, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Error().Err(err).Str("stream", streamKey).Msg("decision pipeline error")
	}
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
