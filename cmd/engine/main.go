// Command engine runs the market analysis pipeline: tick feed → per-instrument
// pipelines (ingest → bars → indicators → trend → signals → risk) → decision
// sinks (Redis streams, SQLite journal).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"trading-corev1/config"
	"trading-corev1/internal/bus"
	"trading-corev1/internal/classify"
	"trading-corev1/internal/feed"
	"trading-corev1/internal/indicator"
	"trading-corev1/internal/ingest"
	"trading-corev1/internal/logging"
	"trading-corev1/internal/metrics"
	"trading-corev1/internal/model"
	"trading-corev1/internal/pipeline"
	"trading-corev1/internal/risk"
	"trading-corev1/internal/signalgen"
	redisstore "trading-corev1/internal/store/redis"
	sqlitestore "trading-corev1/internal/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logging.New("info", true)
		bootLog.Fatal().Err(err).Msg("config load failed")
	}

	log := logging.New(cfg.App.LogLevel, cfg.App.LogPretty)
	log.Info().Str("env", cfg.App.Env).Strs("instruments", cfg.Engine.Instruments).
		Ints("timeframes", cfg.Engine.Timeframes).Msg("starting")

	met, reg := metrics.New()
	metricsSrv := metrics.NewServer(cfg.App.MetricsAddr, reg)
	metricsSrv.Start()
	defer metricsSrv.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Pipeline arena ----
	mgr := pipeline.NewManager(pipelineConfig(cfg), cfg.Engine.DecisionBuf, log, met)
	for _, ins := range cfg.Engine.Instruments {
		mgr.Start(ins)
	}

	// ---- Sinks ----
	var wg sync.WaitGroup

	decisionBus := bus.New[model.RiskDecision](cfg.Engine.DecisionBuf)
	decisionBus.OnDrop = func(int) { met.DecisionDrops.Inc() }
	barBus := bus.New[model.Bar](4 * cfg.Engine.DecisionBuf)

	logCh := decisionBus.Subscribe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for d := range logCh {
			log.Info().
				Str("instrument", d.Signal.Instrument).
				Str("action", string(d.Signal.Action)).
				Str("verdict", string(d.Verdict)).
				Str("reason", d.Reason).
				Float64("size", d.Size).
				Float64("confidence", d.Signal.Confidence).
				Msg("decision")
		}
	}()

	if cfg.Redis.Enabled {
		pub, err := redisstore.New(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis init failed, continuing without redis")
		} else {
			defer pub.Close()
			decCh, barCh := decisionBus.Subscribe(), barBus.Subscribe()
			wg.Add(2)
			go func() { defer wg.Done(); pub.RunDecisions(ctx, decCh) }()
			go func() { defer wg.Done(); pub.RunBars(ctx, barCh) }()
		}
	}

	if cfg.SQLite.Enabled {
		_ = os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755)
		journal, err := sqlitestore.New(sqlitestore.Config{
			DBPath:     cfg.SQLite.Path,
			BatchSize:  cfg.SQLite.BatchSize,
			FlushDelay: cfg.SQLite.FlushDelay,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("sqlite init failed")
		}
		defer journal.Close()
		decCh, barCh := decisionBus.Subscribe(), barBus.Subscribe()
		wg.Add(2)
		go func() { defer wg.Done(); journal.RunDecisions(ctx, decCh) }()
		go func() { defer wg.Done(); journal.RunBars(ctx, barCh) }()
	}

	wg.Add(2)
	go func() { defer wg.Done(); decisionBus.Run(ctx, mgr.Decisions()) }()
	go func() { defer wg.Done(); barBus.Run(ctx, mgr.Bars()) }()

	// ---- Feed ----
	wg.Add(1)
	go func() {
		defer wg.Done()
		switch cfg.Feed.Mode {
		case "ws":
			ws, err := feed.NewWS(feed.WSConfig{
				URL:               cfg.Feed.URL,
				ReconnectDelay:    cfg.Feed.ReconnectDelay,
				MaxReconnectDelay: cfg.Feed.MaxReconnectDelay,
			}, log)
			if err != nil {
				log.Error().Err(err).Msg("ws feed init failed")
				cancel()
				return
			}
			_ = ws.Start(ctx, mgr)
		default:
			sim := feed.NewSim(feed.SimConfig{
				Instruments: cfg.Engine.Instruments,
				StartPrice:  cfg.Feed.SimStartPrice,
				Volatility:  cfg.Feed.SimVolatility,
				Interval:    time.Duration(cfg.Feed.SimIntervalMs) * time.Millisecond,
				Seed:        cfg.Feed.SimSeed,
			}, log)
			_ = sim.Start(ctx, mgr)
		}
	}()

	<-sigCh
	log.Info().Msg("shutdown signal received")

	cancel()
	mgr.Close()
	wg.Wait()
	log.Info().Msg("stopped")
}

// pipelineConfig maps the YAML leaves onto the pipeline stage configs.
func pipelineConfig(cfg *config.Config) pipeline.Config {
	ind := cfg.Indicators
	fastKey := "sma_" + strconv.Itoa(ind.FastPeriod)
	slowKey := "sma_" + strconv.Itoa(ind.SlowPeriod)
	atrKey := "atr_" + strconv.Itoa(ind.ATRPeriod)

	return pipeline.Config{
		Timeframes:   cfg.Engine.Timeframes,
		RingSize:     cfg.Engine.RingSize,
		RingPolicy:   cfg.Engine.RingPolicy,
		PollInterval: time.Duration(cfg.Engine.PollIntervalMs) * time.Millisecond,
		Ingest: ingest.Config{
			ReorderWindow: cfg.Engine.ReorderWindow,
			MaxBuffered:   cfg.Engine.MaxBuffered,
		},
		Indicator: indicator.Config{
			FastPeriod:  ind.FastPeriod,
			SlowPeriod:  ind.SlowPeriod,
			EMAPeriod:   ind.EMAPeriod,
			SMMAPeriod:  ind.SMMAPeriod,
			RSIPeriod:   ind.RSIPeriod,
			ATRPeriod:   ind.ATRPeriod,
			MACDFast:    ind.MACDFast,
			MACDSlow:    ind.MACDSlow,
			MACDSignal:  ind.MACDSignal,
			HistoryBars: ind.HistoryBars,
			Levels: indicator.LevelConfig{
				Window:    ind.LevelWindow,
				Tolerance: ind.LevelTolerance,
				MaxActive: ind.LevelMaxActive,
			},
		},
		Classify: classify.Config{
			FastKey:          fastKey,
			SlowKey:          slowKey,
			ATRKey:           atrKey,
			SidewaysBand:     cfg.Trend.SidewaysBand,
			StrengthScale:    cfg.Trend.StrengthScale,
			PatternLookback:  cfg.Trend.PatternLookback,
			PatternTolerance: cfg.Trend.PatternTolerance,
		},
		Signal: signalgen.Config{
			Timeframes:   cfg.Engine.Timeframes,
			Weights:      cfg.Signals.Weights,
			MinStrength:  cfg.Signals.MinStrength,
			Majority:     cfg.Signals.Majority,
			DebounceBars: cfg.Signals.DebounceBars,
			CooldownBars: cfg.Signals.CooldownBars,
		},
		Risk: risk.Config{
			RewardMultiple:      cfg.Risk.RewardMultiple,
			MinRiskReward:       cfg.Risk.MinRiskReward,
			MinUnit:             cfg.Risk.MinUnit,
			MaxExposureFraction: cfg.Risk.MaxExposureFraction,
		},
		Equity:       cfg.Risk.Equity,
		RiskFraction: cfg.Risk.RiskFraction,
	}
}
