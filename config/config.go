// Package config exposes strongly typed engine configuration loaded from
// YAML, with defaults, struct validation, and env overrides for infra
// addresses and secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name" default:"signal-engine"`
	Env         string `yaml:"env" default:"dev" validate:"oneof=dev staging prod"`
	LogLevel    string `yaml:"log_level" default:"info"`
	LogPretty   bool   `yaml:"log_pretty"`
	MetricsAddr string `yaml:"metrics_addr" default:":9100"`
}

// Feed selects and configures the tick source.
type Feed struct {
	Mode string `yaml:"mode" default:"sim" validate:"oneof=sim ws"`

	// WS feed.
	URL               string        `yaml:"url"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay" default:"2s"`
	MaxReconnectDelay time.Duration `yaml:"max_reconnect_delay" default:"30s"`

	// Simulator.
	SimStartPrice float64 `yaml:"sim_start_price" default:"100"`
	SimVolatility float64 `yaml:"sim_volatility" default:"0.0005"`
	SimIntervalMs int     `yaml:"sim_interval_ms" default:"100"`
	SimSeed       int64   `yaml:"sim_seed"`
}

// Engine holds the per-instrument pipeline parameters.
type Engine struct {
	Instruments []string `yaml:"instruments" validate:"min=1"`

	// Timeframes in seconds, ascending; the first drives signal evaluation.
	Timeframes []int `yaml:"timeframes" default:"[60,300,900]" validate:"min=1"`

	RingSize       int           `yaml:"ring_size" default:"4096"`
	RingPolicy     string        `yaml:"ring_policy" default:"drop_oldest" validate:"oneof=drop_oldest drop_newest"`
	ReorderWindow  time.Duration `yaml:"reorder_window" default:"2s"`
	MaxBuffered    int           `yaml:"max_buffered" default:"1024"`
	PollIntervalMs int           `yaml:"poll_interval_ms" default:"1"`
	DecisionBuf    int           `yaml:"decision_buf" default:"64"`
}

// Indicators configures the per-timeframe indicator set.
type Indicators struct {
	FastPeriod  int `yaml:"fast_period" default:"20" validate:"gt=0"`
	SlowPeriod  int `yaml:"slow_period" default:"50" validate:"gt=0"`
	EMAPeriod   int `yaml:"ema_period" default:"20" validate:"gt=0"`
	SMMAPeriod  int `yaml:"smma_period" default:"7" validate:"gt=0"`
	RSIPeriod   int `yaml:"rsi_period" default:"14" validate:"gt=0"`
	ATRPeriod   int `yaml:"atr_period" default:"14" validate:"gt=0"`
	MACDFast    int `yaml:"macd_fast" default:"12" validate:"gt=0"`
	MACDSlow    int `yaml:"macd_slow" default:"26" validate:"gt=0"`
	MACDSignal  int `yaml:"macd_signal" default:"9" validate:"gt=0"`
	HistoryBars int `yaml:"history_bars" default:"64" validate:"gt=0"`

	LevelWindow    int     `yaml:"level_window" default:"5" validate:"gt=0"`
	LevelTolerance float64 `yaml:"level_tolerance" default:"0.0025" validate:"gt=0"`
	LevelMaxActive int     `yaml:"level_max_active" default:"16" validate:"gt=0"`
}

// Trend configures the classifier.
type Trend struct {
	SidewaysBand     float64 `yaml:"sideways_band" default:"0.1" validate:"gt=0"`
	StrengthScale    float64 `yaml:"strength_scale" default:"4.0" validate:"gt=0"`
	PatternLookback  int     `yaml:"pattern_lookback" default:"32" validate:"gt=0"`
	PatternTolerance float64 `yaml:"pattern_tolerance" default:"0.0025" validate:"gt=0"`
}

// Signals configures the signal generator FSM.
type Signals struct {
	MinStrength  float64         `yaml:"min_strength" default:"0.3" validate:"gte=0,lte=1"`
	Majority     float64         `yaml:"majority" default:"0.6" validate:"gt=0,lte=1"`
	DebounceBars int             `yaml:"debounce_bars" default:"3" validate:"gt=0"`
	CooldownBars int             `yaml:"cooldown_bars" default:"5" validate:"gte=0"`
	Weights      map[int]float64 `yaml:"weights"`
}

// Risk encodes the sizer guard-rails and account inputs.
type Risk struct {
	Equity              float64 `yaml:"equity" validate:"gt=0"`
	RiskFraction        float64 `yaml:"risk_fraction" default:"0.01" validate:"gt=0,lte=0.1"`
	RewardMultiple      float64 `yaml:"reward_multiple" default:"2.0" validate:"gt=0"`
	MinRiskReward       float64 `yaml:"min_risk_reward" default:"1.5" validate:"gt=0"`
	MinUnit             float64 `yaml:"min_unit" default:"1"`
	MaxExposureFraction float64 `yaml:"max_exposure_fraction" default:"0.5"`
}

// Redis configures the optional stream publisher.
type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SQLite configures the optional bar/decision journal.
type SQLite struct {
	Enabled    bool          `yaml:"enabled"`
	Path       string        `yaml:"path" default:"data/engine.db"`
	BatchSize  int           `yaml:"batch_size" default:"100"`
	FlushDelay time.Duration `yaml:"flush_delay" default:"200ms"`
}

// Config collects every configuration leaf.
type Config struct {
	App        App        `yaml:"app"`
	Feed       Feed       `yaml:"feed"`
	Engine     Engine     `yaml:"engine"`
	Indicators Indicators `yaml:"indicators"`
	Trend      Trend      `yaml:"trend"`
	Signals    Signals    `yaml:"signals"`
	Risk       Risk       `yaml:"risk"`
	Redis      Redis      `yaml:"redis"`
	SQLite     SQLite     `yaml:"sqlite"`
}

// Load reads a YAML file, applies defaults, env overrides, and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.applyEnv()

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := c.check(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// applyEnv overrides infra addresses and secrets from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("INSTRUMENTS"); v != "" {
		c.Engine.Instruments = strings.Split(v, ",")
	}
	if v := os.Getenv("FEED_MODE"); v != "" {
		c.Feed.Mode = v
	}
	if v := os.Getenv("FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLite.Path = v
		c.SQLite.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
	if v := os.Getenv("EQUITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Risk.Equity = f
		}
	}
}

// check covers cross-field rules the struct tags cannot express.
func (c *Config) check() error {
	for i := 1; i < len(c.Engine.Timeframes); i++ {
		if c.Engine.Timeframes[i] <= c.Engine.Timeframes[i-1] {
			return fmt.Errorf("timeframes must be strictly ascending, got %v", c.Engine.Timeframes)
		}
	}
	for _, tf := range c.Engine.Timeframes {
		if tf <= 0 {
			return fmt.Errorf("timeframe %d must be positive", tf)
		}
	}
	if c.Indicators.FastPeriod >= c.Indicators.SlowPeriod {
		return fmt.Errorf("fast_period %d must be below slow_period %d",
			c.Indicators.FastPeriod, c.Indicators.SlowPeriod)
	}
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return fmt.Errorf("macd_fast %d must be below macd_slow %d",
			c.Indicators.MACDFast, c.Indicators.MACDSlow)
	}
	if c.Feed.Mode == "ws" && c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required in ws mode")
	}
	return nil
}
