package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	DB          DBConfig          `mapstructure:"db"`
	Cron        CronConfig        `mapstructure:"cron"`
	Retention   RetentionConfig   `mapstructure:"retention"`
	Engine      EngineConfig      `mapstructure:"engine"`
	MonteCarlo  MonteCarloConfig  `mapstructure:"monte_carlo"`
	Constraints ConstraintsConfig `mapstructure:"constraints"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Retention string `mapstructure:"retention"`
}

type RetentionConfig struct {
	// MaxRunAge is how long finished simulation runs are kept before the
	// retention job purges them.
	MaxRunAge time.Duration `mapstructure:"max_run_age"`
}

// EngineConfig holds the waterfall execution defaults.
type EngineConfig struct {
	// DistributionFeeRate is taken off gross revenue before anything enters
	// the waterfall.
	DistributionFeeRate float64 `mapstructure:"distribution_fee_rate"`
	// CarryForward rolls a period's unallocated residual into the next
	// period instead of losing it to the studio.
	CarryForward           bool   `mapstructure:"carry_forward"`
	DefaultReleaseStrategy string `mapstructure:"default_release_strategy"`
}

type MonteCarloConfig struct {
	Iterations int     `mapstructure:"iterations"`
	BatchSize  int     `mapstructure:"batch_size"`
	Workers    int     `mapstructure:"workers"`
	Sigma      float64 `mapstructure:"sigma"`
}

type ConstraintsConfig struct {
	MaxDebtToEquity float64 `mapstructure:"max_debt_to_equity"`
	MinEquityPct    float64 `mapstructure:"min_equity_pct"`
}

type ScoringConfig struct {
	IRRRef        float64 `mapstructure:"irr_ref"`
	CostRef       float64 `mapstructure:"cost_ref"`
	TaxRef        float64 `mapstructure:"tax_ref"`
	RiskSpreadRef float64 `mapstructure:"risk_spread_ref"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.retention", "@every 6h")
	v.SetDefault("retention.max_run_age", "168h")
	v.SetDefault("engine.distribution_fee_rate", 0.30)
	v.SetDefault("engine.carry_forward", false)
	v.SetDefault("engine.default_release_strategy", "wide_theatrical")
	v.SetDefault("monte_carlo.iterations", 1000)
	v.SetDefault("monte_carlo.batch_size", 100)
	v.SetDefault("monte_carlo.workers", 4)
	v.SetDefault("monte_carlo.sigma", 0.35)
	v.SetDefault("constraints.max_debt_to_equity", 2.0)
	v.SetDefault("constraints.min_equity_pct", 0.10)
	v.SetDefault("scoring.irr_ref", 0.40)
	v.SetDefault("scoring.cost_ref", 0.20)
	v.SetDefault("scoring.tax_ref", 0.30)
	v.SetDefault("scoring.risk_spread_ref", 0.60)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
