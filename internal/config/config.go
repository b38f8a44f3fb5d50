package config

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/rpggio/evtrack/internal/domain/calculator"
	"github.com/rpggio/evtrack/internal/domain/simulation"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Calc      CalcConfig      `yaml:"calc"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// Files are task list definition files registered at startup.
	Files []string `yaml:"files"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// CalcConfig holds the recalculation options.
type CalcConfig struct {
	ForecastMethod        string  `yaml:"forecast_method"`
	Confidence            float64 `yaml:"confidence"`
	AlmostDonePct         float64 `yaml:"almost_done_pct"`
	MaxCPICorrection      float64 `yaml:"max_cpi_correction"`
	ReorderCompletedTasks bool    `yaml:"reorder_completed_tasks"`
	RezeroAtStartDate     bool    `yaml:"rezero_at_start_date"`
	SimulationSamples     int     `yaml:"simulation_samples"`
	// EffectiveDate fixes the "as of" date of every recalculation.
	EffectiveDate time.Time `yaml:"effective_date"`
	// Seed fixes the simulation's random sequence when non-zero.
	Seed uint64 `yaml:"seed"`
}

type TelemetryConfig struct {
	// TextfilePath receives the metrics in Prometheus text format after
	// one-shot commands. Empty disables it.
	TextfilePath string `yaml:"textfile_path"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	def := calculator.DefaultOptions()
	return Config{
		DB: DBConfig{
			Path: "evtrack.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Calc: CalcConfig{
			ForecastMethod:        string(def.ForecastMethod),
			Confidence:            def.Confidence,
			AlmostDonePct:         def.AlmostDonePct,
			ReorderCompletedTasks: def.ReorderCompletedTasks,
			RezeroAtStartDate:     def.RezeroAtStartDate,
			SimulationSamples:     simulation.DefaultBaseSamples,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("EVTRACK_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if dbPath := os.Getenv("EVTRACK_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("EVTRACK_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("EVTRACK_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if method := os.Getenv("EVTRACK_FORECAST_METHOD"); method != "" {
		cfg.Calc.ForecastMethod = method
	}
	if confStr := os.Getenv("EVTRACK_CONFIDENCE"); confStr != "" {
		conf, err := strconv.ParseFloat(confStr, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid EVTRACK_CONFIDENCE: %w", err)
		}
		cfg.Calc.Confidence = conf
	}
	if samplesStr := os.Getenv("EVTRACK_SIMULATION_SAMPLES"); samplesStr != "" {
		samples, err := strconv.Atoi(samplesStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid EVTRACK_SIMULATION_SAMPLES: %w", err)
		}
		cfg.Calc.SimulationSamples = samples
	}
	if dateStr := os.Getenv("EVTRACK_EFFECTIVE_DATE"); dateStr != "" {
		date, err := ParseDate(dateStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid EVTRACK_EFFECTIVE_DATE: %w", err)
		}
		cfg.Calc.EffectiveDate = date
	}
	if textfile := os.Getenv("EVTRACK_TEXTFILE_PATH"); textfile != "" {
		cfg.Telemetry.TextfilePath = textfile
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that can not be corrected silently.
func (c Config) Validate() error {
	if c.Calc.SimulationSamples < 0 {
		return fmt.Errorf("simulation samples must not be negative, got %d", c.Calc.SimulationSamples)
	}
	if _, err := calculator.ParseForecastMethod(c.Calc.ForecastMethod); err != nil {
		return err
	}
	if c.Calc.Confidence <= 0 || c.Calc.Confidence >= 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %v", c.Calc.Confidence)
	}
	return nil
}

// CalculatorOptions builds the recalculation options.
func (c Config) CalculatorOptions(logger *slog.Logger) (calculator.Options, error) {
	method, err := calculator.ParseForecastMethod(c.Calc.ForecastMethod)
	if err != nil {
		return calculator.Options{}, err
	}
	simOpts := simulation.Options{BaseSamples: c.Calc.SimulationSamples, Logger: logger}
	if c.Calc.Seed != 0 {
		simOpts.Rand = rand.New(rand.NewPCG(c.Calc.Seed, c.Calc.Seed))
	}
	return calculator.Options{
		ReorderCompletedTasks: c.Calc.ReorderCompletedTasks,
		RezeroAtStartDate:     c.Calc.RezeroAtStartDate,
		EffectiveDate:         c.Calc.EffectiveDate,
		ForecastMethod:        method,
		Confidence:            c.Calc.Confidence,
		AlmostDonePct:         c.Calc.AlmostDonePct,
		MaxCPICorrection:      c.Calc.MaxCPICorrection,
		Engine:                simulation.NewEngine(simOpts),
		Logger:                logger,
	}, nil
}

// ParseDate accepts RFC 3339 times and plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
