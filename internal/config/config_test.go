package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpggio/evtrack/internal/domain/calculator"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "evtrack.db", cfg.DB.Path)
	require.Equal(t, "task", cfg.Calc.ForecastMethod)
	require.True(t, cfg.Calc.RezeroAtStartDate)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evtrack.yaml")
	data := []byte(`
db:
  path: /tmp/ev.db
calc:
  forecast_method: schedule
  confidence: 0.8
  seed: 42
files:
  - release.yaml
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("EVTRACK_CONFIG_PATH", path)
	t.Setenv("EVTRACK_SIMULATION_SAMPLES", "250")
	t.Setenv("EVTRACK_EFFECTIVE_DATE", "2026-02-01")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 250, cfg.Calc.SimulationSamples)
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), cfg.Calc.EffectiveDate)
	require.Equal(t, "/tmp/ev.db", cfg.DB.Path)
	require.Equal(t, []string{"release.yaml"}, cfg.Files)
	// Values missing from the file keep their defaults
	require.Equal(t, 0.9, cfg.Calc.AlmostDonePct)

	opts, err := cfg.CalculatorOptions(nil)
	require.NoError(t, err)
	require.Equal(t, calculator.ForecastSchedule, opts.ForecastMethod)
	require.Equal(t, 0.8, opts.Confidence)
	require.Equal(t, cfg.Calc.EffectiveDate, opts.EffectiveDate)
	require.NotNil(t, opts.Engine)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"samples", "EVTRACK_SIMULATION_SAMPLES", "many"},
		{"negative samples", "EVTRACK_SIMULATION_SAMPLES", "-5"},
		{"effective date", "EVTRACK_EFFECTIVE_DATE", "someday"},
		{"forecast method", "EVTRACK_FORECAST_METHOD", "astrology"},
		{"confidence", "EVTRACK_CONFIDENCE", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
