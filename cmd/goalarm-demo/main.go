// goalarm-demo schedules a burst of one-shot alarms from concurrent workers,
// cancels a slice of them, and reports what fired.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/shaovie/goalarm"
)

// config holds the demo workload parameters.
type config struct {
	// Count is how many alarms to schedule.
	Count int `yaml:"count"`
	// SpreadUs is the maximum relative deadline, in microseconds.
	SpreadUs uint64 `yaml:"spread_us"`
	// Workers is the scheduling pool size.
	Workers int `yaml:"workers"`
	// CancelEvery cancels one of every N scheduled alarms (0 disables).
	CancelEvery int `yaml:"cancel_every"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

func defaultConfig() config {
	return config{
		Count:       1000,
		SpreadUs:    500_000,
		Workers:     8,
		CancelEvery: 4,
		LogLevel:    "info",
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Count < 1 || cfg.SpreadUs < 1 || cfg.Workers < 1 {
		return cfg, fmt.Errorf("config: count, spread_us and workers must be positive")
	}
	return cfg, nil
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "goalarm-demo",
	Short: "Exercise the goalarm one-shot timer service.",
	Long: `Schedules a configurable burst of one-shot alarms from a worker pool,
cancels a subset of them mid-flight, and prints firing statistics.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		return run(cfg)
	},
}

func run(cfg config) error {
	level := zapcore.InfoLevel
	_ = level.Set(cfg.LogLevel)
	zl, err := zap.NewDevelopment(zap.IncreaseLevel(level))
	if err != nil {
		return err
	}
	log := zl.Sugar()
	defer log.Sync()

	if err := goalarm.Init(goalarm.Logger(log)); err != nil {
		return err
	}
	defer goalarm.Cleanup()

	var fired, cancelled atomic.Int64
	onAlarm := func(arg any) { fired.Add(1) }

	pool := goalarm.NewGoPool(cfg.Workers)
	start := time.Now()
	for i := 0; i < cfg.Count; i++ {
		id := i
		pool.Go(func() {
			delay := 1 + uint64(rand.Int63n(int64(cfg.SpreadUs)))
			if err := goalarm.Set(delay, onAlarm, id); err != nil {
				log.Errorw("set failed", "id", id, "err", err)
				return
			}
			if cfg.CancelEvery > 0 && id%cfg.CancelEvery == 0 {
				if n, err := goalarm.Cancel(onAlarm, id); err == nil {
					cancelled.Add(int64(n))
				}
			}
		})
	}

	deadline := time.Now().Add(time.Duration(cfg.SpreadUs)*time.Microsecond + 2*time.Second)
	for time.Now().Before(deadline) {
		// A cancel that waited out a running callback is counted on both
		// sides, so the sum can slightly exceed the schedule count.
		if fired.Load()+cancelled.Load() >= int64(cfg.Count) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	log.Infow("workload finished",
		"scheduled", cfg.Count,
		"fired", fired.Load(),
		"cancelled", cancelled.Load(),
		"elapsed", time.Since(start),
	)
	if fired.Load()+cancelled.Load() < int64(cfg.Count) {
		return fmt.Errorf("lost alarms: fired=%d cancelled=%d of %d",
			fired.Load(), cancelled.Load(), cfg.Count)
	}
	return nil
}

func main() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML workload config")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
