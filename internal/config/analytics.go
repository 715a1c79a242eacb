package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
)

const analyticsEnvPrefix = "ANALYTICS"

// AnalyticsProvider owns the current engine snapshot. Reloads build a new
// engine and swap it in atomically, so a computation that already holds an
// engine keeps reading the configuration it started with.
type AnalyticsProvider struct {
	v         *viper.Viper
	hasFile   bool
	rulesPath string
	opts      []analytics.Option
	logger    *slog.Logger

	engine atomic.Pointer[analytics.Engine]

	mu       sync.Mutex
	onReload []func(*analytics.Engine)
}

// NewAnalyticsProvider layers code defaults, the optional YAML/JSON file at
// configPath and ANALYTICS_* environment overrides, then builds the first
// engine. Any invalid configuration is returned as an error.
func NewAnalyticsProvider(configPath, rulesPath string, logger *slog.Logger, opts ...analytics.Option) (*AnalyticsProvider, error) {
	v := viper.New()
	if err := setDefaults(v, analytics.DefaultConfig()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(analyticsEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	p := &AnalyticsProvider{
		v:         v,
		rulesPath: rulesPath,
		opts:      opts,
		logger:    logger,
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read analytics config %s: %w", configPath, err)
		}
		p.hasFile = true
		logger.Info("Loaded analytics config file", "path", v.ConfigFileUsed())
	}

	engine, err := p.build()
	if err != nil {
		return nil, err
	}
	p.engine.Store(engine)
	return p, nil
}

// Engine returns the current snapshot
func (p *AnalyticsProvider) Engine() *analytics.Engine {
	return p.engine.Load()
}

// OnReload registers a callback invoked after every successful reload
func (p *AnalyticsProvider) OnReload(fn func(*analytics.Engine)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onReload = append(p.onReload, fn)
}

// Reload re-reads the file and rule table. On failure the previous engine
// stays active and the error is returned.
func (p *AnalyticsProvider) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasFile {
		if err := p.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to re-read analytics config: %w", err)
		}
	}

	engine, err := p.build()
	if err != nil {
		return err
	}
	p.engine.Store(engine)

	for _, fn := range p.onReload {
		fn(engine)
	}
	return nil
}

// Watch reloads the engine whenever the config file changes. It is a no-op
// without a config file.
func (p *AnalyticsProvider) Watch() {
	if !p.hasFile {
		return
	}
	p.v.OnConfigChange(func(e fsnotify.Event) {
		if err := p.Reload(); err != nil {
			p.logger.Error("Analytics config reload rejected, keeping previous configuration",
				"file", e.Name, "error", err)
			return
		}
		p.logger.Info("Analytics config reloaded", "file", e.Name)
	})
	p.v.WatchConfig()
}

func (p *AnalyticsProvider) build() (*analytics.Engine, error) {
	var cfg analytics.Config
	if err := p.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode analytics config: %w", err)
	}

	rules, err := p.loadRules()
	if err != nil {
		return nil, err
	}

	engine, err := analytics.New(cfg, rules, p.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build analytics engine: %w", err)
	}
	return engine, nil
}

func (p *AnalyticsProvider) loadRules() (*analytics.Rules, error) {
	if p.rulesPath == "" {
		return analytics.DefaultRules()
	}
	rules, err := analytics.LoadRules(p.rulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules %s: %w", p.rulesPath, err)
	}
	return rules, nil
}

// setDefaults registers every leaf of cfg as a viper default so that
// AutomaticEnv can override any individual key.
func setDefaults(v *viper.Viper, cfg analytics.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode analytics defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("failed to decode analytics defaults: %w", err)
	}
	flatten(v, "", tree)
	return nil
}

func flatten(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		// subject thresholds are a free-form map, keep them whole
		if nested, ok := value.(map[string]interface{}); ok && full != "scoring.subject_thresholds" {
			flatten(v, full, nested)
			continue
		}
		v.SetDefault(full, value)
	}
}
