package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/tailscale/hujson"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates,
// and unmarshals it over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes JSONC bytes into a Config. Fields absent from the input
// keep their default value.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvTemplates(string(data))

	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(std, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills fields that an explicit zero would leave unusable.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = def.Gateway.Host
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = def.Gateway.Port
	}
	if cfg.Events.BufferSize <= 0 {
		cfg.Events.BufferSize = def.Events.BufferSize
	}
	if cfg.Events.LogLevel == "" {
		cfg.Events.LogLevel = def.Events.LogLevel
	}
	if cfg.Streaming.LongWordLength <= 0 {
		cfg.Streaming.LongWordLength = def.Streaming.LongWordLength
	}
	if cfg.Cache.Duration <= 0 {
		cfg.Cache.Duration = def.Cache.Duration
	}
	if cfg.Network.RetryMaxDelay <= 0 {
		cfg.Network.RetryMaxDelay = def.Network.RetryMaxDelay
	}
	if cfg.Network.RateLimit.Window <= 0 {
		cfg.Network.RateLimit.Window = def.Network.RateLimit.Window
	}
}

// Validate reports every out-of-range setting.
func Validate(cfg *Config) error {
	var errs []error
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port: %d out of range", cfg.Gateway.Port))
	}

	s := cfg.Streaming
	if s.Slow <= 0 || s.Normal <= 0 || s.Fast <= 0 {
		errs = append(errs, errors.New("streaming: speeds must be positive"))
	}
	if s.SentencePause < 0 || s.ClausePause < 0 || s.LongWordFactor < 0 || s.CodeLineFactor < 0 {
		errs = append(errs, errors.New("streaming: pause factors must not be negative"))
	}
	if s.Jitter < 0 {
		errs = append(errs, errors.New("streaming.jitter: must not be negative"))
	}

	n := cfg.Network
	if n.SlowChance < 0 || n.SlowChance > 1 {
		errs = append(errs, fmt.Errorf("network.slow_chance: %v not in [0,1]", n.SlowChance))
	}
	if n.FailChance < 0 || n.FailChance > 1 {
		errs = append(errs, fmt.Errorf("network.fail_chance: %v not in [0,1]", n.FailChance))
	}
	if n.SlowDelay.Min < 0 || n.SlowDelay.Min > n.SlowDelay.Max {
		errs = append(errs, fmt.Errorf("network.slow_delay: min %s greater than max %s",
			n.SlowDelay.Min.Duration(), n.SlowDelay.Max.Duration()))
	}
	if n.BaseDelay < 0 {
		errs = append(errs, errors.New("network.base_delay: must not be negative"))
	}
	if n.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("network.retry_attempts: %d is negative", n.RetryAttempts))
	}
	if n.RateLimit.Requests < 0 {
		errs = append(errs, fmt.Errorf("network.rate_limit.requests: %d is negative", n.RateLimit.Requests))
	}

	if cfg.Cache.MaxResponses < 0 {
		errs = append(errs, fmt.Errorf("cache.max_responses: %d is negative", cfg.Cache.MaxResponses))
	}
	if cfg.Conversation.GreetingDelay < 0 || cfg.Conversation.ResponseDelay < 0 {
		errs = append(errs, errors.New("conversation: delays must not be negative"))
	}
	return errors.Join(errs...)
}
