// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gogama/pipex"
	"github.com/gogama/pipex/pipeline"
	"github.com/gogama/pipex/ratelimit"
	"github.com/gogama/pipex/request"
	"github.com/gogama/pipex/retry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// File is the on-disk configuration of a client.
type File struct {
	BaseURL      string            `yaml:"baseURL" env:"BASE_URL"`
	Headers      map[string]string `yaml:"headers"`
	TimeoutMs    int               `yaml:"timeoutMs" env:"TIMEOUT_MS"`
	ResponseType string            `yaml:"responseType" env:"RESPONSE_TYPE"`
	StrictDecode bool              `yaml:"strictDecode" env:"STRICT_DECODE"`
	Retry        RetryConfig       `yaml:"retry" env:"RETRY"`
	RateLimit    RateLimitConfig   `yaml:"rateLimit" env:"RATE_LIMIT"`
	Log          LogConfig         `yaml:"log" env:"LOG"`
}

// RetryConfig configures the retry middleware. Retries of zero
// installs no retry middleware.
type RetryConfig struct {
	Retries int `yaml:"retries" env:"RETRIES"`
	// Backoff is "fixed", "linear" or "exponential".
	Backoff    string `yaml:"backoff" env:"BACKOFF"`
	DelayMs    int    `yaml:"delayMs" env:"DELAY_MS"`
	MaxDelayMs int    `yaml:"maxDelayMs" env:"MAX_DELAY_MS"`
}

// RateLimitConfig configures the rate limiting middleware. An RPS of
// zero installs no rate limiter.
type RateLimitConfig struct {
	RPS     float64 `yaml:"rps" env:"RPS"`
	Burst   int     `yaml:"burst" env:"BURST"`
	PerHost bool    `yaml:"perHost" env:"PER_HOST"`
}

// LogConfig configures the logger built by File.Logger.
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	// Format is "json" or "console".
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the built-in defaults.
func Default() *File {
	return &File{
		Retry: RetryConfig{
			Backoff:    "exponential",
			DelayMs:    50,
			MaxDelayMs: 1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate reports every invalid setting, joined with errors.Join.
func (f *File) Validate() error {
	var errs []error
	if f.TimeoutMs < 0 {
		errs = append(errs, errors.New("timeoutMs must not be negative"))
	}
	if _, ok := request.ParseResponseType(f.ResponseType); !ok {
		errs = append(errs, fmt.Errorf("unknown responseType %q", f.ResponseType))
	}
	if f.Retry.Retries < 0 {
		errs = append(errs, errors.New("retry.retries must not be negative"))
	}
	switch f.Retry.Backoff {
	case "", "fixed", "linear", "exponential":
	default:
		errs = append(errs, fmt.Errorf("unknown retry.backoff %q", f.Retry.Backoff))
	}
	if f.RateLimit.RPS < 0 {
		errs = append(errs, errors.New("rateLimit.rps must not be negative"))
	}
	if _, err := zapcore.ParseLevel(f.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// Client returns the pipex client configuration described by f.
func (f *File) Client(logger *zap.Logger) (pipex.Config, error) {
	rt, ok := request.ParseResponseType(f.ResponseType)
	if !ok {
		return pipex.Config{}, fmt.Errorf("pipex/config: unknown responseType %q", f.ResponseType)
	}
	cfg := pipex.Config{
		BaseURL:             f.BaseURL,
		Timeout:             time.Duration(f.TimeoutMs) * time.Millisecond,
		DefaultResponseType: rt,
		StrictDecode:        f.StrictDecode,
		Logger:              logger,
	}
	if len(f.Headers) > 0 {
		cfg.Header = make(http.Header, len(f.Headers))
		for k, v := range f.Headers {
			cfg.Header.Set(k, v)
		}
	}
	return cfg, nil
}

// Plugins returns the plugins installing the middlewares described by
// f: rate limiting outside retry, so that the limit applies to logical
// requests.
func (f *File) Plugins(logger *zap.Logger) []pipex.Plugin {
	var plugins []pipex.Plugin
	if f.RateLimit.RPS > 0 {
		mw := ratelimit.New(ratelimit.Options{
			Limit:   rate.Limit(f.RateLimit.RPS),
			Burst:   f.RateLimit.Burst,
			PerHost: f.RateLimit.PerHost,
			Logger:  logger,
		})
		plugins = append(plugins, use(mw))
	}
	if f.Retry.Retries > 0 {
		mw := retry.New(retry.Options{
			Retries: f.Retry.Retries,
			Delay:   f.waiter(),
			Logger:  logger,
		})
		plugins = append(plugins, use(mw))
	}
	return plugins
}

func (f *File) waiter() retry.Waiter {
	delay := time.Duration(f.Retry.DelayMs) * time.Millisecond
	if delay <= 0 {
		return retry.NoWait
	}
	switch f.Retry.Backoff {
	case "fixed":
		return retry.NewFixedWaiter(delay)
	case "linear":
		return retry.NewLinearWaiter(delay)
	default:
		maxDelay := time.Duration(f.Retry.MaxDelayMs) * time.Millisecond
		if maxDelay < delay {
			maxDelay = delay
		}
		return retry.NewExpWaiter(delay, maxDelay, time.Now())
	}
}

// Logger builds a zap logger at the configured level.
func (f *File) Logger() (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(f.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("pipex/config: %w", err)
	}
	zc := zap.NewProductionConfig()
	if f.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	return zc.Build()
}

func use(mw pipeline.Middleware) pipex.Plugin {
	return pipex.PluginFunc(func(r *pipex.Registry) error {
		r.Use(mw)
		return nil
	})
}
