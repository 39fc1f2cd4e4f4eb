// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package logging provides a plugin which writes a structured log entry
// for every request lifecycle event of a pipex client.
package logging

import (
	"github.com/gogama/pipex"
	"github.com/gogama/pipex/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the logging plugin.
type Options struct {
	// Logger receives the entries. If nil, the client's logger is used.
	Logger *zap.Logger
	// StartLevel is the level of Start entries. The default is debug
	// level.
	StartLevel *zapcore.Level
	// EndLevel is the level of End and Abort entries. The default is
	// info level.
	EndLevel *zapcore.Level
	// ErrorLevel is the level of Error entries. The default is warn
	// level.
	ErrorLevel *zapcore.Level
}

// Plugin logs client events. Install it with pipex.New.
type Plugin struct {
	opts Options
}

// New returns a logging plugin.
func New(opts Options) *Plugin {
	return &Plugin{opts: opts}
}

// Apply implements pipex.Plugin.
func (p *Plugin) Apply(r *pipex.Registry) error {
	logger := p.opts.Logger
	if logger == nil {
		logger = r.Logger()
	}
	l := &listener{
		logger:     logger.With(zap.String("component", "logging")),
		startLevel: levelOr(p.opts.StartLevel, zapcore.DebugLevel),
		endLevel:   levelOr(p.opts.EndLevel, zapcore.InfoLevel),
		errorLevel: levelOr(p.opts.ErrorLevel, zapcore.WarnLevel),
	}
	for _, evt := range pipex.Events() {
		r.On(evt, l)
	}
	return nil
}

func levelOr(l *zapcore.Level, def zapcore.Level) zapcore.Level {
	if l == nil {
		return def
	}
	return *l
}

type listener struct {
	logger     *zap.Logger
	startLevel zapcore.Level
	endLevel   zapcore.Level
	errorLevel zapcore.Level
}

func (l *listener) Handle(evt pipex.Event, info *pipex.EventInfo) {
	var lvl zapcore.Level
	var msg string
	switch evt {
	case pipex.Start:
		lvl, msg = l.startLevel, "request started"
	case pipex.End:
		lvl, msg = l.endLevel, "request completed"
	case pipex.Error:
		lvl, msg = l.errorLevel, "request failed"
	case pipex.Abort:
		lvl, msg = l.endLevel, "request aborted"
	default:
		return
	}
	ce := l.logger.Check(lvl, msg)
	if ce == nil {
		return
	}
	ce.Write(fields(evt, info)...)
}

func fields(evt pipex.Event, info *pipex.EventInfo) []zap.Field {
	fs := make([]zap.Field, 0, 8)
	if info.Exec != nil {
		fs = append(fs, zap.String("id", info.Exec.ID))
	}
	if info.Request != nil {
		fs = append(fs, zap.String("method", info.Request.Method), zap.String("url", info.Request.URL))
	}
	if evt == pipex.Start {
		return fs
	}
	if info.Response != nil {
		fs = append(fs, zap.Int("status", info.Response.StatusCode))
	}
	fs = append(fs, zap.Duration("duration", info.Duration), zap.Int("attempt", info.Attempt))
	if info.Err != nil {
		if e, ok := request.AsError(info.Err); ok {
			fs = append(fs, zap.Stringer("kind", e.Kind))
		}
		fs = append(fs, zap.Error(info.Err))
	}
	return fs
}
