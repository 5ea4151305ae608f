// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log provides slog-backed package loggers.
// Output is discarded until SetDefault installs a handler, so library users
// pay nothing unless they opt in.
package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// LevelTrace is more verbose than slog's built-in debug level.
const LevelTrace = slog.Level(-8)

// Logger is the logging surface used throughout the codebase.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)

	With(ctx ...any) Logger
}

var root atomic.Pointer[slog.Logger]

func init() {
	root.Store(slog.New(DiscardHandler()))
}

// SetDefault installs the handler backing all package loggers.
func SetDefault(h slog.Handler) {
	root.Store(slog.New(h))
}

// NewTerminalHandler returns a leveled text handler writing to stderr.
func NewTerminalHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
}

// WithContext creates a logger carrying the given key/value context,
// typically `log.WithContext("pkg", "...")` at package level.
func WithContext(ctx ...any) Logger {
	return &logger{ctx: ctx}
}

type logger struct {
	ctx []any
}

func (l *logger) write(level slog.Level, msg string, ctx []any) {
	lg := root.Load()
	if !lg.Enabled(context.Background(), level) {
		return
	}
	lg.With(l.ctx...).Log(context.Background(), level, msg, ctx...)
}

func (l *logger) Trace(msg string, ctx ...any) { l.write(LevelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...any) { l.write(slog.LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...any)  { l.write(slog.LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...any)  { l.write(slog.LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...any) { l.write(slog.LevelError, msg, ctx) }

func (l *logger) With(ctx ...any) Logger {
	merged := make([]any, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &logger{ctx: merged}
}

// DiscardHandler returns a no-op handler.
func DiscardHandler() slog.Handler {
	return discardHandler{}
}

type discardHandler struct{}

func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
