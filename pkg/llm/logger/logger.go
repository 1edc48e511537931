// Package logger 构建客户端使用的 *slog.Logger
//
// 核心包只依赖 log/slog 接口，本包负责选择具体的输出格式：
//
//	log := logger.New(logger.WithDebug(cfg.Debug), logger.WithPretty(true))
//	client, err := openai.New(cfg, core.WithClientLogger(log))
//
// 默认输出 text 格式到 os.Stderr；WithJSON 输出 JSON，WithPretty 使用
// charmbracelet/log 输出彩色终端日志。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// New 创建日志记录器
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(c)
	}

	var w io.Writer
	switch len(c.writers) {
	case 0:
		w = os.Stderr
	case 1:
		w = c.writers[0]
	default:
		w = io.MultiWriter(c.writers...)
	}

	return slog.New(newHandler(w, c))
}

func newHandler(w io.Writer, c *config) slog.Handler {
	switch {
	case c.pretty:
		level := charmlog.InfoLevel
		if c.level <= slog.LevelDebug {
			level = charmlog.DebugLevel
		}
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           level,
			ReportTimestamp: true,
			ReportCaller:    c.source,
		})
	case c.json:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.level, AddSource: c.source})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.level, AddSource: c.source})
	}
}

// Discard 丢弃所有输出的日志记录器
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// FromConfig 根据 llm.Config.Debug 创建日志记录器
//
// debug 为 false 时返回 Discard，客户端默认保持安静。
func FromConfig(debug bool, opts ...Option) *slog.Logger {
	if !debug {
		return Discard()
	}
	return New(append([]Option{WithDebug(true)}, opts...)...)
}

// ═══════════════════════════════════════════════════════════════════════════
// 多路输出
// ═══════════════════════════════════════════════════════════════════════════

// multiHandler 把每条记录分发给多个 Handler
type multiHandler struct {
	handlers []slog.Handler
}

// Multi 组合多个日志记录器，例如终端彩色输出加 JSON 文件
func Multi(loggers ...*slog.Logger) *slog.Logger {
	handlers := make([]slog.Handler, len(loggers))
	for i, l := range loggers {
		handlers[i] = l.Handler()
	}
	return slog.New(&multiHandler{handlers: handlers})
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	children := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		children[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: children}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	children := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		children[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: children}
}
