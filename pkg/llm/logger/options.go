package logger

import (
	"io"
	"log/slog"
)

// Option 日志配置选项
type Option func(*config)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// WithDebug 为 true 时输出 Debug 级别，否则为 Info
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithPretty 使用 charmbracelet/log 输出带颜色的终端日志
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON 使用 JSON 格式输出
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter 设置输出目标，默认 os.Stderr
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters 设置多个输出目标
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource 在日志中包含调用位置
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
