package core

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// 流选项
// ═══════════════════════════════════════════════════════════════════════════

// StreamOption 流配置选项
type StreamOption func(*streamConfig)

type streamConfig struct {
	logger   *slog.Logger
	observer Observer
	name     string
}

func newStreamConfig(opts []StreamOption) streamConfig {
	cfg := streamConfig{
		logger:   logger.Discard(),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name != "" {
		cfg.logger = cfg.logger.With("stream", cfg.name)
	}
	return cfg
}

// WithLogger 设置调试日志
func WithLogger(l *slog.Logger) StreamOption {
	return func(c *streamConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver 设置观测钩子
func WithObserver(o Observer) StreamOption {
	return func(c *streamConfig) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithName 设置流名称，出现在日志属性 stream 中
func WithName(name string) StreamOption {
	return func(c *streamConfig) {
		c.name = name
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 类型化事件流
// ═══════════════════════════════════════════════════════════════════════════

// Stream 类型化的事件流，逐个拉取
//
// 由 FrameSplitter（按 "\n\n" 切帧）和 DecodeEvent 组合而成，
// 各端点的流只是它的类型别名（例如 openai.ChatCompletionStream）。
//
// 约定：
//   - 每次 Recv 返回恰好一个数据，或结束（io.EOF），或一个终止错误
//   - [DONE] 与来源结束都以 io.EOF 表示
//   - 终止错误为 *llm.ProtocolError、*llm.DecodeError、*llm.TransportError 之一
//   - 结束或出错后不再访问来源，之后的 Recv 一律返回 io.EOF
//   - 来源为 nil 时第一次 Recv 返回 *llm.StreamError
//   - 只在 Recv 内部拉取来源，消费者控制节奏，没有后台 goroutine
//
// 非并发安全：同一个流只能有一个消费者。
//
// 使用示例：
//
//	stream := core.NewStream[llm.ChatCompletionChunk](core.NewReaderSource(body, 0))
//	defer stream.Close()
//
//	for chunk, err := range stream.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk.Choices[0].Delta.Content)
//	}
type Stream[T any] struct {
	splitter *FrameSplitter
	cfg      streamConfig

	done         bool
	sourceClosed bool
}

// NewStream 基于字节来源创建事件流
func NewStream[T any](src ChunkSource, opts ...StreamOption) *Stream[T] {
	cfg := newStreamConfig(opts)
	sp := NewFrameSplitter(src, EventDelimiter)
	sp.onChunk = cfg.observer.ChunkReceived
	cfg.observer.StreamOpened()
	return &Stream[T]{splitter: sp, cfg: cfg}
}

// Recv 返回下一个数据
func (s *Stream[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	if s.done {
		return zero, io.EOF
	}
	if s.splitter.Source() == nil {
		s.finish(CloseReasonClosed)
		return zero, llm.NewStreamError("stream has no chunk source", nil)
	}

	for {
		frame, err := s.splitter.Next(ctx)
		if errors.Is(err, io.EOF) {
			s.finish(CloseReasonEOF)
			return zero, io.EOF
		}
		if err != nil {
			s.finish(CloseReasonTransportError)
			return zero, err
		}

		ev, err := DecodeEvent[T](frame)
		if err != nil {
			s.cfg.logger.Debug("decode event failed", "error", err)
			s.finish(CloseReasonDecodeError)
			return zero, err
		}
		s.cfg.observer.FrameDecoded(ev.Kind)

		switch ev.Kind {
		case EventSkip:
			s.cfg.logger.Debug("skip comment record", "bytes", len(frame))
			continue
		case EventEnd:
			s.finish(CloseReasonDone)
			return zero, io.EOF
		case EventError:
			s.finish(CloseReasonProtocolError)
			return zero, ev.Err
		default:
			return ev.Payload, nil
		}
	}
}

// All 以 range-over-func 的方式遍历流
//
// 正常结束时迭代直接停止；出错时把错误作为最后一对值交给调用方。
// 调用方中途 break 时流保持可用状态（未结束），仍需 Close。
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := s.Recv(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(v, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Collect 读取全部数据直到结束
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for v, err := range s.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Done 流是否已经结束
func (s *Stream[T]) Done() bool { return s.done }

// Splitter 底层切分器，用于统计
func (s *Stream[T]) Splitter() *FrameSplitter { return s.splitter }

// Close 关闭流并释放来源，可重复调用
//
// 不调用 Close 直接丢弃流也是安全的，只是底层连接要等 GC 或超时才释放。
func (s *Stream[T]) Close() error {
	if !s.done {
		s.finish(CloseReasonClosed)
	}
	return s.closeSource()
}

func (s *Stream[T]) finish(reason string) {
	s.done = true
	s.cfg.logger.Debug("stream finished", "reason", reason, "pulls", s.splitter.Pulls())
	s.cfg.observer.StreamClosed(reason)
	_ = s.closeSource()
}

func (s *Stream[T]) closeSource() error {
	if s.sourceClosed {
		return nil
	}
	s.sourceClosed = true
	return closeSource(s.splitter.Source())
}
