package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 缓冲读取器
// ═══════════════════════════════════════════════════════════════════════════

// BufferedReader 以 fill/consume 方式暴露 ChunkBuffer
//
// 给需要原始字节的调用方使用（图片、音频、文件内容），
// 或者在其上运行自己的按行解码器（见 LineDecoder）。
//
// 同时实现 io.Reader，可以直接交给 io.Copy、json.NewDecoder 等。
type BufferedReader struct {
	src ChunkSource
	buf ChunkBuffer
	cfg streamConfig
	ctx context.Context

	last  int // 最近一次 Fill/Extend 返回的长度
	pulls int

	eof      bool
	err      error
	closed   bool
	reported bool
}

// NewBufferedReader 创建缓冲读取器，可选 WithLogger/WithObserver
func NewBufferedReader(src ChunkSource, opts ...StreamOption) *BufferedReader {
	cfg := newStreamConfig(opts)
	cfg.observer.StreamOpened()
	return &BufferedReader{
		src: src,
		cfg: cfg,
		ctx: context.Background(),
	}
}

// Fill 返回当前缓冲的连续视图
//
//   - 缓冲区非空：直接返回，不访问来源；只有持有多个块时才合并
//   - 缓冲区为空：向来源拉取恰好一个块
//   - 来源结束：返回空切片和 nil（表示 EOF）
//   - 来源出错：返回 *llm.TransportError，之后一直返回该错误
//   - 已关闭或来源为 nil：缓冲区为空时返回 *llm.StreamError
func (r *BufferedReader) Fill(ctx context.Context) ([]byte, error) {
	if r.buf.IsEmpty() {
		if err := r.pull(ctx); err != nil && !errors.Is(err, io.EOF) {
			r.last = 0
			return nil, err
		}
	}
	view := r.buf.Contiguous()
	r.last = len(view)
	if len(view) == 0 {
		r.report(CloseReasonEOF)
	}
	return view, nil
}

// Extend 再拉取一个块，返回扩大后的连续视图
//
// 来源已结束时返回当前视图和 io.EOF。
func (r *BufferedReader) Extend(ctx context.Context) ([]byte, error) {
	err := r.pull(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	view := r.buf.Contiguous()
	r.last = len(view)
	return view, err
}

// Consume 从前端移除 n 个字节
//
// n 不能超过最近一次 Fill/Extend 返回的长度，否则 panic。
func (r *BufferedReader) Consume(n int) {
	if n < 0 || n > r.last {
		panic(fmt.Sprintf("core: consume %d bytes, only %d were filled", n, r.last))
	}
	r.buf.Discard(n)
	r.last -= n
}

// Buffered 当前缓冲的字节数
func (r *BufferedReader) Buffered() int { return r.buf.Len() }

// Pulls 已向来源发起的 Next 次数
func (r *BufferedReader) Pulls() int { return r.pulls }

// WithContext 设置 Read 使用的 context，返回 r 本身
func (r *BufferedReader) WithContext(ctx context.Context) *BufferedReader {
	r.ctx = ctx
	return r
}

// Read 实现 io.Reader
func (r *BufferedReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	view, err := r.Fill(r.ctx)
	if err != nil {
		return 0, err
	}
	if len(view) == 0 {
		return 0, io.EOF
	}
	n := copy(p, view)
	r.Consume(n)
	return n, nil
}

// Close 关闭来源，可重复调用
func (r *BufferedReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.report(CloseReasonClosed)
	return closeSource(r.src)
}

// report 向观测者报告结束原因，只报告第一次
func (r *BufferedReader) report(reason string) {
	if r.reported {
		return
	}
	r.reported = true
	r.cfg.logger.Debug("reader finished", "reason", reason, "pulls", r.pulls)
	r.cfg.observer.StreamClosed(reason)
}

// pull 拉取一个非空块并追加到缓冲区
//
// 返回 io.EOF 表示来源已结束（之前可能仍追加了数据）。
func (r *BufferedReader) pull(ctx context.Context) error {
	switch {
	case r.closed:
		return llm.NewStreamError("read on closed reader", nil)
	case r.src == nil:
		return llm.NewStreamError("reader has no chunk source", nil)
	}
	for {
		if r.err != nil {
			return r.err
		}
		if r.eof {
			return io.EOF
		}

		chunk, err := r.src.Next(ctx)
		r.pulls++
		if len(chunk) > 0 {
			r.cfg.observer.ChunkReceived(len(chunk))
			r.buf.Append(chunk)
		}

		switch {
		case errors.Is(err, io.EOF):
			r.eof = true
			if len(chunk) > 0 {
				return nil
			}
			return io.EOF
		case err != nil:
			r.err = llm.NewTransportError(err)
			r.report(CloseReasonTransportError)
			if len(chunk) > 0 {
				return nil
			}
			return r.err
		case len(chunk) > 0:
			return nil
		}
	}
}
