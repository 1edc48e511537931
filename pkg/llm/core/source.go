package core

import (
	"context"
	"io"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 字节块来源
// ═══════════════════════════════════════════════════════════════════════════

// ChunkSource 异步、可失败的字节块生产者
//
// 通常是 HTTP 响应体。core 只消费、不实现业务来源。
//
// 约定：
//   - 返回的切片所有权转移给调用方，来源之后不得再修改它
//   - 数据结束时返回 (nil, io.EOF)
//   - 其余错误视为传输错误，由上层原样包装
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// ReaderSource 把 io.Reader 适配为 ChunkSource
//
// 读入复用的 scratch 后复制出恰好 n 字节的新切片，
// 块的所有权因此不与 scratch 共享，也不会因短读而占住整块容量。
type ReaderSource struct {
	r       io.Reader
	scratch []byte
	err     error // 与数据同时到达的错误，下次 Next 时报告
}

// NewReaderSource 创建 ReaderSource
//
// size 为单块上限，<= 0 时使用 [llm.DefaultChunkSize]。
func NewReaderSource(r io.Reader, size int) *ReaderSource {
	if size <= 0 {
		size = llm.DefaultChunkSize
	}
	return &ReaderSource{r: r, scratch: make([]byte, size)}
}

// Next 读取下一个块
func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := s.r.Read(s.scratch)
		if err != nil {
			s.err = err
		}
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, s.scratch[:n])
			return chunk, nil
		}
		if err != nil {
			return nil, err
		}
		// n == 0 且无错误：按 io.Reader 约定继续读
	}
}

// Close 关闭底层 reader（如果实现了 io.Closer）
func (s *ReaderSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// bytesSource 单块来源，用于已在内存中的数据（如 base64 图片）
type bytesSource struct {
	data []byte
	done bool
}

// NewBytesSource 创建只产出一个块的来源
func NewBytesSource(data []byte) ChunkSource {
	return &bytesSource{data: data}
}

func (s *bytesSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done || len(s.data) == 0 {
		s.done = true
		return nil, io.EOF
	}
	s.done = true
	return s.data, nil
}

// closeSource 关闭实现了 io.Closer 的来源
func closeSource(src ChunkSource) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
