package mock

import (
	"context"
	"io"
	"sync"
	"time"
)

// Source 按脚本产出字节块的来源，实现 core.ChunkSource
//
// 记录被拉取的次数和是否被关闭，测试用来验证背压与资源释放：
// 例如收到 [DONE] 之后 Polls 不应再增长。
type Source struct {
	mu sync.Mutex

	chunks   [][]byte
	idx      int
	err      error
	errAfter int
	delay    time.Duration

	polls  int
	closed bool
}

// NewSource 创建按顺序产出 chunks 的来源
func NewSource(chunks ...string) *Source {
	bs := make([][]byte, len(chunks))
	for i, c := range chunks {
		bs[i] = []byte(c)
	}
	return NewSourceBytes(bs...)
}

// NewSourceBytes 同 NewSource，块为字节切片
func NewSourceBytes(chunks ...[]byte) *Source {
	return &Source{chunks: chunks, errAfter: -1}
}

// WithError 在产出 after 个块之后返回 err（之后每次都返回 err）
func (s *Source) WithError(err error, after int) *Source {
	s.err = err
	s.errAfter = after
	return s
}

// WithDelay 每个块之前等待 d，等待期间响应 ctx 取消
func (s *Source) WithDelay(d time.Duration) *Source {
	s.delay = d
	return s
}

// Next 实现 core.ChunkSource
func (s *Source) Next(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	s.polls++
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil && s.idx >= s.errAfter {
		return nil, s.err
	}
	if s.idx >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.idx]
	s.idx++

	out := make([]byte, len(c))
	copy(out, c)
	return out, nil
}

// Close 标记来源已关闭
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Polls Next 被调用的次数
func (s *Source) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Emitted 已产出的块数
func (s *Source) Emitted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx
}

// Closed 是否已关闭
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ═══════════════════════════════════════════════════════════════════════════
// 切分辅助
// ═══════════════════════════════════════════════════════════════════════════

// SplitEvery 把 data 切成每块 n 字节（最后一块可能更短）
func SplitEvery(data string, n int) []string {
	if n <= 0 {
		n = 1
	}
	out := make([]string, 0, len(data)/n+1)
	for len(data) > n {
		out = append(out, data[:n])
		data = data[n:]
	}
	if data != "" {
		out = append(out, data)
	}
	return out
}

// SplitAt 在给定偏移处切分 data，偏移必须递增且不超过 len(data)
func SplitAt(data string, offsets ...int) []string {
	out := make([]string, 0, len(offsets)+1)
	prev := 0
	for _, off := range offsets {
		out = append(out, data[prev:off])
		prev = off
	}
	return append(out, data[prev:])
}
