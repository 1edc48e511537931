package core

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
)

// 帧分隔符
var (
	EventDelimiter = []byte("\n\n") // SSE 事件记录之间的空行
	LineDelimiter  = []byte("\n")   // JSONL 等按行组织的数据
)

// asciiSpace ASCII 空白字符
const asciiSpace = " \t\n\f\r"

// TrimASCII 去掉首尾 ASCII 空白
func TrimASCII(b []byte) []byte {
	return bytes.Trim(b, asciiSpace)
}

// ═══════════════════════════════════════════════════════════════════════════
// 帧切分器
// ═══════════════════════════════════════════════════════════════════════════

// FrameSplitter 把任意大小的块流切分为完整的分隔符帧
//
// 工作方式：
//  1. 缓冲区内已有完整帧时直接返回，不访问来源
//  2. 没有完整帧时才向来源拉取一个块，然后重试
//  3. 来源结束且剩余非空时，剩余部分作为最后一帧输出一次
//  4. 来源结束且剩余为空时返回 io.EOF
//
// 每帧去掉首尾 ASCII 空白后返回，全空白帧直接跳过。
//
// 查找是增量的：一次查找失败后，下次只从 "已扫描长度 - len(delim) + 1" 继续，
// 不会在每个新块到达时重扫整个缓冲区。
type FrameSplitter struct {
	src   ChunkSource
	delim []byte
	buf   ChunkBuffer

	scanned int // 已确认不含分隔符起点的前缀长度
	pulls   int
	onChunk func(n int)

	eof  bool
	err  error
	done bool
}

// NewFrameSplitter 创建帧切分器
func NewFrameSplitter(src ChunkSource, delim []byte) *FrameSplitter {
	if len(delim) == 0 {
		delim = EventDelimiter
	}
	return &FrameSplitter{src: src, delim: delim}
}

// Next 返回下一个去除首尾空白的非空帧
//
// 返回值：
//   - (frame, nil): 一个完整帧
//   - (nil, io.EOF): 来源结束且没有剩余数据
//   - (nil, *llm.TransportError): 来源出错，切分器随之结束
func (s *FrameSplitter) Next(ctx context.Context) ([]byte, error) {
	for {
		frame, ok, err := s.nextRaw(ctx)
		if err != nil || !ok {
			return nil, err
		}
		if frame = TrimASCII(frame); len(frame) > 0 {
			return frame, nil
		}
	}
}

// nextRaw 返回下一个未修剪的帧；ok=false 且 err=nil 表示不会再有帧
func (s *FrameSplitter) nextRaw(ctx context.Context) (frame []byte, ok bool, err error) {
	if s.done {
		if s.err != nil {
			return nil, false, s.err
		}
		return nil, false, io.EOF
	}

	for {
		if idx := s.buf.Index(s.delim, s.scanned); idx >= 0 {
			frame = s.buf.TakePrefix(idx)
			s.buf.Discard(len(s.delim))
			s.scanned = 0
			return frame, true, nil
		}
		s.scanned = max(s.buf.Len()-len(s.delim)+1, 0)

		if s.eof {
			s.done = true
			if s.buf.IsEmpty() {
				return nil, false, io.EOF
			}
			// 最后一帧没有分隔符，只输出一次
			return s.buf.TakePrefix(s.buf.Len()), true, nil
		}

		chunk, err := s.src.Next(ctx)
		s.pulls++
		if len(chunk) > 0 {
			if s.onChunk != nil {
				s.onChunk(len(chunk))
			}
			s.buf.Append(chunk)
		}
		switch {
		case errors.Is(err, io.EOF):
			s.eof = true
		case err != nil:
			s.done = true
			s.err = llm.NewTransportError(err)
			return nil, false, s.err
		}
	}
}

// Pulls 已向来源发起的 Next 次数
func (s *FrameSplitter) Pulls() int { return s.pulls }

// Buffer 内部缓冲区，用于统计字节收支
func (s *FrameSplitter) Buffer() *ChunkBuffer { return &s.buf }

// Source 底层来源
func (s *FrameSplitter) Source() ChunkSource { return s.src }
