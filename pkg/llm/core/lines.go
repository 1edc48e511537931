package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
)

// LineDecoder 在 BufferedReader 之上逐行解码 JSON Lines
//
// 和 FrameSplitter 相同的纪律：先排空已缓冲的完整行，再向来源要数据。
// 没有找到换行时不消费任何字节，只拉取一个新块，并从上次扫描位置继续查找，
// 长行跨越很多小块时总代价仍是线性的。
//
//   - 空行和全空白行被跳过
//   - 来源结束时，末尾没有换行的非空行作为最后一条记录解码
//   - 行内容是错误对象 {"error": {...}} 时返回 *llm.ProtocolError
//   - 反序列化失败返回 *llm.DecodeError
//
// 任何错误之后解码器结束，之后的 Recv 返回 io.EOF。
type LineDecoder[T any] struct {
	r       *BufferedReader
	scanned int
	done    bool
}

// NewLineDecoder 创建按行解码器
func NewLineDecoder[T any](r *BufferedReader) *LineDecoder[T] {
	return &LineDecoder[T]{r: r}
}

// Recv 返回下一条记录
func (d *LineDecoder[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	if d.done {
		return zero, io.EOF
	}

	for {
		line, err := d.nextLine(ctx)
		if err != nil {
			d.done = true
			return zero, err
		}
		if line = TrimASCII(line); len(line) == 0 {
			continue
		}
		return d.decode(line)
	}
}

// All 以 range-over-func 的方式遍历所有记录
func (d *LineDecoder[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := d.Recv(ctx)
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

// Close 关闭底层读取器
func (d *LineDecoder[T]) Close() error {
	d.done = true
	return d.r.Close()
}

// nextLine 返回下一行（不含换行符），来源结束且无剩余时返回 io.EOF
func (d *LineDecoder[T]) nextLine(ctx context.Context) ([]byte, error) {
	buf := &d.r.buf
	for {
		if idx := buf.Index(LineDelimiter, d.scanned); idx >= 0 {
			line := buf.TakePrefix(idx)
			buf.Discard(len(LineDelimiter))
			d.scanned = 0
			d.r.last = 0
			return line, nil
		}
		d.scanned = buf.Len()

		err := d.r.pull(ctx)
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			return nil, err
		}
		if buf.IsEmpty() {
			d.r.report(CloseReasonEOF)
			return nil, io.EOF
		}
		// 最后一行没有换行符
		d.scanned = 0
		d.r.last = 0
		return buf.TakePrefix(buf.Len()), nil
	}
}

func (d *LineDecoder[T]) decode(line []byte) (T, error) {
	var v T
	obs := d.r.cfg.observer

	if p, ok := ParseErrorObject(line); ok {
		obs.FrameDecoded(EventError)
		d.finish(CloseReasonProtocolError)
		return v, llm.NewProtocolError(p)
	}
	if err := json.Unmarshal(line, &v); err != nil {
		d.finish(CloseReasonDecodeError)
		return v, llm.NewDecodeError("decode json line", line, err)
	}
	obs.FrameDecoded(EventPayload)
	return v, nil
}

func (d *LineDecoder[T]) finish(reason string) {
	d.done = true
	d.r.report(reason)
}
