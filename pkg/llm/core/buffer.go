package core

import (
	"bytes"
	"fmt"
)

// ═══════════════════════════════════════════════════════════════════════════
// 块缓冲区
// ═══════════════════════════════════════════════════════════════════════════

// ChunkBuffer 有序字节队列
//
// 内部是块的队列，逻辑上等于所有未消费字节按到达顺序的拼接。
//
// 复杂度：
//   - Append: 均摊 O(1)，块本身不复制
//   - TakePrefix/Discard: 按块切分，保留的尾部从不复制
//   - Index: 可跨块查找，from 参数支持增量扫描
//
// 非并发安全，同一时刻只能有一个使用者。
type ChunkBuffer struct {
	chunks [][]byte
	head   int // 第一个有效块的下标
	size   int

	appended int64
	consumed int64
}

// Append 追加一个块，调用方之后不得再修改它
func (b *ChunkBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	if b.head > 0 && len(b.chunks) == cap(b.chunks) {
		b.shift()
	}
	b.chunks = append(b.chunks, chunk)
	b.size += len(chunk)
	b.appended += int64(len(chunk))
}

// Len 未消费字节数
func (b *ChunkBuffer) Len() int { return b.size }

// IsEmpty 是否没有未消费字节
func (b *ChunkBuffer) IsEmpty() bool { return b.size == 0 }

// NumChunks 当前持有的块数
func (b *ChunkBuffer) NumChunks() int { return len(b.chunks) - b.head }

// Appended 累计追加的字节数
func (b *ChunkBuffer) Appended() int64 { return b.appended }

// Consumed 累计被 TakePrefix/Discard 移除的字节数
func (b *ChunkBuffer) Consumed() int64 { return b.consumed }

// TakePrefix 移除并返回前 n 个字节
//
// 前缀落在单个块内时返回该块的子切片，不复制；
// 跨块时只复制前缀本身。n 超过 Len() 会 panic。
func (b *ChunkBuffer) TakePrefix(n int) []byte {
	b.check(n)
	if n == 0 {
		return nil
	}

	if front := b.chunks[b.head]; n <= len(front) {
		b.dropFront(n)
		return front[:n:n]
	}

	out := make([]byte, 0, n)
	for len(out) < n {
		front := b.chunks[b.head]
		k := min(n-len(out), len(front))
		out = append(out, front[:k]...)
		b.dropFront(k)
	}
	return out
}

// Discard 丢弃前 n 个字节
func (b *ChunkBuffer) Discard(n int) {
	b.check(n)
	for n > 0 {
		k := min(n, len(b.chunks[b.head]))
		b.dropFront(k)
		n -= k
	}
}

// Index 从逻辑偏移 from 开始查找 delim 第一次出现的位置，未找到返回 -1
//
// 分隔符可以横跨两个（或更多）物理块。包含 from 的块从队尾向前定位，
// 增量扫描时代价只与 from 之后的块数成正比。
func (b *ChunkBuffer) Index(delim []byte, from int) int {
	from = max(from, 0)
	if len(delim) == 0 {
		return min(from, b.size)
	}

	i, offset := len(b.chunks), b.size
	for i > b.head && offset > from {
		i--
		offset -= len(b.chunks[i])
	}

	for ; i < len(b.chunks); i++ {
		c := b.chunks[i]
		start := max(from-offset, 0)
		if j := bytes.Index(c[start:], delim); j >= 0 {
			return offset + start + j
		}

		// 块内完整匹配必然早于跨块匹配，这里只需检查尾部 len(delim)-1 个起点
		for k := max(start, len(c)-len(delim)+1); k < len(c); k++ {
			if b.matchAt(i, k, delim) {
				return offset + k
			}
		}
		offset += len(c)
	}
	return -1
}

// Contiguous 返回所有未消费字节的连续视图
//
// 只有一个块时直接返回该块；多个块时合并为一个块（一次复制），
// 合并结果会替换原来的块，后续调用不再复制。
func (b *ChunkBuffer) Contiguous() []byte {
	switch b.NumChunks() {
	case 0:
		return nil
	case 1:
		return b.chunks[b.head]
	}

	merged := make([]byte, 0, b.size)
	for _, c := range b.chunks[b.head:] {
		merged = append(merged, c...)
	}
	clear(b.chunks)
	b.chunks = append(b.chunks[:0], merged)
	b.head = 0
	return merged
}

// String 调试用
func (b *ChunkBuffer) String() string {
	return fmt.Sprintf("ChunkBuffer{len=%d chunks=%d}", b.size, b.NumChunks())
}

// ═══════════════════════════════════════════════════════════════════════════
// 内部辅助
// ═══════════════════════════════════════════════════════════════════════════

func (b *ChunkBuffer) check(n int) {
	if n < 0 || n > b.size {
		panic(fmt.Sprintf("core: cannot remove %d bytes from buffer of %d", n, b.size))
	}
}

// dropFront 从队首块移除 k 个字节，k 不超过队首块长度
func (b *ChunkBuffer) dropFront(k int) {
	front := b.chunks[b.head]
	b.size -= k
	b.consumed += int64(k)

	if k < len(front) {
		b.chunks[b.head] = front[k:]
		return
	}

	b.chunks[b.head] = nil
	b.head++
	b.compact()
}

// compact 回收队首已空出的槽位，保证 Append 均摊 O(1)
func (b *ChunkBuffer) compact() {
	if b.head == len(b.chunks) {
		b.chunks = b.chunks[:0]
		b.head = 0
		return
	}
	if b.head >= 32 && b.head*2 >= len(b.chunks) {
		b.shift()
	}
}

// shift 把有效块移到队列开头
func (b *ChunkBuffer) shift() {
	n := copy(b.chunks, b.chunks[b.head:])
	clear(b.chunks[n:])
	b.chunks = b.chunks[:n]
	b.head = 0
}

// matchAt 检查 delim 是否从第 ci 个块的偏移 k 处开始（可跨块）
func (b *ChunkBuffer) matchAt(ci, k int, delim []byte) bool {
	for _, want := range delim {
		for ci < len(b.chunks) && k >= len(b.chunks[ci]) {
			ci++
			k = 0
		}
		if ci >= len(b.chunks) || b.chunks[ci][k] != want {
			return false
		}
		k++
	}
	return true
}
