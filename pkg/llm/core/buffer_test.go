package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuffer(chunks ...string) *ChunkBuffer {
	b := &ChunkBuffer{}
	for _, c := range chunks {
		b.Append([]byte(c))
	}
	return b
}

// ═══════════════════════════════════════════════════════════════════════════
// Append / Len
// ═══════════════════════════════════════════════════════════════════════════

func TestChunkBuffer_Append(t *testing.T) {
	b := newBuffer("ab", "", "cde")

	assert.Equal(t, 5, b.Len())
	assert.False(t, b.IsEmpty())
	assert.Equal(t, 2, b.NumChunks(), "空块被忽略")
	assert.Equal(t, int64(5), b.Appended())
	assert.Equal(t, int64(0), b.Consumed())
	assert.Equal(t, "ChunkBuffer{len=5 chunks=2}", b.String())
}

// ═══════════════════════════════════════════════════════════════════════════
// TakePrefix / Discard
// ═══════════════════════════════════════════════════════════════════════════

func TestChunkBuffer_TakePrefix(t *testing.T) {
	t.Run("队首块内不复制", func(t *testing.T) {
		front := []byte("hello world")
		b := &ChunkBuffer{}
		b.Append(front)

		got := b.TakePrefix(5)
		assert.Equal(t, "hello", string(got))
		assert.Same(t, &front[0], &got[0], "前缀应是原块的子切片")
		assert.Equal(t, 5, cap(got), "容量被截断，调用方 append 不会覆盖剩余数据")

		rest := b.TakePrefix(b.Len())
		assert.Equal(t, " world", string(rest))
		assert.Same(t, &front[5], &rest[0], "剩余部分也不复制")
	})

	t.Run("跨块只复制前缀", func(t *testing.T) {
		b := newBuffer("ab", "cd", "ef")

		got := b.TakePrefix(3)
		assert.Equal(t, "abc", string(got))
		assert.Equal(t, 3, b.Len())
		assert.Equal(t, 2, b.NumChunks())

		assert.Equal(t, "def", string(b.TakePrefix(3)))
		assert.True(t, b.IsEmpty())
	})

	t.Run("零长度", func(t *testing.T) {
		b := newBuffer("x")
		assert.Empty(t, b.TakePrefix(0))
		assert.Equal(t, 1, b.Len())
	})

	t.Run("越界 panic", func(t *testing.T) {
		b := newBuffer("abc")
		assert.Panics(t, func() { b.TakePrefix(4) })
		assert.Panics(t, func() { b.TakePrefix(-1) })
		assert.Panics(t, func() { b.Discard(4) })
	})
}

func TestChunkBuffer_Discard(t *testing.T) {
	b := newBuffer("ab", "cd", "ef")

	b.Discard(3)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, "def", string(b.Contiguous()))

	b.Discard(3)
	assert.True(t, b.IsEmpty())
	assert.Equal(t, b.Appended(), b.Consumed())
}

// ═══════════════════════════════════════════════════════════════════════════
// Index
// ═══════════════════════════════════════════════════════════════════════════

func TestChunkBuffer_Index(t *testing.T) {
	delim := []byte("\n\n")

	tests := []struct {
		name   string
		chunks []string
		from   int
		want   int
	}{
		{"单块内", []string{"ab\n\ncd"}, 0, 2},
		{"未找到", []string{"ab\ncd\n"}, 0, -1},
		{"分隔符横跨两块", []string{"ab\n", "\ncd"}, 0, 2},
		{"分隔符在第二块开头", []string{"ab", "\n\ncd"}, 0, 2},
		{"分隔符横跨三块", []string{"a", "\n", "\n", "b"}, 0, 1},
		{"返回第一个匹配", []string{"a\n", "\nb\n\n"}, 0, 1},
		{"from 跳过前面的匹配", []string{"a\n\nb\n\n"}, 2, 4},
		{"from 在块中间", []string{"a\n\n", "b\n", "\nc"}, 3, 4},
		{"from 超出长度", []string{"a\n\n"}, 10, -1},
		{"负的 from 按 0 处理", []string{"\n\n"}, -5, 0},
		{"空缓冲区", nil, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuffer(tt.chunks...)
			assert.Equal(t, tt.want, b.Index(delim, tt.from))
		})
	}
}

func TestChunkBuffer_Index_AfterTake(t *testing.T) {
	b := newBuffer("xx\n", "\nyy\n", "\nzz")

	idx := b.Index([]byte("\n\n"), 0)
	require.Equal(t, 2, idx)
	assert.Equal(t, "xx", string(b.TakePrefix(idx)))
	b.Discard(2)

	idx = b.Index([]byte("\n\n"), 0)
	require.Equal(t, 2, idx)
	assert.Equal(t, "yy", string(b.TakePrefix(idx)))
}

// ═══════════════════════════════════════════════════════════════════════════
// Contiguous
// ═══════════════════════════════════════════════════════════════════════════

func TestChunkBuffer_Contiguous(t *testing.T) {
	t.Run("空缓冲区", func(t *testing.T) {
		b := &ChunkBuffer{}
		assert.Empty(t, b.Contiguous())
	})

	t.Run("单块直接返回", func(t *testing.T) {
		chunk := []byte("only")
		b := &ChunkBuffer{}
		b.Append(chunk)

		view := b.Contiguous()
		assert.Same(t, &chunk[0], &view[0])
	})

	t.Run("多块合并一次", func(t *testing.T) {
		b := newBuffer("ab", "cd", "ef")

		view := b.Contiguous()
		assert.Equal(t, "abcdef", string(view))
		assert.Equal(t, 1, b.NumChunks())

		again := b.Contiguous()
		assert.Same(t, &view[0], &again[0], "合并后再次调用不复制")
		assert.Equal(t, int64(6), b.Appended(), "合并不影响计数")
	})
}

func TestChunkBuffer_ManySmallChunks(t *testing.T) {
	b := &ChunkBuffer{}
	const n = 10_000

	var want strings.Builder
	for i := range n {
		c := string(rune('a' + i%26))
		want.WriteString(c)
		b.Append([]byte(c))

		// 边追加边消费，队首槽位会被回收
		if i%3 == 2 {
			b.Discard(1)
		}
	}

	rest := b.TakePrefix(b.Len())
	assert.Equal(t, int64(n), b.Appended())
	assert.Equal(t, b.Appended(), b.Consumed())
	assert.Len(t, rest, n-n/3)
	assert.True(t, strings.HasSuffix(want.String(), string(rest)))
	assert.Zero(t, b.NumChunks())
	assert.Empty(t, b.chunks, "清空后槽位被回收")
}
